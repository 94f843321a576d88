package amqp

import (
	"encoding/json"
	"time"
)

// MembershipChangeMessage notifies the worker that a user's membership
// changed and their expenses may need reclassification. Carries only the
// user id and reason; the worker reads current state from the store.
type MembershipChangeMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMembershipChangeMessage(userID, reason string) *MembershipChangeMessage {
	return &MembershipChangeMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *MembershipChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MembershipChangeMessageFromJSON(data []byte) (*MembershipChangeMessage, error) {
	var msg MembershipChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
