package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hogar/internal/auth"
	"hogar/internal/household"
	"hogar/internal/log"
	"hogar/internal/metrics"
	"hogar/internal/middleware/ratelimit"
	"hogar/internal/services"
	"hogar/internal/storage/memory"
	"hogar/internal/visibility"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "test"})
	store := memory.New()

	resolver := household.NewResolver(store, logger)
	reconciler := services.NewReconciler(store, logger, nil)
	lifecycle := household.NewLifecycle(store, resolver, reconciler, nil, logger)
	engine := visibility.NewEngine(store, resolver, logger)
	expenses := services.NewExpenseService(store, resolver, logger)
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	authSvc := auth.NewService(store, tokens, logger)

	handler := NewHandler(authSvc, expenses, engine, resolver, lifecycle, store, logger)
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 10000})
	t.Cleanup(limiter.Shutdown)
	return handler.Router(metrics.New(), limiter)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerUser(t *testing.T, router http.Handler, name, email string) (string, string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body)
	}
	resp := decode[authResponse](t, rec)
	return resp.User.ID, resp.Token
}

func TestAuthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	_, token := registerUser(t, router, "Ana", "ana@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: status %d, want 401", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("me: status %d", rec.Code)
	}
	me := decode[userDTO](t, rec)
	if me.Email != "ana@example.com" {
		t.Errorf("me = %+v", me)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status %d, want 401", rec.Code)
	}
}

func TestExpenseLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	_, token := registerUser(t, router, "Ana", "ana@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/expenses/", token, map[string]string{
		"description": "mercado",
		"amount":      "1234,5",
		"category":    "super",
		"date":        "2026-08-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: status %d body %s", rec.Code, rec.Body)
	}
	created := decode[expenseDTO](t, rec)
	if created.Amount != "1234.5" {
		t.Errorf("amount stored = %s, want full precision", created.Amount)
	}
	if created.Display != "$1.235" {
		t.Errorf("display amount = %s, want rounded and grouped", created.Display)
	}
	if created.Person != "Ana" {
		t.Errorf("person defaulted to %q", created.Person)
	}
	if !created.Personal {
		t.Error("solo user's expense should be personal")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/expenses/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	list := decode[[]expenseDTO](t, rec)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/expenses/"+created.ID, token, map[string]string{
		"description": "mercado grande",
		"amount":      "2000",
		"category":    "super",
		"date":        "2026-08-10",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/expenses/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/expenses/", token, nil)
	if got := decode[[]expenseDTO](t, rec); len(got) != 0 {
		t.Errorf("list after delete = %+v", got)
	}
}

func TestExpenseValidationStatus(t *testing.T) {
	router := newTestRouter(t)
	_, token := registerUser(t, router, "Ana", "ana@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/expenses/", token, map[string]string{
		"description": "x", "amount": "-5", "category": "super", "date": "2026-08-10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative amount: status %d, want 422", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/expenses/nope", token, map[string]string{
		"description": "x", "amount": "5", "category": "super", "date": "2026-08-10",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown expense: status %d, want 404", rec.Code)
	}
}

func TestHouseholdFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	_, anaToken := registerUser(t, router, "Ana", "ana@example.com")
	_, brunoToken := registerUser(t, router, "Bruno", "bruno@example.com")

	// Ana shares an expense before the household exists: it stays personal.
	doJSON(t, router, http.MethodPost, "/api/expenses/", anaToken, map[string]string{
		"description": "pre-household", "amount": "10", "category": "otros", "date": "2026-08-01",
	})

	rec := doJSON(t, router, http.MethodPost, "/api/household/", anaToken, map[string]any{
		"name": "Casa Azul",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create household: status %d body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/household/join", brunoToken, map[string]string{
		"owner_email": "ana@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("join: status %d body %s", rec.Code, rec.Body)
	}
	joined := decode[householdDTO](t, rec)
	if len(joined.Members) != 2 {
		t.Errorf("members = %d, want 2", len(joined.Members))
	}

	// Bruno now sees Ana's pre-household personal expense through the
	// member union.
	rec = doJSON(t, router, http.MethodGet, "/api/expenses/", brunoToken, nil)
	if got := decode[[]expenseDTO](t, rec); len(got) != 1 {
		t.Fatalf("bruno's scope = %d expenses, want 1", len(got))
	}

	// Soft leave narrows Bruno's view without touching membership.
	rec = doJSON(t, router, http.MethodPost, "/api/household/leave", brunoToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("soft leave: status %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/expenses/", brunoToken, nil)
	if got := decode[[]expenseDTO](t, rec); len(got) != 0 {
		t.Errorf("personal view = %d expenses, want 0", len(got))
	}
	rec = doJSON(t, router, http.MethodGet, "/api/household/", brunoToken, nil)
	state := decode[householdStateDTO](t, rec)
	if !state.PersonalOnly || state.Household == nil {
		t.Errorf("state after soft leave = %+v", state)
	}

	// Return restores the shared view.
	rec = doJSON(t, router, http.MethodPost, "/api/household/return", brunoToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("return: status %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/expenses/", brunoToken, nil)
	if got := decode[[]expenseDTO](t, rec); len(got) != 1 {
		t.Errorf("restored view = %d expenses, want 1", len(got))
	}

	// Permanent leave deletes the membership.
	rec = doJSON(t, router, http.MethodDelete, "/api/household/membership", brunoToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("permanent leave: status %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/household/", brunoToken, nil)
	state = decode[householdStateDTO](t, rec)
	if state.Household != nil {
		t.Errorf("household after permanent leave = %+v", state.Household)
	}
}

func TestLoginResetsPersonalView(t *testing.T) {
	router := newTestRouter(t)
	_, token := registerUser(t, router, "Ana", "ana@example.com")
	doJSON(t, router, http.MethodPost, "/api/household/", token, map[string]any{"name": "Casa"})

	if rec := doJSON(t, router, http.MethodPost, "/api/household/leave", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("soft leave: status %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d", rec.Code)
	}
	token = decode[authResponse](t, rec).Token

	rec = doJSON(t, router, http.MethodGet, "/api/household/", token, nil)
	state := decode[householdStateDTO](t, rec)
	if state.PersonalOnly {
		t.Error("fresh session should start in the shared view")
	}
}

func TestSummaryAndExport(t *testing.T) {
	router := newTestRouter(t)
	_, token := registerUser(t, router, "Ana", "ana@example.com")

	for _, e := range []map[string]string{
		{"description": "a", "amount": "300", "category": "super", "date": "2026-08-01"},
		{"description": "b", "amount": "100", "category": "comida", "date": "2026-08-02"},
	} {
		if rec := doJSON(t, router, http.MethodPost, "/api/expenses/", token, e); rec.Code != http.StatusCreated {
			t.Fatalf("seed expense: status %d", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/expenses/summary", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	summary := decode[summaryDTO](t, rec)
	if summary.GrandTotal != "400" || summary.Count != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.TopCategory != "super" {
		t.Errorf("top category = %q", summary.TopCategory)
	}
	if summary.ByCategory[0].Percent != "75" {
		t.Errorf("top percent = %q, want 75", summary.ByCategory[0].Percent)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/expenses/export", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("date,description,category,amount,person")) {
		t.Errorf("csv header missing: %s", rec.Body)
	}
}

func TestCategoriesOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	_, token := registerUser(t, router, "Ana", "ana@example.com")

	rec := doJSON(t, router, http.MethodGet, "/api/categories/", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories: status %d", rec.Code)
	}
	if got := decode[[]categoryDTO](t, rec); len(got) != 8 {
		t.Errorf("default categories = %d, want 8", len(got))
	}

	rec = doJSON(t, router, http.MethodPost, "/api/categories/", token, map[string]string{
		"value": "viajes", "label": "✈️ Viajes", "emoji": "✈️",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: status %d body %s", rec.Code, rec.Body)
	}
	created := decode[categoryDTO](t, rec)
	if created.ID == "" || created.System {
		t.Errorf("created category = %+v", created)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/categories/"+created.ID, token, map[string]string{
		"value": "viajes", "label": "🌍 Viajes", "emoji": "🌍",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update category: status %d body %s", rec.Code, rec.Body)
	}
	if got := decode[categoryDTO](t, rec); got.Label != "🌍 Viajes" {
		t.Errorf("updated label = %q", got.Label)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/categories/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete category: status %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/categories/", token, nil)
	if got := decode[[]categoryDTO](t, rec); len(got) != 8 {
		t.Errorf("categories after delete = %d, want the 8 defaults", len(got))
	}
}

func TestCategoriesArePerUser(t *testing.T) {
	router := newTestRouter(t)
	_, anaToken := registerUser(t, router, "Ana", "ana@example.com")
	_, brunoToken := registerUser(t, router, "Bruno", "bruno@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/categories/", anaToken, map[string]string{
		"value": "vino", "label": "🍷 Vino",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: status %d body %s", rec.Code, rec.Body)
	}

	// Two accounts with no household in common share only the defaults.
	rec = doJSON(t, router, http.MethodGet, "/api/categories/", brunoToken, nil)
	for _, c := range decode[[]categoryDTO](t, rec) {
		if c.Value == "vino" {
			t.Error("another account's private category leaked into the list")
		}
	}
}

func TestSystemCategoriesImmutableOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	_, token := registerUser(t, router, "Ana", "ana@example.com")

	rec := doJSON(t, router, http.MethodGet, "/api/categories/", token, nil)
	defaults := decode[[]categoryDTO](t, rec)
	if len(defaults) == 0 || !defaults[0].System {
		t.Fatalf("defaults = %+v", defaults)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/categories/"+defaults[0].ID, token, map[string]string{
		"value": "comida", "label": "Comida",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("update default: status %d, want 422", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/categories/"+defaults[0].ID, token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("delete default: status %d, want 422", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics: status %d", rec.Code)
	}
}
