package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	handler "github.com/samirrijal/gympass/internal/adapters/http"
	"github.com/samirrijal/gympass/internal/adapters/memory"
	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/usecases"
)

const testSecret = "test-secret-0123456789"

// ---- Test helpers ----

type testEnv struct {
	app      *fiber.App
	clock    *clock.Mock
	gyms     *memory.GymRepo
	checkIns *memory.CheckInRepo
	users    *memory.UserRepo
	tokens   *handler.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := clock.NewMock()
	clk.Add(time.Date(2024, 1, 13, 8, 0, 0, 0, time.UTC).Sub(clk.Now()))

	e := &testEnv{
		clock:    clk,
		gyms:     memory.NewGymRepo(clk),
		checkIns: memory.NewCheckInRepo(clk, time.UTC),
		users:    memory.NewUserRepo(clk),
		// jwt-go checks expiry against the wall clock
		tokens: handler.NewTokenIssuer(testSecret, time.Hour, clock.New()),
	}

	deps := &handler.Dependencies{
		RegisterUser:    usecases.NewRegisterUser(e.users, bcrypt.MinCost),
		Authenticate:    usecases.NewAuthenticate(e.users),
		UserProfile:     usecases.NewGetUserProfile(e.users),
		CreateGym:       usecases.NewCreateGym(e.gyms, nil, clk),
		SearchGyms:      usecases.NewSearchGyms(e.gyms, nil),
		NearbyGyms:      usecases.NewFetchNearbyGyms(e.gyms, nil),
		CreateCheckIn:   usecases.NewCreateCheckIn(e.checkIns, e.gyms, clk, nil),
		ValidateCheckIn: usecases.NewValidateCheckIn(e.checkIns, clk, nil),
		CheckInHistory:  usecases.NewFetchCheckInHistory(e.checkIns),
		UserMetrics:     usecases.NewGetUserMetrics(e.checkIns),
		Tokens:          e.tokens,
	}

	e.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(e.app, deps)
	return e
}

// login stores a user with role and returns its id and a session token.
func (e *testEnv) login(t *testing.T, role domain.Role) (string, string) {
	t.Helper()
	u, err := e.users.Create(context.Background(), &domain.User{
		Name:         "Test " + string(role),
		Email:        strings.ToLower(string(role)) + "-" + uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tok, err := e.tokens.Issue(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u.ID, tok
}

func (e *testEnv) gym(t *testing.T, title string, lat, lon float64) *domain.Gym {
	t.Helper()
	g, err := e.gyms.Create(context.Background(), &domain.Gym{Title: title, Latitude: lat, Longitude: lon})
	if err != nil {
		t.Fatalf("create gym: %v", err)
	}
	return g
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp, readBody(t, resp.Body)
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func expectError(t *testing.T, resp *http.Response, body []byte, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d: %s", status, resp.StatusCode, body)
	}
	apiErr := decode[handler.APIError](t, body)
	if apiErr.Code != code {
		t.Errorf("expected code %q, got %q (%s)", code, apiErr.Code, apiErr.Message)
	}
}

// ---- Auth ----

func TestAuth_MissingToken(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, "GET", "/v1/me", "", nil)
	expectError(t, resp, body, 401, "unauthorized")
}

func TestAuth_TamperedToken(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)

	resp, body := e.do(t, "GET", "/v1/me", tok+"x", nil)
	expectError(t, resp, body, 401, "unauthorized")
}

func TestAuth_ForeignSecret(t *testing.T) {
	e := newTestEnv(t)
	other := handler.NewTokenIssuer("another-secret-abcdefgh", time.Hour, clock.New())
	tok, err := other.Issue(&domain.User{ID: "u1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}

	resp, body := e.do(t, "GET", "/v1/me", tok, nil)
	expectError(t, resp, body, 401, "unauthorized")
}

func TestAuth_MemberCannotCreateGym(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)

	resp, body := e.do(t, "POST", "/v1/gyms", tok, map[string]any{
		"title": "Gym", "latitude": 0, "longitude": 0,
	})
	expectError(t, resp, body, 403, "forbidden")
}

func TestAuth_MemberCannotValidate(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)

	resp, body := e.do(t, "PATCH", "/v1/check-ins/whatever/validate", tok, nil)
	expectError(t, resp, body, 403, "forbidden")
}

// ---- Users ----

func TestRegisterSessionProfile(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, "POST", "/v1/users", "", map[string]string{
		"name": "John Doe", "email": "John@Example.com", "password": "123456",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "password") {
		t.Errorf("response leaks password material: %s", body)
	}
	created := decode[struct{ User domain.User }](t, body)
	if created.User.Email != "john@example.com" || created.User.Role != domain.RoleMember {
		t.Errorf("unexpected user %+v", created.User)
	}

	resp, body = e.do(t, "POST", "/v1/sessions", "", map[string]string{
		"email": "john@example.com", "password": "123456",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	session := decode[struct{ Token string }](t, body)
	if session.Token == "" {
		t.Fatal("expected token")
	}

	resp, body = e.do(t, "GET", "/v1/me", session.Token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	me := decode[struct{ User domain.User }](t, body)
	if me.User.ID != created.User.ID {
		t.Errorf("profile id = %s, want %s", me.User.ID, created.User.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	req := map[string]string{"name": "A", "email": "a@example.com", "password": "123456"}

	if resp, body := e.do(t, "POST", "/v1/users", "", req); resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	resp, body := e.do(t, "POST", "/v1/users", "", req)
	expectError(t, resp, body, 409, "conflict")
}

func TestRegister_ValidationFailed(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, "POST", "/v1/users", "", map[string]string{
		"name": "A", "email": "not-an-email", "password": "123",
	})
	expectError(t, resp, body, 400, "validation_failed")

	apiErr := decode[handler.APIError](t, body)
	if !strings.Contains(apiErr.Message, "email") || !strings.Contains(apiErr.Message, "password") {
		t.Errorf("expected both fields reported, got %q", apiErr.Message)
	}
}

func TestSession_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, "POST", "/v1/users", "", map[string]string{"name": "A", "email": "a@example.com", "password": "123456"})

	resp, body := e.do(t, "POST", "/v1/sessions", "", map[string]string{
		"email": "a@example.com", "password": "wrong-password",
	})
	expectError(t, resp, body, 400, "invalid_credentials")
}

// ---- Gyms ----

func TestCreateGym_Admin(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleAdmin)

	resp, body := e.do(t, "POST", "/v1/gyms", tok, map[string]any{
		"title": "JavaScript Gym", "phone": "1199999999", "latitude": -27.2092052, "longitude": -49.6401091,
	})
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	created := decode[struct{ Gym domain.Gym }](t, body)
	if created.Gym.ID == "" || created.Gym.Title != "JavaScript Gym" {
		t.Errorf("unexpected gym %+v", created.Gym)
	}
	if created.Gym.Description != nil {
		t.Errorf("expected null description, got %q", *created.Gym.Description)
	}
}

func TestCreateGym_MissingCoordinates(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleAdmin)

	resp, body := e.do(t, "POST", "/v1/gyms", tok, map[string]any{"title": "Gym"})
	expectError(t, resp, body, 400, "validation_failed")
}

func TestCreateGym_BlankTitle(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleAdmin)

	resp, body := e.do(t, "POST", "/v1/gyms", tok, map[string]any{"title": "   ", "latitude": 0, "longitude": 0})
	expectError(t, resp, body, 400, "bad_request")
}

func TestSearchGyms_LinkHeader(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)
	for i := 1; i <= 22; i++ {
		e.gym(t, fmt.Sprintf("Gym %02d", i), 0, 0)
		e.clock.Add(time.Second)
	}

	resp, body := e.do(t, "GET", "/v1/gyms/search?q=gym&page=1", tok, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if got := decode[struct{ Gyms []domain.Gym }](t, body).Gyms; len(got) != 20 {
		t.Fatalf("expected 20 gyms on page 1, got %d", len(got))
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="first"`) || !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected first and next links, got %s", link)
	}
	if strings.Contains(link, `rel="prev"`) {
		t.Errorf("page 1 should not have prev link, got %s", link)
	}

	resp, body = e.do(t, "GET", "/v1/gyms/search?q=gym&page=2", tok, nil)
	got := decode[struct{ Gyms []domain.Gym }](t, body).Gyms
	if len(got) != 2 || got[0].Title != "Gym 21" || got[1].Title != "Gym 22" {
		t.Fatalf("unexpected page 2: %+v", got)
	}
	link = resp.Header.Get("Link")
	if !strings.Contains(link, `rel="prev"`) || strings.Contains(link, `rel="next"`) {
		t.Errorf("expected prev and no next link, got %s", link)
	}
}

func TestSearchGyms_CacheControlHeader(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)

	resp, _ := e.do(t, "GET", "/v1/gyms/search?q=x", tok, nil)
	if cc := resp.Header.Get("Cache-Control"); cc != "private, max-age=60" {
		t.Errorf("expected private cache header, got %q", cc)
	}

	resp, _ = e.do(t, "GET", "/v1/check-ins/history", tok, nil)
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-store" {
		t.Errorf("expected no-store on member data, got %q", cc)
	}
}

func TestNearbyGyms(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)
	near := e.gym(t, "Near Gym", -27.2092052, -49.6401091)
	e.gym(t, "Far Gym", -27.0610928, -49.5229501)

	resp, body := e.do(t, "GET", "/v1/gyms/nearby?latitude=-27.2092052&longitude=-49.6401091", tok, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	gyms := decode[struct{ Gyms []domain.Gym }](t, body).Gyms
	if len(gyms) != 1 || gyms[0].ID != near.ID {
		t.Fatalf("expected only the near gym, got %+v", gyms)
	}
	if gyms[0].Distance == nil || *gyms[0].Distance > 1 {
		t.Errorf("expected distance ~0, got %v", gyms[0].Distance)
	}
}

func TestNearbyGyms_BadParams(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)

	tests := []struct {
		name, query, code string
	}{
		{"missing latitude", "longitude=1", "bad_request"},
		{"missing longitude", "latitude=1", "bad_request"},
		{"not a number", "latitude=abc&longitude=1", "bad_request"},
		{"out of range", "latitude=91&longitude=1", "validation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.do(t, "GET", "/v1/gyms/nearby?"+tt.query, tok, nil)
			expectError(t, resp, body, 400, tt.code)
		})
	}
}

// ---- Check-ins ----

func TestCreateCheckIn(t *testing.T) {
	e := newTestEnv(t)
	userID, tok := e.login(t, domain.RoleMember)
	g := e.gym(t, "Gym", -27.2092052, -49.6401091)
	pos := map[string]float64{"latitude": -27.2092052, "longitude": -49.6401091}

	resp, body := e.do(t, "POST", "/v1/gyms/"+g.ID+"/check-ins", tok, pos)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	c := decode[struct{ CheckIn domain.CheckIn `json:"check_in"` }](t, body).CheckIn
	if c.UserID != userID || c.GymID != g.ID || c.ValidatedAt != nil {
		t.Errorf("unexpected check-in %+v", c)
	}

	resp, body = e.do(t, "POST", "/v1/gyms/"+g.ID+"/check-ins", tok, pos)
	expectError(t, resp, body, 409, "duplicate_check_in")
}

func TestCreateCheckIn_TooFar(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)
	g := e.gym(t, "Gym", -27.0747279, -49.4889672)

	resp, body := e.do(t, "POST", "/v1/gyms/"+g.ID+"/check-ins", tok, map[string]float64{
		"latitude": -27.2092052, "longitude": -49.6401091,
	})
	expectError(t, resp, body, 400, "out_of_range")
}

func TestCreateCheckIn_UnknownGym(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)

	resp, body := e.do(t, "POST", "/v1/gyms/does-not-exist/check-ins", tok, map[string]float64{
		"latitude": 0, "longitude": 0,
	})
	expectError(t, resp, body, 404, "not_found")
}

func TestCreateCheckIn_MalformedBody(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)
	g := e.gym(t, "Gym", 0, 0)

	req := httptest.NewRequest("POST", "/v1/gyms/"+g.ID+"/check-ins", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, _ := e.app.Test(req, -1)
	expectError(t, resp, readBody(t, resp.Body), 400, "bad_request")
}

func TestValidateCheckIn(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		status  int
		code    string
	}{
		{"within window", 5 * time.Minute, 200, ""},
		{"at deadline", 20 * time.Minute, 200, ""},
		{"late", 21 * time.Minute, 409, "late_validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			_, member := e.login(t, domain.RoleMember)
			_, admin := e.login(t, domain.RoleAdmin)
			g := e.gym(t, "Gym", 0, 0)

			_, body := e.do(t, "POST", "/v1/gyms/"+g.ID+"/check-ins", member, map[string]float64{"latitude": 0, "longitude": 0})
			c := decode[struct{ CheckIn domain.CheckIn `json:"check_in"` }](t, body).CheckIn

			e.clock.Add(tt.elapsed)
			resp, body := e.do(t, "PATCH", "/v1/check-ins/"+c.ID+"/validate", admin, nil)
			if tt.code != "" {
				expectError(t, resp, body, tt.status, tt.code)
				return
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.StatusCode, body)
			}
			got := decode[struct{ CheckIn domain.CheckIn `json:"check_in"` }](t, body).CheckIn
			if got.ValidatedAt == nil || !got.ValidatedAt.Equal(e.clock.Now()) {
				t.Errorf("validated_at = %v, want %v", got.ValidatedAt, e.clock.Now())
			}
		})
	}
}

func TestValidateCheckIn_Twice(t *testing.T) {
	e := newTestEnv(t)
	_, member := e.login(t, domain.RoleMember)
	_, admin := e.login(t, domain.RoleAdmin)
	g := e.gym(t, "Gym", 0, 0)

	_, body := e.do(t, "POST", "/v1/gyms/"+g.ID+"/check-ins", member, map[string]float64{"latitude": 0, "longitude": 0})
	c := decode[struct{ CheckIn domain.CheckIn `json:"check_in"` }](t, body).CheckIn

	if resp, body := e.do(t, "PATCH", "/v1/check-ins/"+c.ID+"/validate", admin, nil); resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	resp, body := e.do(t, "PATCH", "/v1/check-ins/"+c.ID+"/validate", admin, nil)
	expectError(t, resp, body, 409, "already_validated")
}

func TestValidateCheckIn_NotFound(t *testing.T) {
	e := newTestEnv(t)
	_, admin := e.login(t, domain.RoleAdmin)

	resp, body := e.do(t, "PATCH", "/v1/check-ins/missing/validate", admin, nil)
	expectError(t, resp, body, 404, "not_found")
}

func TestCheckInHistoryAndMetrics(t *testing.T) {
	e := newTestEnv(t)
	userID, tok := e.login(t, domain.RoleMember)
	g := e.gym(t, "Gym", 0, 0)

	for i := 0; i < 22; i++ {
		if _, err := e.checkIns.Create(context.Background(), userID, g.ID, nil); err != nil {
			t.Fatalf("seed check-in %d: %v", i, err)
		}
		e.clock.Add(24 * time.Hour)
	}

	resp, body := e.do(t, "GET", "/v1/check-ins/history?page=2", tok, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	page := decode[struct{ CheckIns []domain.CheckIn `json:"check_ins"` }](t, body).CheckIns
	if len(page) != 2 {
		t.Fatalf("expected 2 check-ins on page 2, got %d", len(page))
	}
	if !page[0].CreatedAt.After(page[1].CreatedAt) {
		t.Errorf("expected newest first, got %v then %v", page[0].CreatedAt, page[1].CreatedAt)
	}

	resp, body = e.do(t, "GET", "/v1/check-ins/history?page=0", tok, nil)
	if n := len(decode[struct{ CheckIns []domain.CheckIn `json:"check_ins"` }](t, body).CheckIns); n != 20 {
		t.Errorf("page 0 should clamp to page 1, got %d items", n)
	}

	resp, body = e.do(t, "GET", "/v1/check-ins/metrics", tok, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if m := decode[domain.UserMetrics](t, body); m.CheckInsCount != 22 {
		t.Errorf("check_ins_count = %d, want 22", m.CheckInsCount)
	}
}

// ---- GraphQL ----

func TestGraphQL_Metrics(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)

	resp, body := e.do(t, "POST", "/graphql", tok, map[string]string{
		"query": "{ checkInMetrics { check_ins_count } me { role } }",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Data struct {
			CheckInMetrics struct {
				Count int `json:"check_ins_count"`
			} `json:"checkInMetrics"`
			Me struct {
				Role string `json:"role"`
			} `json:"me"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Data.CheckInMetrics.Count != 0 || result.Data.Me.Role != "MEMBER" {
		t.Errorf("unexpected data %+v", result.Data)
	}
}

func TestGraphQL_ValidateRequiresAdmin(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.login(t, domain.RoleMember)

	_, body := e.do(t, "POST", "/graphql", tok, map[string]string{
		"query": `mutation { validateCheckIn(id: "x") { id } }`,
	})
	if !strings.Contains(string(body), "insufficient permissions") {
		t.Errorf("expected permission error, got %s", body)
	}
}

func TestGraphQL_RequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, "POST", "/graphql", "", map[string]string{"query": "{ me { id } }"})
	expectError(t, resp, body, 401, "unauthorized")
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, "GET", "/v1/health", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if result := decode[map[string]any](t, body); result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	e := newTestEnv(t)

	// DB, NATS, Cache are nil → should report not ready
	resp, _ := e.do(t, "GET", "/v1/ready", "", nil)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- X-API-Version header ----

func TestAPIVersionHeader(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, "GET", "/v1/health", "", nil)
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
	if v := resp.Header.Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("expected nosniff, got %q", v)
	}
}

func TestReady_ReportsChecks(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, "GET", "/v1/ready", "", nil)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	result := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, body)
	if result.Status != "not ready" {
		t.Errorf("expected not ready, got %q", result.Status)
	}
	for _, name := range []string{"database", "nats", "cache"} {
		if result.Checks[name] != "not configured" {
			t.Errorf("%s: expected not configured, got %q", name, result.Checks[name])
		}
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected no-cache on readiness, got %q", cc)
	}
}

// ---- Docs and conditional GET ----

func TestDocs_ServesEmbeddedSpec(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, "GET", "/docs/openapi.yaml", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "title: GymPass API") {
		t.Errorf("expected OpenAPI document, got %.80s", body)
	}

	resp, body = e.do(t, "GET", "/docs", "", nil)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "swagger-ui") {
		t.Errorf("expected Swagger UI page, got %d", resp.StatusCode)
	}
}

func TestETag_NotModified(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, domain.RoleMember)
	e.gym(t, "JavaScript Gym", -27.2092052, -49.6401091)

	resp, _ := e.do(t, "GET", "/v1/gyms/search?q=javascript", token, nil)
	etag := resp.Header.Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak ETag, got %q", etag)
	}

	req := httptest.NewRequest("GET", "/v1/gyms/search?q=javascript", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-None-Match", `"other", `+etag)
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNotModified {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); len(body) != 0 {
		t.Errorf("expected empty body, got %s", body)
	}
}

func TestETag_SkipsNoStore(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login(t, domain.RoleMember)

	resp, _ := e.do(t, "GET", "/v1/check-ins/metrics", token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		t.Errorf("expected no ETag on member data, got %q", etag)
	}
}

// TestAccessLogMiddleware checks one structured line is written per request.
func TestAccessLogMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusTeapot).JSON(fiber.Map{"ok": true})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/items/42", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusTeapot {
		t.Errorf("expected 418, got %d", resp.StatusCode)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	want := map[string]any{"level": "WARN", "path": "/items/42", "route": "/items/:id", "status": float64(418)}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, line[k])
		}
	}
}
