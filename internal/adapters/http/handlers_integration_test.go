//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	handler "github.com/samirrijal/gympass/internal/adapters/http"
	"github.com/samirrijal/gympass/internal/adapters/postgres"
	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/usecases"
	"github.com/samirrijal/gympass/migrations"
)

// Run with: GYMPASS_TEST_DSN=postgres://... go test -tags integration ./internal/adapters/http/

// setupTestDB connects to the test database, applies migrations and clears data.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	dsn := os.Getenv("GYMPASS_TEST_DSN")
	if dsn == "" {
		t.Skip("GYMPASS_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, `TRUNCATE check_ins, gyms, users CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

// setupIntegrationApp wires the router to Postgres repositories, no cache.
func setupIntegrationApp(t *testing.T, db *postgres.DB) *fiber.App {
	t.Helper()
	clk := clock.New()
	gyms := postgres.NewGymRepo(db, clk)
	checkIns := postgres.NewCheckInRepo(db, clk, time.UTC)
	users := postgres.NewUserRepo(db, clk)

	deps := &handler.Dependencies{
		RegisterUser:    usecases.NewRegisterUser(users, bcrypt.MinCost),
		Authenticate:    usecases.NewAuthenticate(users),
		UserProfile:     usecases.NewGetUserProfile(users),
		CreateGym:       usecases.NewCreateGym(gyms, nil, clk),
		SearchGyms:      usecases.NewSearchGyms(gyms, nil),
		NearbyGyms:      usecases.NewFetchNearbyGyms(gyms, nil),
		CreateCheckIn:   usecases.NewCreateCheckIn(checkIns, gyms, clk, nil),
		ValidateCheckIn: usecases.NewValidateCheckIn(checkIns, clk, nil),
		CheckInHistory:  usecases.NewFetchCheckInHistory(checkIns),
		UserMetrics:     usecases.NewGetUserMetrics(checkIns),
		Tokens:          handler.NewTokenIssuer(testSecret, time.Hour, clk),
		DB:              db,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp.StatusCode, readBody(t, resp.Body)
}

// signUp registers a user, optionally promotes it, and returns a session token.
func signUp(t *testing.T, app *fiber.App, db *postgres.DB, email string, role domain.Role) string {
	t.Helper()
	if code, body := call(t, app, "POST", "/v1/users", "",
		`{"name":"Test","email":"`+email+`","password":"123456"}`); code != 201 {
		t.Fatalf("register %s: %d %s", email, code, body)
	}
	if role == domain.RoleAdmin {
		if _, err := db.Pool.Exec(context.Background(), `UPDATE users SET role = 'ADMIN' WHERE email = $1`, email); err != nil {
			t.Fatalf("promote: %v", err)
		}
	}

	code, body := call(t, app, "POST", "/v1/sessions", "", `{"email":"`+email+`","password":"123456"}`)
	if code != 200 {
		t.Fatalf("session %s: %d %s", email, code, body)
	}
	var s struct{ Token string }
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	return s.Token
}

// TestCheckInFlow_Integration walks a member through gym lookup, check-in and validation.
func TestCheckInFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	app := setupIntegrationApp(t, db)

	admin := signUp(t, app, db, "admin@example.com", domain.RoleAdmin)
	member := signUp(t, app, db, "member@example.com", domain.RoleMember)

	code, body := call(t, app, "POST", "/v1/gyms", admin,
		`{"title":"TypeScript Gym","latitude":-27.2092052,"longitude":-49.6401091}`)
	if code != 201 {
		t.Fatalf("create gym: %d %s", code, body)
	}
	var created struct{ Gym domain.Gym }
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}

	code, body = call(t, app, "GET", "/v1/gyms/nearby?latitude=-27.2092052&longitude=-49.6401091", member, "")
	if code != 200 || !strings.Contains(string(body), created.Gym.ID) {
		t.Fatalf("nearby: %d %s", code, body)
	}

	code, body = call(t, app, "GET", "/v1/gyms/search?q=typescript", member, "")
	if code != 200 || !strings.Contains(string(body), created.Gym.ID) {
		t.Fatalf("search: %d %s", code, body)
	}

	pos := `{"latitude":-27.2092052,"longitude":-49.6401091}`
	code, body = call(t, app, "POST", "/v1/gyms/"+created.Gym.ID+"/check-ins", member, pos)
	if code != 201 {
		t.Fatalf("check in: %d %s", code, body)
	}
	var checkIn struct {
		CheckIn domain.CheckIn `json:"check_in"`
	}
	if err := json.Unmarshal(body, &checkIn); err != nil {
		t.Fatal(err)
	}

	if code, body = call(t, app, "POST", "/v1/gyms/"+created.Gym.ID+"/check-ins", member, pos); code != 409 {
		t.Fatalf("second check in: expected 409, got %d %s", code, body)
	}

	code, body = call(t, app, "PATCH", "/v1/check-ins/"+checkIn.CheckIn.ID+"/validate", admin, "")
	if code != 200 {
		t.Fatalf("validate: %d %s", code, body)
	}

	code, body = call(t, app, "GET", "/v1/check-ins/metrics", member, "")
	if code != 200 || !strings.Contains(string(body), `"check_ins_count":1`) {
		t.Fatalf("metrics: %d %s", code, body)
	}
}

// TestReady_Integration expects readiness once the database is reachable.
func TestReady_Integration(t *testing.T) {
	db := setupTestDB(t)
	app := setupIntegrationApp(t, db)

	if code, body := call(t, app, "GET", "/v1/ready", "", ""); code != 200 {
		t.Fatalf("expected 200, got %d %s", code, body)
	}
}
