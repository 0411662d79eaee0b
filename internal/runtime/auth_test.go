package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func serveWithAuth(t *testing.T, secret []byte, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seen string
	e.GET("/guarded", func(c echo.Context) error {
		seen, _ = SubjectFromContext(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}, EchoAuthMiddleware(secret))

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestEchoAuthMiddlewareAcceptsSignedToken(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := SignJWT("admin", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	rec, sub := serveWithAuth(t, secret, "Bearer "+tok)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if sub != "admin" {
		t.Fatalf("expected subject admin, got %q", sub)
	}
}

func TestEchoAuthMiddlewareRejects(t *testing.T) {
	secret := []byte("s3cret")
	expired, _ := SignJWT("admin", secret, -time.Minute)
	wrongKey, _ := SignJWT("admin", []byte("other"), time.Hour)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "admin", "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, header := range map[string]string{
		"missing":   "",
		"expired":   "Bearer " + expired,
		"wrong key": "Bearer " + wrongKey,
		"alg none":  "Bearer " + unsigned,
		"garbage":   "Bearer not-a-token",
	} {
		rec, _ := serveWithAuth(t, secret, header)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	cfg := testConfig()
	dsn, err := BuildPostgresDSN(cfg)
	if err != nil {
		t.Fatalf("BuildPostgresDSN: %v", err)
	}
	if dsn != "postgres://sitechat:p%40ss@db:5432/sitechat?sslmode=disable" {
		t.Fatalf("unexpected dsn %s", dsn)
	}
	cfg.Storage.Postgres.URL = "postgres://u@h/x"
	if dsn, _ := BuildPostgresDSN(cfg); dsn != "postgres://u@h/x" {
		t.Fatalf("expected url to win, got %s", dsn)
	}
	cfg.Storage.Postgres.URL = ""
	cfg.Storage.Postgres.Host = ""
	if _, err := BuildPostgresDSN(cfg); err == nil {
		t.Fatalf("expected error without host")
	}
}
