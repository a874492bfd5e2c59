package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gastos/internal/core"
	"gastos/internal/repository"
	"gastos/internal/repository/memory"
)

func newIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	i, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return i
}

func TestTokenRoundTrip(t *testing.T) {
	i := newIssuer(t)
	token, err := i.Issue(core.User{ID: 42, Email: "ana@example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := i.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "ana@example.com" || claims.Name != "Ana" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenRejections(t *testing.T) {
	i := newIssuer(t)
	token, _ := i.Issue(core.User{ID: 1})

	other, _ := NewTokenIssuer("other-secret", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret err = %v", err)
	}

	expired := newIssuer(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue(core.User{ID: 1})
	if _, err := i.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired err = %v", err)
	}

	if _, err := i.Parse("fake_token_1_123"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage err = %v", err)
	}

	if _, err := NewTokenIssuer(" ", time.Hour); err == nil {
		t.Errorf("empty secret must be rejected")
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer   ", "", true},
		{"Basic abc", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractBearer(tt.header)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ExtractBearer(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("segredo1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "segredo1" {
		t.Fatalf("password stored in clear")
	}
	if err := CheckPassword(hash, "segredo1"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := CheckPassword(hash, "errado"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("mismatch err = %v", err)
	}
}

func TestServiceRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), newIssuer(t))

	sess, err := svc.Register(ctx, "Ana", "Ana@Example.com", "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.Token == "" || sess.User.Email != "ana@example.com" {
		t.Fatalf("unexpected session %+v", sess)
	}

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "segredo1"); !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("duplicate err = %v", err)
	}
	for _, bad := range [][3]string{{"", "a@b.c", "segredo1"}, {"Ana", "nope", "segredo1"}, {"Ana", "x@y.z", "123"}} {
		if _, err := svc.Register(ctx, bad[0], bad[1], bad[2]); !errors.Is(err, ErrInvalidRegistration) {
			t.Errorf("Register(%v) err = %v", bad, err)
		}
	}

	if _, err := svc.Login(ctx, "ana@example.com", "errado"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "segredo1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}
	login, err := svc.Login(ctx, "ana@example.com", "segredo1")
	if err != nil || login.User.ID != sess.User.ID {
		t.Fatalf("login: %+v %v", login, err)
	}

	me, err := svc.Me(ctx, login.User.ID)
	if err != nil || me.Name != "Ana" {
		t.Fatalf("me: %+v %v", me, err)
	}
}

func TestMiddleware(t *testing.T) {
	i := newIssuer(t)
	token, _ := i.Issue(core.User{ID: 9, Email: "x@y.z"})

	var seen int64
	h := Middleware(i)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := FromContext(r.Context())
		seen = c.UserID
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		status   int
		bodyCode string
	}{
		{"no header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"valid", "Bearer " + token, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if tt.bodyCode != "" && !strings.Contains(rr.Body.String(), tt.bodyCode) {
				t.Fatalf("body %q missing %s", rr.Body.String(), tt.bodyCode)
			}
		})
	}
	if seen != 9 {
		t.Fatalf("handler saw user %d, want 9", seen)
	}
}
