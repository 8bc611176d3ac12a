package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	return &AuthService{Users: newTestStore(t), Secret: []byte("test-secret"), TTL: time.Hour}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()

	u, tok, err := s.Register(ctx, "  Alice@Example.com ", "correct-horse", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "alice@example.com" || u.Role != domain.RoleParticipant {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "correct-horse" {
		t.Fatalf("password must be hashed")
	}
	if tok == "" {
		t.Fatalf("expected token")
	}

	got, tok2, err := s.Login(ctx, "ALICE@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID || tok2 == "" {
		t.Fatalf("login returned %+v", got)
	}

	claims, err := s.ParseToken(tok2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != u.ID || claims.Role != domain.RoleParticipant || claims.Email != u.Email {
		t.Fatalf("claims: %+v", claims)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"bad email", "not-an-email", "longenough"},
		{"empty email", "", "longenough"},
		{"short password", "a@b.co", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := s.Register(ctx, tc.email, tc.password, "")
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()
	if _, _, err := s.Register(ctx, "dup@example.com", "password1", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, _, err := s.Register(ctx, "DUP@example.com", "password2", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()
	if _, _, err := s.Register(ctx, "x@example.com", "password1", ""); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Login(ctx, "x@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, _, err := s.Login(ctx, "nobody@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	s := newAuth(t)
	u := &domain.User{ID: "u1", Email: "u@example.com", Role: domain.RoleAdmin}

	t.Run("expired", func(t *testing.T) {
		past := &AuthService{Secret: s.Secret, TTL: time.Minute, Now: func() time.Time { return time.Now().Add(-time.Hour) }}
		tok, err := past.IssueToken(u)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := &AuthService{Secret: []byte("other"), TTL: time.Hour}
		tok, _ := other.IssueToken(u)
		if _, err := s.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: "u1"}).SignedString(s.Secret)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := s.ParseToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestAuthService_Me(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()
	u, _, err := s.Register(ctx, "me@example.com", "password1", "Me")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Me(ctx, u.ID)
	if err != nil || got.Email != "me@example.com" {
		t.Fatalf("Me: %+v %v", got, err)
	}
	if _, err := s.Me(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()

	created, err := s.EnsureAdmin(ctx, "root@example.com", "supersecret")
	if err != nil || !created {
		t.Fatalf("first EnsureAdmin: created=%v err=%v", created, err)
	}
	created, err = s.EnsureAdmin(ctx, "root@example.com", "supersecret")
	if err != nil || created {
		t.Fatalf("second EnsureAdmin: created=%v err=%v", created, err)
	}
	u, _, err := s.Login(ctx, "root@example.com", "supersecret")
	if err != nil || u.Role != domain.RoleAdmin {
		t.Fatalf("admin login: %+v %v", u, err)
	}

	if created, err := s.EnsureAdmin(ctx, "", ""); err != nil || created {
		t.Fatalf("blank EnsureAdmin should be a no-op")
	}
}
