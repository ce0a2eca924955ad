package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"facilitywatch/internal/service"
	"facilitywatch/internal/sessioncache"
)

type stubTokens struct {
	claims *service.Claims
	err    error
}

func (s *stubTokens) ValidateToken(token string) (*service.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

type stubSessions struct {
	err error
}

func (s *stubSessions) ValidateSession(ctx context.Context, accessToken string) (*sessioncache.Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &sessioncache.Entry{SessionID: 1, UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func okHandler(t *testing.T, gotClaims **service.Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotClaims != nil {
			claims, _ := ClaimsFromContext(r.Context())
			*gotClaims = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingAndMalformedHeaders(t *testing.T) {
	handler := Chain(okHandler(t, nil), Auth(&stubTokens{}, &stubSessions{}))

	for _, header := range []string{"", "Basic abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	tokens := &stubTokens{claims: &service.Claims{UserID: 1, Role: "user"}}
	sessions := &stubSessions{err: errors.New("revoked")}
	handler := Chain(okHandler(t, nil), Auth(tokens, sessions))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthInjectsClaimsAndToken(t *testing.T) {
	tokens := &stubTokens{claims: &service.Claims{UserID: 7, Name: "alex", Role: "admin"}}
	var gotClaims *service.Claims
	handler := Chain(okHandler(t, &gotClaims), Auth(tokens, &stubSessions{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotClaims == nil || gotClaims.UserID != 7 {
		t.Fatalf("claims not propagated: %+v", gotClaims)
	}
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	tokens := &stubTokens{claims: &service.Claims{UserID: 1, Role: "user"}}
	handler := Chain(okHandler(t, nil), Auth(tokens, &stubSessions{}), RequireRole("admin"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	tokens.claims.Role = "admin"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rec.Code)
	}
}
