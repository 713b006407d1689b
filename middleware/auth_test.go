package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"youngin-studio/core"
	"youngin-studio/handlers/auth"
)

func TestAuthJWT(t *testing.T) {
	auth.SetSecret([]byte("middleware-secret"))
	token, err := auth.IssueToken(&core.User{Subject: "u-1", Name: "Ada"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}

	var seen *core.User
	handler := AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"invalid", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	if seen == nil || seen.Subject != "u-1" || seen.Name != "Ada" {
		t.Errorf("handler saw user %+v", seen)
	}
}

func TestUserFrom_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserFrom(req.Context()); ok {
		t.Error("UserFrom() should report false without claims")
	}
}
