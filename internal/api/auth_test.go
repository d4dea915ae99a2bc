package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func withAuth(t *testing.T, cfg *authConfig) {
	t.Helper()
	prev := auth
	auth = cfg
	t.Cleanup(func() { auth = prev })
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequireRole(t *testing.T) {
	full := &authConfig{
		adminUser:    "admin",
		adminPass:    "secret",
		operatorUser: "operator",
		operatorPass: "opsecret",
		enabled:      true,
	}
	adminOnly := &authConfig{adminUser: "admin", adminPass: "secret", enabled: true}

	tests := []struct {
		name       string
		cfg        *authConfig
		adminRoute bool
		user, pass string
		wantStatus int
	}{
		{"disabled lets anyone in", &authConfig{}, true, "", "", http.StatusOK},
		{"nil config lets anyone in", nil, true, "", "", http.StatusOK},
		{"no credentials", full, false, "", "", http.StatusUnauthorized},
		{"admin", full, false, "admin", "secret", http.StatusOK},
		{"operator", full, false, "operator", "opsecret", http.StatusOK},
		{"wrong password", full, false, "admin", "nope", http.StatusUnauthorized},
		{"swapped password", full, false, "operator", "secret", http.StatusUnauthorized},
		{"admin on admin route", full, true, "admin", "secret", http.StatusOK},
		{"operator on admin route", full, true, "operator", "opsecret", http.StatusForbidden},
		{"operator when unconfigured", adminOnly, false, "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withAuth(t, tt.cfg)

			handler := RequireAnyRole(okHandler)
			if tt.adminRoute {
				handler = RequireAdmin(okHandler)
			}
			req := httptest.NewRequest("GET", "/state", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if w.Code == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestInitAuth(t *testing.T) {
	withAuth(t, nil)
	dir := t.TempDir()
	passFile := filepath.Join(dir, "pass")
	if err := os.WriteFile(passFile, []byte("from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(envAdminUser, "admin")
	t.Setenv(envAdminPass+"_FILE", passFile)
	t.Setenv(envOperatorUser, "")
	t.Setenv(envOperatorPass, "")

	if err := InitAuth(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsAuthEnabled() {
		t.Fatal("expected auth enabled")
	}
	if auth.adminPass != "from-file" {
		t.Errorf("expected password from file, got %q", auth.adminPass)
	}

	t.Setenv(envAdminPass+"_FILE", filepath.Join(dir, "missing"))
	if err := InitAuth(); err == nil {
		t.Error("expected error for missing secret file")
	}
}

func TestInitAuth_DisabledWithoutAdmin(t *testing.T) {
	withAuth(t, nil)
	t.Setenv(envAdminUser, "")
	t.Setenv(envAdminPass, "")
	t.Setenv(envAdminPass+"_FILE", "")
	t.Setenv(envOperatorUser, "operator")
	t.Setenv(envOperatorPass, "opsecret")

	if err := InitAuth(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsAuthEnabled() {
		t.Error("operator credentials alone must not enable auth")
	}
}

func TestMatches(t *testing.T) {
	if !matches("a", "b", "a", "b") {
		t.Error("expected match")
	}
	if matches("a", "b", "a", "c") || matches("", "", "", "") {
		t.Error("unexpected match")
	}
}
