package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/AaronLay10/Choreo/internal/config"
)

// Role represents an authorization role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

const (
	envAdminUser    = "CHOREO_ADMIN_USER"
	envAdminPass    = "CHOREO_ADMIN_PASS"
	envOperatorUser = "CHOREO_OPERATOR_USER"
	envOperatorPass = "CHOREO_OPERATOR_PASS"
)

type authConfig struct {
	adminUser    string
	adminPass    string
	operatorUser string
	operatorPass string
	enabled      bool
}

var auth *authConfig

// InitAuth loads credentials from CHOREO_{ADMIN,OPERATOR}_{USER,PASS},
// each also readable through a *_FILE variant. Without admin credentials
// authentication is disabled and every request acts as admin.
func InitAuth() error {
	secrets, err := config.ResolveSecrets(envAdminUser, envAdminPass, envOperatorUser, envOperatorPass)
	if err != nil {
		return err
	}
	auth = &authConfig{
		adminUser:    secrets[envAdminUser],
		adminPass:    secrets[envAdminPass],
		operatorUser: secrets[envOperatorUser],
		operatorPass: secrets[envOperatorPass],
	}
	auth.enabled = auth.adminUser != "" && auth.adminPass != ""
	if !auth.enabled {
		logger.Warn("authentication disabled", "hint", "set "+envAdminUser+" and "+envAdminPass)
	}
	return nil
}

// IsAuthEnabled returns true if authentication is configured.
func IsAuthEnabled() bool {
	return auth != nil && auth.enabled
}

// authenticate returns the caller's role, or "" for bad credentials.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	if matches(user, pass, auth.adminUser, auth.adminPass) {
		return RoleAdmin
	}
	if matches(user, pass, auth.operatorUser, auth.operatorPass) {
		return RoleOperator
	}
	return ""
}

func matches(user, pass, wantUser, wantPass string) bool {
	if wantUser == "" || wantPass == "" {
		return false
	}
	// Evaluate both so timing does not reveal which half was wrong.
	u := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser))
	p := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass))
	return u&p == 1
}

// RequireRole wraps a handler and requires one of the specified roles.
func RequireRole(handler http.HandlerFunc, allowedRoles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="Choreo"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		for _, allowed := range allowedRoles {
			if role == allowed {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole wraps a handler requiring admin OR operator role.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}

// RequireAdmin wraps a handler requiring admin role only.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
