package api

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const adminRealm = `Basic realm="bizchat admin", charset="UTF-8"`

// AdminAuth guards admin endpoints with HTTP Basic credentials checked
// against a bcrypt hash. A nil or unconfigured AdminAuth rejects everything.
type AdminAuth struct {
	user string
	hash []byte
}

func NewAdminAuth(user, passwordHash string) *AdminAuth {
	if user == "" || passwordHash == "" {
		return nil
	}
	return &AdminAuth{user: user, hash: []byte(passwordHash)}
}

func (a *AdminAuth) Enabled() bool {
	return a != nil
}

func (a *AdminAuth) Check(user, password string) bool {
	if a == nil {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}

func (a *AdminAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "export_disabled"})
			return
		}
		user, password, ok := r.BasicAuth()
		if !ok || !a.Check(user, password) {
			w.Header().Set("WWW-Authenticate", adminRealm)
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}
