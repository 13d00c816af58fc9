package auth

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pulse/app/internal/database"
)

const defaultRealm = "pulse admin"

// Auth guards admin routes with HTTP basic authentication
type Auth struct {
	User   string
	Hash   []byte
	Realm  string
	logger *slog.Logger
}

// NewAuth creates a new Auth instance. An empty user disables admin access.
func NewAuth(user string, hash []byte, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Auth{
		User:   user,
		Hash:   hash,
		Realm:  defaultRealm,
		logger: logger,
	}
}

// Enabled reports whether admin credentials are configured
func (a *Auth) Enabled() bool {
	return a != nil && a.User != "" && len(a.Hash) > 0
}

// CheckCredentials validates a username and password against the stored hash
func (a *Auth) CheckCredentials(user, pass string) bool {
	if !a.Enabled() || user == "" || pass == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.Hash, []byte(pass)) == nil
	return userOK && passOK
}

// RequireAuth is middleware that requires basic auth credentials
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			writeError(w, http.StatusForbidden, "admin access is not configured")
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !a.CheckCredentials(user, pass) {
			a.logFailure(r, user)
			w.Header().Set("WWW-Authenticate", `Basic realm="`+a.Realm+`", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) logFailure(r *http.Request, user string) {
	a.logger.Warn("admin authentication failed", "remote", r.RemoteAddr, "user", user, "path", r.URL.Path)
	if database.DB == nil {
		return
	}
	_ = database.InsertLog(database.LogLevelWarn, database.LogCategorySecurity, "",
		"Failed admin authentication", "remote="+r.RemoteAddr+" user="+user)
}

// HashPassword returns the bcrypt hash of a plain-text password
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// IsHash reports whether s already looks like a bcrypt hash
func IsHash(s string) bool {
	if !strings.HasPrefix(s, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
