package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type adminSecretKey struct{}

// adminSecret returns the admin secret carried by the request: either the
// raw X-Admin-Secret header or, for session-based callers, the configured
// secret restored by RequireAdmin after cookie validation. The services
// re-check the secret on every call, so a wrong header still fails closed.
func adminSecret(r *http.Request) string {
	v, _ := r.Context().Value(adminSecretKey{}).(string)
	return v
}

// adminClaims is the JWT payload for admin session cookies.
type adminClaims struct {
	jwt.RegisteredClaims
}

// RequireAdmin is chi middleware for the admin API. Callers authenticate
// either per-request with the X-Admin-Secret header, or with the admin_token
// session cookie minted by adminLogin. Returns 401 if neither is present.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := r.Header.Get("X-Admin-Secret"); s != "" {
			ctx := context.WithValue(r.Context(), adminSecretKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		cookie, err := r.Cookie("admin_token")
		if err != nil {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		claims := &adminClaims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), adminSecretKey{}, h.adminSecret)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminLogin handles POST /api/admin/session. A valid shared secret is
// exchanged for a short-lived session cookie so browser clients do not have
// to retain the secret.
func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.AdminAuthorize(req.Secret); err != nil {
		writeServiceError(w, r, err)
		return
	}

	claims := &adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "admin_token",
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   3600,
	})
	w.WriteHeader(http.StatusNoContent)
}

// adminLogout handles DELETE /api/admin/session, clearing the session cookie.
func (h *Handler) adminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "admin_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
