// Package identity provides anonymous per-device identity primitives. The
// anonymous id is the stable subject identifier experiment bucketing hashes
// on, so it must survive across requests within a browser session.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	AnonCookieName    = "sk_anon_id"
	ConsentCookieName = "sk_consent"
	ConsentHeaderName = "X-Tracking-Consent"
	ConsentGranted    = "granted"
	anonCookieMaxAge  = 30 * 24 * time.Hour
)

type contextKey int

const (
	subjectIDKey contextKey = iota
	consentKey
)

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// SubjectIDFromContext extracts the subject ID from the request context.
func SubjectIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(subjectIDKey).(string); ok {
		return v
	}
	return ""
}

// ConsentFromContext reports whether the request carried tracking consent.
func ConsentFromContext(ctx context.Context) bool {
	if v, ok := ctx.Value(consentKey).(bool); ok {
		return v
	}
	return false
}

// WithSubject returns a context carrying a subject ID and consent state.
// Intended for tests and non-HTTP callers of the engine.
func WithSubject(ctx context.Context, subjectID string, consent bool) context.Context {
	ctx = context.WithValue(ctx, subjectIDKey, subjectID)
	return context.WithValue(ctx, consentKey, consent)
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		setAnonCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateAnonID()
	if err != nil {
		return "", err
	}

	setAnonCookie(w, id, isDev)
	return id, nil
}

func setAnonCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// consentFromRequest checks the consent header first, then the consent
// cookie. Anything other than an explicit grant means no consent.
func consentFromRequest(r *http.Request) bool {
	if v := r.Header.Get(ConsentHeaderName); v != "" {
		return strings.EqualFold(strings.TrimSpace(v), ConsentGranted)
	}
	if c, err := r.Cookie(ConsentCookieName); err == nil {
		return strings.EqualFold(strings.TrimSpace(c.Value), ConsentGranted)
	}
	return false
}

// Middleware injects the anonymous subject ID and tracking-consent state
// into the request context.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subjectID, err := getOrCreateAnonID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), subjectIDKey, subjectID)
			ctx = context.WithValue(ctx, consentKey, consentFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
