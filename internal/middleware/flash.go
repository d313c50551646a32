package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// FlashMessage is a one-shot message shown on the next rendered page.
// Type is "success" or "error".
type FlashMessage struct {
	Type    string
	Message string
}

type flashKey struct{}

const flashCookie = "flash"

// Flash reads the "flash" cookie, parses its "type:" prefix, stores the
// message in the request context and clears the cookie so it is shown once.
func Flash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(flashCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

		raw, _ := url.QueryUnescape(cookie.Value)
		flash := &FlashMessage{Type: "error", Message: raw}
		if after, ok := strings.CutPrefix(raw, "success:"); ok {
			flash.Type = "success"
			flash.Message = after
		} else if after, ok := strings.CutPrefix(raw, "error:"); ok {
			flash.Message = after
		}

		ctx := context.WithValue(r.Context(), flashKey{}, flash)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetFlash queues a message for the next page the browser loads.
func SetFlash(w http.ResponseWriter, flashType, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(flashType + ":" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// FlashFromContext returns the message consumed by Flash for this request,
// or nil.
func FlashFromContext(ctx context.Context) *FlashMessage {
	f, _ := ctx.Value(flashKey{}).(*FlashMessage)
	return f
}
