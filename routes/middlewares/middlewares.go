package middlewares

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/dkessler/homepage/httpx"
)

const sessionCookie = "contact_session"

type ctxKey int

const sessionIDKey ctxKey = iota

// Session makes sure every visitor carries a widget session cookie, so
// each browser tab-session gets its own isolated widget state.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		cookie, err := r.Cookie(sessionCookie)
		if err == nil {
			id = cookie.Value
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Path:     "/",
				Name:     sessionCookie,
				Value:    id,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		r = r.WithContext(context.WithValue(r.Context(), sessionIDKey, id))
		next.ServeHTTP(w, r)
	})
}

// SessionID returns the visitor's session id set by Session.
func SessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}

// PageCache keeps successful GET responses and replays them until the
// content index generation moves on. With static content this makes
// every page after the first a memory copy.
func PageCache(generation func() int64) func(http.Handler) http.Handler {
	type cachedPage struct {
		gen    int64
		status int
		header http.Header
		body   []byte
	}

	var mu sync.RWMutex
	cache := map[string]*cachedPage{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			gen := generation()
			key := r.URL.Path

			mu.RLock()
			entry := cache[key]
			mu.RUnlock()
			if entry != nil && entry.gen == gen {
				header := w.Header()
				for k, v := range entry.header {
					header[k] = v
				}
				w.WriteHeader(entry.status)
				w.Write(entry.body)
				return
			}

			buf := httpx.NewResponseBuffer()
			next.ServeHTTP(buf, r)

			if buf.Status() == http.StatusOK {
				mu.Lock()
				cache[key] = &cachedPage{
					gen:    gen,
					status: buf.Status(),
					header: buf.Header().Clone(),
					body:   buf.Body(),
				}
				mu.Unlock()
			}
			buf.Flush(w)
		})
	}
}
