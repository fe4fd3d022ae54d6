package middleware

import (
	"net/http"

	"github.com/conduit-lang/fieldinfo/internal/language"
)

// Language negotiates the request language from ?lang= and Accept-Language,
// stores it in the request context and sets Content-Language
func Language(n *language.Negotiator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			langcode := n.ResolveRequest(r)
			w.Header().Set("Content-Language", langcode)
			next.ServeHTTP(w, r.WithContext(language.WithLangcode(r.Context(), langcode)))
		})
	}
}
