package middleware

import (
	"net/http"

	"finitefield.org/marketing-web/internal/i18n"
	"finitefield.org/marketing-web/internal/routes"
)

// LangCookie remembers the last visited page language.
const LangCookie = "hl"

// Locale derives the page language. Localized paths are authoritative and
// are remembered in the hl cookie; other paths use the cookie, then
// Accept-Language.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var lang routes.Lang
			if routes.IsLocalizedPath(r.URL.Path) {
				lang = routes.LanguageOf(r.URL.Path)
				if c, err := r.Cookie(LangCookie); err != nil || c.Value != string(lang) {
					http.SetCookie(w, &http.Cookie{
						Name:     LangCookie,
						Value:    string(lang),
						Path:     "/",
						MaxAge:   365 * 24 * 60 * 60,
						SameSite: http.SameSiteLaxMode,
					})
				}
			} else {
				lang = PreferredLang(r, bundle)
			}
			w.Header().Set("Content-Language", string(lang))
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}

// PreferredLang picks a language for paths that carry none.
func PreferredLang(r *http.Request, bundle *i18n.Bundle) routes.Lang {
	if c, err := r.Cookie(LangCookie); err == nil {
		if lang, ok := routes.ParseLang(c.Value); ok {
			return lang
		}
	}
	if bundle != nil {
		if lang, ok := routes.ParseLang(bundle.Resolve(r.Header.Get("Accept-Language"))); ok {
			return lang
		}
	}
	return routes.DefaultLang
}
