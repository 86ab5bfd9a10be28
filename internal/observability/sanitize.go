package observability

import (
	"strings"
	"unicode"
)

// Log field caps. Paths of the site stay well below routeLimit; anything
// longer is a crawler or an attack.
const (
	routeLimit     = 180
	methodLimit    = 10
	valueLimit     = 64
	userAgentLimit = 200
)

// clip removes control characters and keeps at most limit runes.
func clip(value string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range value {
		if n == limit {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// SanitizeRoute reduces a path or route pattern to what may be logged. Query
// strings and fragments are dropped because form pages carry prefilled
// contact details there.
func SanitizeRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	route = clip(route, routeLimit)
	if route == "" {
		return "/"
	}
	return route
}

// SanitizeMethod normalizes an HTTP method for logging.
func SanitizeMethod(method string) string {
	return strings.ToUpper(clip(method, methodLimit))
}

// SanitizeValue caps a short client supplied token such as an analytics
// event name.
func SanitizeValue(v string) string {
	return clip(strings.TrimSpace(v), valueLimit)
}

func sanitizeUserAgent(ua string) string {
	return clip(ua, userAgentLimit)
}
