package auth

import (
	"path"
	"strings"
)

// IsPublicPath reports whether a request path should bypass authentication.
// Matching is segment-aware after normalization, so "/health" covers
// "/health" and "/health/live" but never "/healthcheck", and traversal
// tricks like "/health/../v1/structure" resolve before comparison.
func IsPublicPath(requestPath string, publicPaths []string) bool {
	// Percent-encoded separators would survive path.Clean, so reject them
	// outright. %2f = /, %2e = .
	lower := strings.ToLower(requestPath)
	if strings.Contains(lower, "%2f") || strings.Contains(lower, "%2e") {
		return false
	}

	cleanPath := normalize(requestPath)

	for _, publicPath := range publicPaths {
		cleanPublic := normalize(publicPath)

		// A public root makes everything public.
		if cleanPublic == "/" {
			return true
		}

		if cleanPath == cleanPublic || strings.HasPrefix(cleanPath, cleanPublic+"/") {
			return true
		}
	}
	return false
}

func normalize(p string) string {
	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
