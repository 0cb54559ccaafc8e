// internal/middleware/origin.go
package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// OriginCheck rejects cross-site unsafe requests. The Origin header, or the
// Referer when Origin is absent, must name the serving host or one of the
// allowed origins. Requests carrying a bearer token are not cookie
// authenticated and pass through.
func OriginCheck(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			allowed[strings.ToLower(u.Host)] = true
		}
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			c.Next()
			return
		}
		if _, ok := bearerToken(c); ok {
			c.Next()
			return
		}

		host := requestOriginHost(c.Request)
		if host != "" && (strings.EqualFold(host, c.Request.Host) || allowed[strings.ToLower(host)]) {
			c.Next()
			return
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error": i18n.T(utils.GetLangFromContext(c), i18n.KeyOriginRejected),
		})
		c.Abort()
	}
}

func requestOriginHost(r *http.Request) string {
	for _, raw := range []string{r.Header.Get("Origin"), r.Header.Get("Referer")} {
		if raw == "" || raw == "null" {
			continue
		}
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return u.Host
		}
		return ""
	}
	return ""
}
