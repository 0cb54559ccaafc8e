// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/marketplace-backend/internal/i18n"
)

func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", preferredLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// preferredLanguage picks the first supported language of an Accept-Language
// header such as "hi-IN,hi;q=0.9,en;q=0.8". Quality values are not weighed.
func preferredLanguage(header string) string {
	supported := map[string]bool{}
	for _, lang := range i18n.GetSupportedLanguages() {
		supported[lang] = true
	}

	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		base := strings.ToLower(strings.SplitN(strings.ReplaceAll(tag, "_", "-"), "-", 2)[0])
		if supported[base] {
			return base
		}
	}
	return i18n.DefaultLang
}
