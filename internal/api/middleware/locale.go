package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/qworpa/qworpa/internal/config"
	"golang.org/x/text/language"
)

type localeKey struct{}

// LocaleContextKey is the gin context key holding the negotiated language.
const LocaleContextKey = "locale"

// Locale negotiates the response language from the Accept-Language header
// against the configured languages. The default language comes first.
func Locale(cfg config.I18nConfig) gin.HandlerFunc {
	tags := []language.Tag{language.Make(cfg.LanguageCode)}
	for _, l := range cfg.Languages {
		tags = append(tags, language.Make(l.Code))
	}
	matcher := language.NewMatcher(tags)

	return func(c *gin.Context) {
		_, index := language.MatchStrings(matcher, c.Request.Header.Get("Accept-Language"))
		tag := tags[index]

		c.Set(LocaleContextKey, tag)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), localeKey{}, tag))
		c.Header("Content-Language", tag.String())
		c.Header("Vary", "Accept-Language")
		c.Next()
	}
}

// LocaleFrom returns the language negotiated for the request, or und.
func LocaleFrom(ctx context.Context) language.Tag {
	tag, _ := ctx.Value(localeKey{}).(language.Tag)
	return tag
}
