package markup

import (
	"regexp"
	"strings"

	"github.com/aisa-it/richdoc/internal/richdoc/editor/providers"
	"github.com/microcosm-cc/bluemonday"
)

var (
	colorRegexp = regexp.MustCompile(`^(#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|rgba?\(\s*\d+\s*,\s*\d+\s*,\s*\d+\s*(?:,\s*[\d.]+\s*)?\)|[a-zA-Z]+)$`)
	sizeRegexp  = regexp.MustCompile(`^(\d+(\.\d+)?(px|em|rem|pt|%)?|auto|inherit)$`)
	intRegexp   = regexp.MustCompile(`^\d+$`)
	listRegexp  = regexp.MustCompile(`^\d+(,\d+)*$`)
	allowRegexp = regexp.MustCompile(`^[a-z-]+(;\s*[a-z-]+)*;?$`)
	langRegexp  = regexp.MustCompile(`^language-[\w+#-]+$`)
)

// Sanitizer очищает внешнюю разметку (вставка, SetMarkup) до того, что может выразить
// документ. Фреймы допускаются только с хостов известных провайдеров.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer(normalizer *providers.Normalizer) *Sanitizer {
	p := bluemonday.UGCPolicy()

	p.AllowAttrs("data-embed", "data-responsive", "data-provider", "data-id", "style").OnElements("div")
	p.AllowElements("iframe")
	p.AllowAttrs("src").Matching(frameSrcRegexp(normalizer.Hosts())).OnElements("iframe")
	p.AllowAttrs("allow").Matching(allowRegexp).OnElements("iframe")
	p.AllowAttrs("allowfullscreen", "frameborder", "width", "height").OnElements("iframe")

	p.AllowElements("video")
	p.AllowAttrs("src", "controls", "style").OnElements("video")

	p.AllowAttrs("data-color", "style").OnElements("mark")
	p.AllowAttrs("style").OnElements("span", "p", "h1", "h2", "h3", "h4", "h5", "h6", "td", "th", "img")
	p.AllowAttrs("colspan", "rowspan").Matching(intRegexp).OnElements("td", "th")
	p.AllowAttrs("data-colwidth").Matching(listRegexp).OnElements("td", "th")
	p.AllowAttrs("start").Matching(intRegexp).OnElements("ol")
	p.AllowAttrs("class").Matching(langRegexp).OnElements("code", "pre")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")

	p.AllowStyles("color", "background-color").Matching(colorRegexp).Globally()
	p.AllowStyles("width", "height", "min-height", "font-size").Matching(sizeRegexp).Globally()
	p.AllowStyles("text-align").Matching(bluemonday.CellAlign).Globally()
	p.AllowStyles("font-weight").Matching(regexp.MustCompile(`^(normal|bold|bolder|[1-9]00)$`)).OnElements("span", "b")
	p.AllowStyles("font-style").Matching(regexp.MustCompile(`^(normal|italic)$`)).OnElements("span")
	p.AllowStyles("text-decoration").Matching(regexp.MustCompile(`^(underline|line-through|underline line-through|none)$`)).OnElements("span")

	p.AllowDataURIImages()
	p.AllowURLSchemes("blob")

	return &Sanitizer{policy: p}
}

var defaultSanitizer = NewSanitizer(providers.Default())

// Sanitize очищает разметку политикой для провайдеров по умолчанию.
func Sanitize(markup string) string {
	return defaultSanitizer.Sanitize(markup)
}

func (s *Sanitizer) Sanitize(markup string) string {
	return s.policy.Sanitize(markup)
}

func frameSrcRegexp(hosts []string) *regexp.Regexp {
	quoted := make([]string, len(hosts))
	for i, h := range hosts {
		quoted[i] = regexp.QuoteMeta(h)
	}
	return regexp.MustCompile(`^https://(?:www\.)?(?:` + strings.Join(quoted, "|") + `)(?:/|$|\?)`)
}
