// Пакет providers приводит ссылки на видеохостинги к каноническому описанию встраивания.
//
// Каждый провайдер задается записью в таблице: допустимые хосты, формы пути или параметра запроса,
// проверка идентификатора и шаблон адреса плеера. Добавление провайдера не требует нового кода.
package providers

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Descriptor каноническое описание встраивания.
type Descriptor struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Src      string `json:"src"`
	Allow    string `json:"allow,omitempty"`
}

// Attrs атрибуты узла embed для этого описания. Размеры не задаются: встраивание адаптивное.
func (d *Descriptor) Attrs() map[string]any {
	attrs := map[string]any{
		"src":      d.Src,
		"provider": d.Provider,
		"id":       d.ID,
	}
	if d.Allow != "" {
		attrs["allow"] = d.Allow
	}
	return attrs
}

// Shape одна форма ссылки провайдера. Идентификатор берется из первой группы Path
// либо, если задан Query, из параметра запроса.
type Shape struct {
	Hosts []string
	Path  *regexp.Regexp
	Query string
}

type Options struct {
	// ParentHost домен страницы, требуемый некоторыми плеерами (Twitch)
	ParentHost string
}

type Provider struct {
	Name   string
	Shapes []Shape
	ID     *regexp.Regexp
	// BareID провайдер принимает голый идентификатор без URL
	BareID bool
	Allow  string
	Embed  func(id string, opts Options) string
}

const defaultAllow = "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture; web-share"

var (
	YouTube = Provider{
		Name: "youtube",
		Shapes: []Shape{
			{Hosts: []string{"youtu.be"}, Path: regexp.MustCompile(`^/([^/]+)/?$`)},
			{Hosts: []string{"youtube.com", "music.youtube.com", "youtube-nocookie.com"}, Path: regexp.MustCompile(`^/watch/?$`), Query: "v"},
			{Hosts: []string{"youtube.com", "youtube-nocookie.com"}, Path: regexp.MustCompile(`^/(?:shorts|embed|live|v)/([^/]+)/?$`)},
		},
		ID:     regexp.MustCompile(`^[A-Za-z0-9_-]{6,64}$`),
		BareID: true,
		Allow:  defaultAllow,
		Embed: func(id string, _ Options) string {
			return "https://www.youtube.com/embed/" + id
		},
	}

	TikTok = Provider{
		Name: "tiktok",
		Shapes: []Shape{
			{Hosts: []string{"tiktok.com"}, Path: regexp.MustCompile(`^/@[^/]+/video/(\d+)/?$`)},
			{Hosts: []string{"tiktok.com"}, Path: regexp.MustCompile(`^/embed(?:/v2)?/(\d+)/?$`)},
		},
		ID:    regexp.MustCompile(`^\d{8,25}$`),
		Allow: "encrypted-media; fullscreen",
		Embed: func(id string, _ Options) string {
			return "https://www.tiktok.com/embed/v2/" + id
		},
	}

	Vimeo = Provider{
		Name: "vimeo",
		Shapes: []Shape{
			{Hosts: []string{"vimeo.com"}, Path: regexp.MustCompile(`^/(?:channels/[^/]+/|groups/[^/]+/videos/|album/\d+/video/)?(\d+)(?:/[0-9a-f]+)?/?$`)},
			{Hosts: []string{"player.vimeo.com"}, Path: regexp.MustCompile(`^/video/(\d+)/?$`)},
		},
		ID:    regexp.MustCompile(`^\d{5,12}$`),
		Allow: "autoplay; fullscreen; picture-in-picture",
		Embed: func(id string, _ Options) string {
			return "https://player.vimeo.com/video/" + id
		},
	}

	TwitchClip = Provider{
		Name: "twitch",
		Shapes: []Shape{
			{Hosts: []string{"clips.twitch.tv"}, Path: regexp.MustCompile(`^/embed/?$`), Query: "clip"},
			{Hosts: []string{"clips.twitch.tv"}, Path: regexp.MustCompile(`^/([A-Za-z0-9_-]+)/?$`)},
			{Hosts: []string{"twitch.tv"}, Path: regexp.MustCompile(`^/[^/]+/clip/([A-Za-z0-9_-]+)/?$`)},
		},
		ID:    regexp.MustCompile(`^[A-Za-z0-9_-]{4,100}$`),
		Allow: "autoplay; fullscreen",
		Embed: func(id string, opts Options) string {
			parent := opts.ParentHost
			if parent == "" {
				parent = "localhost"
			}
			return "https://clips.twitch.tv/embed?clip=" + url.QueryEscape(id) + "&parent=" + url.QueryEscape(parent)
		},
	}
)

// Normalizer набор провайдеров с общими параметрами.
type Normalizer struct {
	providers []Provider
	opts      Options
}

func NewNormalizer(opts Options, providers ...Provider) *Normalizer {
	if len(providers) == 0 {
		providers = []Provider{YouTube, TikTok, Vimeo, TwitchClip}
	}
	return &Normalizer{providers: providers, opts: opts}
}

var defaultNormalizer = NewNormalizer(Options{})

// Default нормализатор со встроенными провайдерами.
func Default() *Normalizer {
	return defaultNormalizer
}

// Normalize через нормализатор по умолчанию.
func Normalize(raw string) *Descriptor {
	return defaultNormalizer.Normalize(raw)
}

func (n *Normalizer) Providers() []Provider {
	return slices.Clone(n.providers)
}

func (n *Normalizer) Provider(name string) (Provider, bool) {
	for _, p := range n.providers {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}

// Hosts все хосты, на которые ссылаются встраивания провайдеров.
func (n *Normalizer) Hosts() []string {
	var hosts []string
	for _, p := range n.providers {
		for _, s := range p.Shapes {
			for _, h := range s.Hosts {
				if !slices.Contains(hosts, h) {
					hosts = append(hosts, h)
				}
			}
		}
		if u, err := url.Parse(p.Embed("x", n.opts)); err == nil {
			if h := trimHost(u.Hostname()); !slices.Contains(hosts, h) {
				hosts = append(hosts, h)
			}
		}
	}
	return hosts
}

// Normalize распознает ссылку или голый идентификатор. Нераспознанный ввод дает nil, а не ошибку.
func (n *Normalizer) Normalize(raw string) *Descriptor {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if !strings.ContainsAny(raw, "/.:?") {
		for _, p := range n.providers {
			if p.BareID && p.ID.MatchString(raw) {
				return n.describe(p, raw)
			}
		}
		return nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	host := trimHost(u.Hostname())

	for _, p := range n.providers {
		for _, shape := range p.Shapes {
			if !slices.Contains(shape.Hosts, host) {
				continue
			}
			m := shape.Path.FindStringSubmatch(u.Path)
			if m == nil {
				continue
			}
			var id string
			if shape.Query != "" {
				id = u.Query().Get(shape.Query)
			} else if len(m) > 1 {
				id = m[1]
			}
			if p.ID.MatchString(id) {
				return n.describe(p, id)
			}
		}
	}
	return nil
}

func (n *Normalizer) describe(p Provider, id string) *Descriptor {
	return &Descriptor{
		Provider: p.Name,
		ID:       id,
		Src:      p.Embed(id, n.opts),
		Allow:    p.Allow,
	}
}

func trimHost(host string) string {
	host = strings.ToLower(host)
	for _, prefix := range []string{"www.", "m."} {
		host = strings.TrimPrefix(host, prefix)
	}
	return host
}
