package localization

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

const DefaultLanguage = "es"

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// Catalog renders message keys in one language, falling back to the default
// language for keys the requested one lacks.
type Catalog struct {
	lang     string
	messages map[string]string
	fallback map[string]string
}

func New(lang string) (*Catalog, error) {
	lang = normalizeLanguage(lang)
	fallback, err := loadCatalog(DefaultLanguage)
	if err != nil {
		return nil, err
	}
	if lang == DefaultLanguage {
		return &Catalog{lang: lang, messages: fallback, fallback: fallback}, nil
	}
	messages, err := loadCatalog(lang)
	if err != nil {
		return nil, err
	}
	return &Catalog{lang: lang, messages: messages, fallback: fallback}, nil
}

// Languages lists the embedded catalogs.
func Languages() []string {
	entries, err := catalogFS.ReadDir("catalogs")
	if err != nil {
		return []string{DefaultLanguage}
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	return out
}

func (c *Catalog) Language() string { return c.lang }

// Message renders key with {{name}} placeholders replaced from params. An
// unknown key renders as itself.
func (c *Catalog) Message(key string, params map[string]string) string {
	template, ok := c.messages[key]
	if !ok {
		template, ok = c.fallback[key]
	}
	if !ok {
		return key
	}
	return render(template, params)
}

// Error turns err into the single line shown to the user.
func (c *Catalog) Error(err error) string {
	if err == nil {
		return ""
	}
	var loc domain.Localizable
	if errors.As(err, &loc) {
		key := loc.MessageKey()
		if c.has(key) {
			return c.Message(key, loc.MessageParams())
		}
		if strings.HasPrefix(key, "validation.") {
			return c.Message("validation.generic", loc.MessageParams())
		}
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Message("error.not_found", nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Message("error.unauthorized", nil)
	default:
		return c.Message("error.unexpected", nil)
	}
}

func (c *Catalog) has(key string) bool {
	if _, ok := c.messages[key]; ok {
		return true
	}
	_, ok := c.fallback[key]
	return ok
}

func render(template string, params map[string]string) string {
	if len(params) == 0 {
		return template
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func loadCatalog(lang string) (map[string]string, error) {
	data, err := catalogFS.ReadFile("catalogs/" + lang + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown language %q", lang)
	}
	out := make(map[string]string)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s catalog: %w", lang, err)
	}
	return out, nil
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_."); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}
