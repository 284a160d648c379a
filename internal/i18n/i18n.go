package i18n

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Language is a supported UI language.
type Language string

const (
	English Language = "en"
	Punjabi Language = "pa"
)

// ParseLanguage accepts "en" or "pa" in any casing.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, nil
	case Punjabi:
		return Punjabi, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

//go:embed translations.yaml
var translationsYAML []byte

// Catalog maps language to key to text.
type Catalog struct {
	tables map[Language]map[string]string
}

// Load parses a YAML document of the form lang -> key -> text.
func Load(raw []byte) (*Catalog, error) {
	var tables map[Language]map[string]string
	if err := yaml.Unmarshal(raw, &tables); err != nil {
		return nil, fmt.Errorf("parse translations: %w", err)
	}
	if len(tables[English]) == 0 {
		return nil, fmt.Errorf("translations: missing %q table", English)
	}
	return &Catalog{tables: tables}, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Load(translationsYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// T returns the text for key in lang, or key itself when it is missing.
func (c *Catalog) T(lang Language, key string) string {
	if v, ok := c.tables[lang][key]; ok && v != "" {
		return v
	}
	return key
}

// Table returns a copy of the table for lang.
func (c *Catalog) Table(lang Language) map[string]string {
	src := c.tables[lang]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
