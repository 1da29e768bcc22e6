package registry

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var (
	defaultLanguages   = []string{"en"}
	defaultTerritories = []string{"US", "CA", "GB", "IE", "AU", "NZ"}
)

// Locales is the accepted-locale registry for the language-and-territory
// gate. Both the oracle's answer and the registry entries are normalized
// through BCP 47 parsing, so "EN-us", "en_US" and "en-US" all agree.
type Locales struct {
	languages   map[string]struct{}
	territories map[string]struct{}
}

// DefaultLocales returns the compiled-in accepted locales.
func DefaultLocales() *Locales {
	l, _ := newLocales(defaultLanguages, defaultTerritories)
	return l
}

// LoadLocales reads the accepted locales from a YAML file holding
// `languages:` and `territories:` lists. An empty path returns the defaults.
func LoadLocales(path string) (*Locales, error) {
	if path == "" {
		return DefaultLocales(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read locales file")
	}

	var doc struct {
		Languages   []string `yaml:"languages"`
		Territories []string `yaml:"territories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "registry: parse locales file")
	}
	if len(doc.Languages) == 0 || len(doc.Territories) == 0 {
		return nil, eris.New("registry: locales file must list languages and territories")
	}

	l, err := newLocales(doc.Languages, doc.Territories)
	if err != nil {
		return nil, eris.Wrap(err, "registry: build locales")
	}
	return l, nil
}

func newLocales(languages, territories []string) (*Locales, error) {
	l := &Locales{
		languages:   make(map[string]struct{}, len(languages)),
		territories: make(map[string]struct{}, len(territories)),
	}
	for _, raw := range languages {
		base, err := language.ParseBase(strings.TrimSpace(raw))
		if err != nil {
			return nil, eris.Wrapf(err, "invalid language %q", raw)
		}
		l.languages[base.String()] = struct{}{}
	}
	for _, raw := range territories {
		region, err := language.ParseRegion(strings.TrimSpace(raw))
		if err != nil {
			return nil, eris.Wrapf(err, "invalid territory %q", raw)
		}
		l.territories[region.String()] = struct{}{}
	}
	return l, nil
}

// AcceptsLanguage reports whether the tag's base language is accepted. A tag
// that does not parse is rejected; the gate fails closed.
func (l *Locales) AcceptsLanguage(tag string) bool {
	parsed, err := language.Parse(normalizeTag(tag))
	if err != nil {
		return false
	}
	base, conf := parsed.Base()
	if conf == language.No {
		return false
	}
	_, ok := l.languages[base.String()]
	return ok
}

// AcceptsTerritory reports whether the territory code (or the region of a
// full BCP 47 tag) is accepted. Unparseable input is rejected.
func (l *Locales) AcceptsTerritory(code string) bool {
	code = strings.TrimSpace(code)
	if region, err := language.ParseRegion(code); err == nil {
		_, ok := l.territories[region.String()]
		return ok
	}
	parsed, err := language.Parse(normalizeTag(code))
	if err != nil {
		return false
	}
	region, conf := parsed.Region()
	if conf == language.No {
		return false
	}
	_, ok := l.territories[region.String()]
	return ok
}

// Accepts applies both gates: the language must be accepted and, when a
// territory is present in the tag, the territory must be accepted too.
func (l *Locales) Accepts(tag string) bool {
	if !l.AcceptsLanguage(tag) {
		return false
	}
	parsed, err := language.Parse(normalizeTag(tag))
	if err != nil {
		return false
	}
	region, conf := parsed.Region()
	if conf >= language.High {
		_, ok := l.territories[region.String()]
		return ok
	}
	return true
}

// normalizeTag tolerates underscore-separated tags ("en_US").
func normalizeTag(tag string) string {
	return strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
}
