// Package gazetteer resolves free-text locations against a small static
// table of well-known place names, without any network access.
package gazetteer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/yair/conference-portal/pkg/domain"
)

//go:embed gazetteer.json
var gazetteerData []byte

// Entry is one named place. Names are lowercase.
type Entry struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Gazetteer is an immutable, ordered place table. Table order decides which
// entry wins during whole-word matching.
type Gazetteer struct {
	entries []Entry
	words   []*regexp.Regexp
	exact   map[string]domain.Coordinates
}

var defaultGazetteer = sync.OnceValues(func() (*Gazetteer, error) {
	var entries []Entry
	if err := json.Unmarshal(gazetteerData, &entries); err != nil {
		return nil, fmt.Errorf("parse embedded gazetteer: %w", err)
	}
	return New(entries), nil
})

// Default returns the gazetteer built from the embedded table.
func Default() *Gazetteer {
	g, err := defaultGazetteer()
	if err != nil {
		// embedded data is compiled in; a parse failure is a build defect
		panic(err)
	}
	return g
}

// New builds a gazetteer from entries, keeping their order. When a name
// repeats, the first occurrence wins.
func New(entries []Entry) *Gazetteer {
	g := &Gazetteer{
		entries: make([]Entry, 0, len(entries)),
		words:   make([]*regexp.Regexp, 0, len(entries)),
		exact:   make(map[string]domain.Coordinates, len(entries)),
	}
	for _, e := range entries {
		e.Name = strings.ToLower(strings.TrimSpace(e.Name))
		if e.Name == "" {
			continue
		}
		g.entries = append(g.entries, e)
		g.words = append(g.words, wholeWord(e.Name))
		if _, ok := g.exact[e.Name]; !ok {
			g.exact[e.Name] = domain.Coordinates{Lat: e.Lat, Lng: e.Lng}
		}
	}
	return g
}

const wordClass = `[\pL\pN_]`

// wholeWord matches name at Unicode word boundaries. RE2's \b only knows
// ASCII word characters, so "sendorf" would match inside "vösendorf".
func wholeWord(name string) *regexp.Regexp {
	first, _ := utf8.DecodeRuneInString(name)
	last, _ := utf8.DecodeLastRuneInString(name)

	before, after := `(?:^|[^\pL\pN_])`, `(?:$|[^\pL\pN_])`
	if !isWordRune(first) {
		before = `(?:` + wordClass + `)`
	}
	if !isWordRune(last) {
		after = `(?:` + wordClass + `)`
	}
	return regexp.MustCompile(before + regexp.QuoteMeta(name) + after)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func (g *Gazetteer) Len() int {
	return len(g.entries)
}

// Lookup resolves raw to coordinates. Segments are tried from the most
// specific (last) to the least, first as exact names and then as whole-word
// occurrences of a table entry.
func (g *Gazetteer) Lookup(raw string) (domain.Coordinates, bool) {
	parts := segments(raw)
	if len(parts) == 0 {
		return domain.Coordinates{}, false
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if c, ok := g.exact[stripCommas(parts[i])]; ok {
			return c, true
		}
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if utf8.RuneCountInString(parts[i]) < 3 {
			continue
		}
		clean := stripCommas(parts[i])
		for j, re := range g.words {
			if re.MatchString(clean) {
				e := g.entries[j]
				return domain.Coordinates{Lat: e.Lat, Lng: e.Lng}, true
			}
		}
	}

	return domain.Coordinates{}, false
}

func segments(raw string) []string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimRight(s, ".")
	if s == "" {
		return nil
	}

	var parts []string
	switch {
	case strings.Contains(s, "|"):
		parts = strings.Split(s, "|")
	case strings.Contains(s, ","):
		parts = strings.Split(s, ",")
	default:
		parts = []string{s}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func stripCommas(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
}
