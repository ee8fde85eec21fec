package aggregate

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"ecoresiduos/internal/catalog"
)

// normalizeKey reduces a raw value to its comparison form: trimmed, inner
// whitespace collapsed, diacritics removed and case folded.
func normalizeKey(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}
	return cases.Fold().String(s)
}

// domainIndex maps normalized keys of a label domain to the label position.
type domainIndex map[string]int

func newDomainIndex(labels []string) domainIndex {
	idx := make(domainIndex, len(labels))
	for i, l := range labels {
		idx[normalizeKey(l)] = i
	}
	return idx
}

// lookup returns the position of the label a raw value belongs to.
func (d domainIndex) lookup(raw string) (int, bool) {
	i, ok := d[normalizeKey(raw)]
	return i, ok
}

// likertAliases maps normalized variants seen in field data to the canonical
// scale position.
var likertAliases = map[string]int{
	"totalmente desacuerdo":          0,
	"totalmente en desacuerdo":       0,
	"muy en desacuerdo":              0,
	"td":                             0,
	"1":                              0,
	"desacuerdo":                     1,
	"en desacuerdo":                  1,
	"d":                              1,
	"2":                              1,
	"indiferente":                    2,
	"neutral":                        2,
	"ni de acuerdo ni en desacuerdo": 2,
	"ni de acuerdo ni desacuerdo":    2,
	"i":                              2,
	"3":                              2,
	"de acuerdo":                     3,
	"acuerdo":                        3,
	"a":                              3,
	"4":                              3,
	"totalmente de acuerdo":          4,
	"muy de acuerdo":                 4,
	"ta":                             4,
	"5":                              4,
}

// NormalizeLikert returns the canonical agreement level of a raw answer.
func NormalizeLikert(raw string) (string, bool) {
	i, ok := likertAliases[normalizeKey(raw)]
	if !ok {
		return "", false
	}
	return catalog.LikertLevels()[i], true
}
