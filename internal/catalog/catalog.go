// Package catalog describes what can be charted and tabulated: survey sections,
// their variables, and each variable's value domain. The catalog is immutable
// once parsed and is shared by reference.
package catalog

import (
	"errors"
	"fmt"
)

// Kind tags the value domain of a variable.
type Kind string

const (
	KindCategorical Kind = "categorical"
	KindLikert      Kind = "likert"
	KindAgeBracket  Kind = "age-bracket"
	KindPooled      Kind = "pooled" // every Likert variable of a section combined
)

// AllVariables is the variable id that selects the pooled view of a Likert section.
const AllVariables = "todas"

var (
	// ErrUnknownSection is returned when a section id is not in the catalog.
	ErrUnknownSection = errors.New("catalog: unknown section")
	// ErrUnknownVariable is returned when a variable id is not part of a section.
	ErrUnknownVariable = errors.New("catalog: unknown variable")
)

// likertScale is the fixed five-level agreement domain, weights 1..5 in order.
var likertScale = [...]string{
	"Totalmente desacuerdo",
	"Desacuerdo",
	"Indiferente",
	"De acuerdo",
	"Totalmente de acuerdo",
}

// LikertLevels returns the agreement scale in weight order.
func LikertLevels() []string {
	return append([]string(nil), likertScale[:]...)
}

// LikertWeight returns the 1..5 weight of a canonical level, or 0 when unknown.
func LikertWeight(level string) int {
	for i, l := range likertScale {
		if l == level {
			return i + 1
		}
	}
	return 0
}

// LikertMaxWeight is the weight of the highest agreement level.
const LikertMaxWeight = len(likertScale)

// Descriptor is the kind-independent view of a variable.
type Descriptor struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Kind   Kind     `json:"kind"`
	Domain []string `json:"domain"`
}

// Variable is one of Categorical, Likert, AgeBracket or Pooled.
type Variable interface {
	Describe() Descriptor
	variable()
}

// Categorical reads one field whose value must match one of Labels.
type Categorical struct {
	ID     string
	Title  string
	Field  string
	Labels []string
}

func (c Categorical) Describe() Descriptor {
	return Descriptor{ID: c.ID, Title: c.Title, Kind: KindCategorical, Domain: append([]string(nil), c.Labels...)}
}

func (Categorical) variable() {}

// Likert reads one field holding an agreement level.
type Likert struct {
	ID    string
	Title string
	Field string
}

func (l Likert) Describe() Descriptor {
	return Descriptor{ID: l.ID, Title: l.Title, Kind: KindLikert, Domain: LikertLevels()}
}

func (Likert) variable() {}

// Bracket maps a numeric count field to an age range label.
type Bracket struct {
	Field string
	Label string
}

// AgeBracket counts records with a positive value per bracket field.
type AgeBracket struct {
	ID       string
	Title    string
	Brackets []Bracket
}

func (a AgeBracket) Describe() Descriptor {
	domain := make([]string, len(a.Brackets))
	for i, b := range a.Brackets {
		domain[i] = b.Label
	}
	return Descriptor{ID: a.ID, Title: a.Title, Kind: KindAgeBracket, Domain: domain}
}

func (AgeBracket) variable() {}

// Pooled combines the tallies of several Likert variables.
type Pooled struct {
	ID      string
	Title   string
	Members []Likert
}

func (p Pooled) Describe() Descriptor {
	return Descriptor{ID: p.ID, Title: p.Title, Kind: KindPooled, Domain: LikertLevels()}
}

func (Pooled) variable() {}

// Section groups variables under a title.
type Section struct {
	ID          string
	Title       string
	Demographic bool
	Variables   []Variable
}

// IsLikert reports whether every variable of the section is a Likert item.
func (s Section) IsLikert() bool {
	if len(s.Variables) == 0 {
		return false
	}
	for _, v := range s.Variables {
		if _, ok := v.(Likert); !ok {
			return false
		}
	}
	return true
}

// LikertVariables returns the Likert members of the section in catalog order.
func (s Section) LikertVariables() []Likert {
	var out []Likert
	for _, v := range s.Variables {
		if l, ok := v.(Likert); ok {
			out = append(out, l)
		}
	}
	return out
}

// Pooled returns the "all variables" view of a Likert section.
func (s Section) Pooled() (Pooled, bool) {
	if !s.IsLikert() {
		return Pooled{}, false
	}
	return Pooled{
		ID:      AllVariables,
		Title:   fmt.Sprintf("%s: todas las variables", s.Title),
		Members: s.LikertVariables(),
	}, true
}

// Variable returns the variable with the given id within the section.
func (s Section) Variable(id string) (Variable, bool) {
	if id == AllVariables {
		if p, ok := s.Pooled(); ok {
			return p, true
		}
		return nil, false
	}
	for _, v := range s.Variables {
		if v.Describe().ID == id {
			return v, true
		}
	}
	return nil, false
}

// Catalog is the read-only collection of sections.
type Catalog struct {
	sections []Section
	index    map[string]int
}

// Sections returns the sections in declaration order.
func (c *Catalog) Sections() []Section {
	return append([]Section(nil), c.sections...)
}

// Section looks up a section by id.
func (c *Catalog) Section(id string) (Section, bool) {
	i, ok := c.index[id]
	if !ok {
		return Section{}, false
	}
	return c.sections[i], true
}

// Lookup resolves a variable within a section.
func (c *Catalog) Lookup(sectionID, variableID string) (Variable, error) {
	section, ok := c.Section(sectionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	v, ok := section.Variable(variableID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownVariable, sectionID, variableID)
	}
	return v, nil
}
