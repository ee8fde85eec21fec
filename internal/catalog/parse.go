package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type fileSpec struct {
	Sections []sectionSpec `yaml:"sections"`
}

type sectionSpec struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Demographic bool           `yaml:"demographic"`
	Variables   []variableSpec `yaml:"variables"`
}

type variableSpec struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Kind     Kind          `yaml:"kind"`
	Field    string        `yaml:"field"`
	Labels   []string      `yaml:"labels"`
	Brackets []bracketSpec `yaml:"brackets"`
}

type bracketSpec struct {
	Field string `yaml:"field"`
	Label string `yaml:"label"`
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(defaultCatalog)
})

// Default returns the embedded program catalog. It panics if the embedded
// document is invalid, which is caught by the package tests.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(spec.Sections) == 0 {
		return nil, fmt.Errorf("catalog has no sections")
	}
	c := &Catalog{index: make(map[string]int, len(spec.Sections))}
	for _, ss := range spec.Sections {
		if strings.TrimSpace(ss.ID) == "" {
			return nil, fmt.Errorf("section without id")
		}
		if _, dup := c.index[ss.ID]; dup {
			return nil, fmt.Errorf("duplicate section %s", ss.ID)
		}
		section := Section{ID: ss.ID, Title: ss.Title, Demographic: ss.Demographic}
		seen := make(map[string]struct{}, len(ss.Variables))
		for _, vs := range ss.Variables {
			if vs.ID == "" || vs.ID == AllVariables {
				return nil, fmt.Errorf("section %s: invalid variable id %q", ss.ID, vs.ID)
			}
			if _, dup := seen[vs.ID]; dup {
				return nil, fmt.Errorf("section %s: duplicate variable %s", ss.ID, vs.ID)
			}
			seen[vs.ID] = struct{}{}
			v, err := buildVariable(vs)
			if err != nil {
				return nil, fmt.Errorf("section %s: %w", ss.ID, err)
			}
			section.Variables = append(section.Variables, v)
		}
		if len(section.Variables) == 0 {
			return nil, fmt.Errorf("section %s has no variables", ss.ID)
		}
		if n := len(section.LikertVariables()); n > 0 && n != len(section.Variables) {
			return nil, fmt.Errorf("section %s mixes likert and non-likert variables", ss.ID)
		}
		c.index[section.ID] = len(c.sections)
		c.sections = append(c.sections, section)
	}
	return c, nil
}

func buildVariable(vs variableSpec) (Variable, error) {
	switch vs.Kind {
	case KindCategorical:
		if vs.Field == "" || len(vs.Labels) == 0 {
			return nil, fmt.Errorf("variable %s: categorical needs field and labels", vs.ID)
		}
		return Categorical{ID: vs.ID, Title: vs.Title, Field: vs.Field, Labels: append([]string(nil), vs.Labels...)}, nil
	case KindLikert:
		if vs.Field == "" {
			return nil, fmt.Errorf("variable %s: likert needs field", vs.ID)
		}
		return Likert{ID: vs.ID, Title: vs.Title, Field: vs.Field}, nil
	case KindAgeBracket:
		if len(vs.Brackets) == 0 {
			return nil, fmt.Errorf("variable %s: age-bracket needs brackets", vs.ID)
		}
		brackets := make([]Bracket, len(vs.Brackets))
		for i, b := range vs.Brackets {
			if b.Field == "" || b.Label == "" {
				return nil, fmt.Errorf("variable %s: bracket %d incomplete", vs.ID, i)
			}
			brackets[i] = Bracket{Field: b.Field, Label: b.Label}
		}
		return AgeBracket{ID: vs.ID, Title: vs.Title, Brackets: brackets}, nil
	default:
		return nil, fmt.Errorf("variable %s: unknown kind %q", vs.ID, vs.Kind)
	}
}
