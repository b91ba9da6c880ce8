package sigma

import (
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Placeholders maps sigma placeholder names, such as %administrators%, to the values
// they stand for in a given environment
type Placeholders map[string][]string

// LoadPlaceholders reads a yaml map of placeholder names to value lists
// Names may be written with or without surrounding percent signs
func LoadPlaceholders(path string) (Placeholders, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var raw map[string][]string
	if err := yaml.NewDecoder(f).Decode(&raw); err != nil {
		return nil, ErrParseYaml{Path: path, Err: err}
	}
	p := make(Placeholders, len(raw))
	for k, v := range raw {
		if !isPlaceholder(k) {
			k = "%" + k + "%"
		}
		p[k] = v
	}
	return p, nil
}

func isPlaceholder(s string) bool {
	return len(s) > 2 && strings.HasPrefix(s, "%") && strings.HasSuffix(s, "%")
}

// expand substitutes placeholder values into a fresh value list
// strict is set by the expand modifier and turns unknown placeholders into errors
// otherwise they are kept as literal values
func (p Placeholders) expand(field string, values []interface{}, strict bool) ([]interface{}, bool, error) {
	out := make([]interface{}, 0, len(values))
	var expanded bool
	for _, v := range values {
		s, ok := v.(string)
		if !ok || !isPlaceholder(s) {
			out = append(out, v)
			continue
		}
		items, ok := p[s]
		if !ok {
			if strict {
				return nil, false, ErrMissingPlaceholder{Field: field, Name: s}
			}
			out = append(out, v)
			continue
		}
		for _, item := range items {
			out = append(out, item)
		}
		expanded = true
	}
	return out, expanded, nil
}
