package sigma

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// RuleHandle is a meta object containing all fields from raw yaml, but is enhanced to also
// hold debugging info from the tool, such as source file path, etc
type RuleHandle struct {
	Rule

	Path      string `json:"path"`
	Multipart bool   `json:"multipart"`

	// Placeholders are substituted into selection values while building the tree
	Placeholders Placeholders `json:"-"`
}

// Rule defines raw rule conforming to sigma rule specification
// https://github.com/Neo23x0/sigma/wiki/Specification
// only meant to be used for parsing yaml that matches Sigma rule definition
// Optional metadata is kept as pointers so absent fields can be told apart from empty ones
type Rule struct {
	Author         *string  `yaml:"author" json:"author,omitempty"`
	Description    *string  `yaml:"description" json:"description,omitempty"`
	Falsepositives []string `yaml:"falsepositives" json:"falsepositives"`
	Fields         []string `yaml:"fields" json:"fields"`
	ID             string   `yaml:"id" json:"id"`
	Level          *string  `yaml:"level" json:"level,omitempty"`
	Title          string   `yaml:"title" json:"title"`
	Status         string   `yaml:"status" json:"status"`
	References     []string `yaml:"references" json:"references,omitempty"`

	Logsource `yaml:"logsource" json:"logsource"`
	Detection `yaml:"detection" json:"detection"`
	Tags      `yaml:"tags" json:"tags,omitempty"`
}

// NewRuleList reads a list of sigma rule paths and parses them to rule objects
func NewRuleList(files []string, skip bool) ([]RuleHandle, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("missing rule file list")
	}
	errs := make([]ErrParseYaml, 0)
	rules := make([]RuleHandle, 0)
loop:
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		r, err := ParseRule(data)
		if err != nil {
			if skip {
				errs = append(errs, ErrParseYaml{
					Path:  path,
					Count: i,
					Err:   err,
				})
				continue loop
			}
			return nil, ErrParseYaml{Err: err, Path: path}
		}
		rules = append(rules, RuleHandle{
			Path: path,
			Rule: *r,
			Multipart: func() bool {
				return !bytes.HasPrefix(data, []byte("---")) && bytes.Contains(data, []byte("\n---"))
			}(),
		})
	}
	return rules, func() error {
		if len(errs) > 0 {
			return ErrBulkParseYaml{Errs: errs}
		}
		return nil
	}()
}

// ParseRule decodes a single sigma rule document
func ParseRule(data []byte) (*Rule, error) {
	var r Rule
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Logsource represents the logsource field in sigma rule
// It defines relevant event streams and is used for selecting a backend mapping
type Logsource struct {
	Product    string `yaml:"product" json:"product"`
	Category   string `yaml:"category" json:"category"`
	Service    string `yaml:"service" json:"service"`
	Definition string `yaml:"definition" json:"definition"`
}

// Detection represents the detection field in sigma rule
// contains condition expression and identifier fields for building AST
type Detection map[string]interface{}

// Extract returns identifier fields without condition and timeframe
func (d Detection) Extract() map[string]interface{} {
	tx := make(map[string]interface{})
	for k, v := range d {
		if k != "condition" && k != "timeframe" {
			tx[k] = v
		}
	}
	return tx
}

// conditions returns condition expressions, sigma allows a list of them
func (d Detection) conditions() ([]string, error) {
	switch c := d["condition"].(type) {
	case string:
		return []string{c}, nil
	case []interface{}:
		out := make([]string, 0, len(c))
		for _, item := range c {
			s, ok := item.(string)
			if !ok {
				return nil, ErrMissingCondition{}
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil, ErrMissingCondition{}
		}
		return out, nil
	default:
		return nil, ErrMissingCondition{}
	}
}

// Tags contains a metadata list for tying positive matches together with other threat intel sources
// For example, for attaching MITRE ATT&CK tactics or techniques to the event
type Tags []string

// NewRuleFileList finds all yaml files from defined root directories
// Subtree is scanned recursively
// No file validation, other than suffix matching
func NewRuleFileList(dirs []string) ([]string, error) {
	out := make([]string, 0)
	for _, dir := range dirs {
		if err := filepath.Walk(dir, func(
			path string,
			info os.FileInfo,
			err error,
		) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && (strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml")) {
				out = append(out, path)
			}
			return nil
		}); err != nil {
			return out, err
		}
	}
	return out, nil
}
