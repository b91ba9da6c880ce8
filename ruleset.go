package sigma

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config is used as argument to creating a new ruleset
type Config struct {
	// root directory for recursive rule search
	// rules must be readable files with "yml" or "yaml" suffix
	Directory []string
	// by default, a rule parse fail will simply increment Ruleset.Failed counter when failing to
	// parse yaml or rule AST
	// this parameter will cause an early error return instead
	FailOnRuleParse, FailOnYamlParse bool
	// values for %name% placeholders in selections
	Placeholders Placeholders
}

func (c Config) validate() error {
	if len(c.Directory) == 0 {
		return fmt.Errorf("missing root directory for sigma rules")
	}
	for _, dir := range c.Directory {
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist", dir)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
	}
	return nil
}

// Ruleset is a collection of rules
type Ruleset struct {
	Rules []*Tree
	root  []string

	// Failures holds every rule that could not be loaded
	Failures []error

	Total, Ok, Failed, Unsupported int
}

// NewRuleset instanciates a Ruleset object
func NewRuleset(c Config) (*Ruleset, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	files, err := NewRuleFileList(c.Directory)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no rule files found in %v", c.Directory)
	}
	var fail, unsupp int
	failures := make([]error, 0)
	rules, err := NewRuleList(files, !c.FailOnYamlParse)
	if err != nil {
		switch e := err.(type) {
		case ErrBulkParseYaml:
			fail += len(e.Errs)
			for _, item := range e.Errs {
				failures = append(failures, item)
			}
		default:
			return nil, err
		}
	}
	set := make([]*Tree, 0)
loop:
	for _, raw := range rules {
		if raw.Multipart {
			unsupp++
			failures = append(failures, ErrRuleParse{
				Path:  raw.Path,
				Title: raw.Title,
				Err:   ErrUnsupportedToken{Msg: "multipart yaml"},
			})
			continue loop
		}
		raw.Placeholders = c.Placeholders
		tree, err := NewTree(raw)
		if err != nil {
			if c.FailOnRuleParse {
				return nil, ErrRuleParse{Path: raw.Path, Title: raw.Title, Err: err}
			}
			switch err.(type) {
			case ErrUnsupportedToken, ErrUnsupportedModifier:
				unsupp++
			default:
				fail++
			}
			logrus.WithFields(logrus.Fields{
				"file":  raw.Path,
				"title": raw.Title,
			}).Debug(err)
			failures = append(failures, ErrRuleParse{Path: raw.Path, Title: raw.Title, Err: err})
			continue loop
		}
		set = append(set, tree)
	}
	return &Ruleset{
		root:        c.Directory,
		Rules:       set,
		Failures:    failures,
		Failed:      fail,
		Ok:          len(set),
		Unsupported: unsupp,
		Total:       len(files),
	}, nil
}
