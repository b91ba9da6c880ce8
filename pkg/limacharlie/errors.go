package limacharlie

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/markuskont/go-sigma-limacharlie"
)

// ErrUnsupportedLogSource indicates that no mapping context exists for the rule log source
type ErrUnsupportedLogSource struct {
	Product, Category, Service string
}

func (e ErrUnsupportedLogSource) Error() string {
	return fmt.Sprintf("log source %s not supported by backend", Key(e.Product, e.Category, e.Service))
}

// ErrUnsupportedField indicates a field name missing from a static field mapping
type ErrUnsupportedField struct {
	Field string
	Key   string
}

func (e ErrUnsupportedField) Error() string {
	return fmt.Sprintf("field name %s not supported by backend for log source %s", e.Field, e.Key)
}

// ErrUnsupportedKeywordSearch indicates a full text keyword list on a log source that has no keyword field
type ErrUnsupportedKeywordSearch struct {
	Key string
}

func (e ErrUnsupportedKeywordSearch) Error() string {
	return fmt.Sprintf("full-text keyword searches not supported for log source %s", e.Key)
}

// ErrUnsupportedNegation indicates a NOT over a value that is not a detection node
type ErrUnsupportedNegation struct {
	Kind sigma.NodeKind
	Key  string
}

func (e ErrUnsupportedNegation) Error() string {
	return fmt.Sprintf("not operator not available on %s nodes, log source %s", e.Kind, e.Key)
}

// ErrUnsupportedValueType indicates a map item value that the backend cannot express
type ErrUnsupportedValueType struct {
	Field string
	Key   string
	Value interface{}
	Msg   string
}

func (e ErrUnsupportedValueType) Error() string {
	t := "nil"
	if rt := reflect.TypeOf(e.Value); rt != nil {
		t = rt.String()
	}
	return fmt.Sprintf("backend does not support value |%+v| of type %s for field %s, log source %s. %s",
		e.Value, t, e.Field, e.Key, e.Msg)
}

// ErrMalformedSelection indicates that translated nodes cannot form a detection
type ErrMalformedSelection struct {
	Kind sigma.NodeKind
	Key  string
	Msg  string
}

func (e ErrMalformedSelection) Error() string {
	return fmt.Sprintf("selection combination not supported. %s node, log source %s: %s", e.Kind, e.Key, e.Msg)
}

// ErrInvalidRegex contextualizes broken regular expressions presented by the user
type ErrInvalidRegex struct {
	Field   string
	Pattern string
	Err     error
}

// Error implements error
func (e ErrInvalidRegex) Error() string {
	return fmt.Sprintf("field %s /%s/ %s", e.Field, e.Pattern, e.Err)
}

func (e ErrInvalidRegex) Unwrap() error { return e.Err }

// ErrMissingTitle indicates a rule without title, report actions are named after it
type ErrMissingTitle struct{}

func (e ErrMissingTitle) Error() string { return "sigma rule is missing title" }

// ErrInvalidDocument indicates that an assembled document failed structural validation
type ErrInvalidDocument struct {
	Name string
	Errs []string
}

func (e ErrInvalidDocument) Error() string {
	return fmt.Sprintf("document %s failed validation: %s", e.Name, strings.Join(e.Errs, "; "))
}
