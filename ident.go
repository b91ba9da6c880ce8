package sigma

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

type identType int

func (i identType) String() string {
	switch i {
	case identKeyword:
		return "KEYWORD"
	case identSelection:
		return "SELECTION"
	default:
		return "UNK"
	}
}

const (
	identErr identType = iota
	identSelection
	identKeyword
)

func checkIdentType(name string, data interface{}) identType {
	t := reflectIdentKind(data)
	if strings.HasPrefix(name, "keyword") {
		if data == nil {
			return identKeyword
		}
		if t != identKeyword {
			return identErr
		}
	}
	return t
}

func reflectIdentKind(data interface{}) identType {
	switch v := data.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return identSelection
	case []interface{}:
		var maps int
		for _, item := range v {
			switch item.(type) {
			case map[string]interface{}, map[interface{}]interface{}:
				maps++
			}
		}
		switch maps {
		case 0:
			return identKeyword
		case len(v):
			return identSelection
		default:
			return identErr
		}
	default:
		return identKeyword
	}
}

func newExprFromIdent(name string, rule interface{}, ph Placeholders) (Expr, error) {
	switch checkIdentType(name, rule) {
	case identKeyword:
		return newKeywordExpr(rule)
	case identSelection:
		return newSelectionExpr(rule, ph)
	}
	return nil, ErrInvalidSelectionConstruct{
		Msg:  fmt.Sprintf("identifier %s should be keyword or selection", name),
		Expr: rule,
	}
}

// newKeywordExpr builds a disjunction of bare values
// backends decide how free text search is represented
func newKeywordExpr(expr interface{}) (Expr, error) {
	switch val := expr.(type) {
	case string, int:
		return &NodeOr{Children: []Expr{&NodeValue{Literal: val}}}, nil
	case []interface{}:
		children := make([]Expr, 0, len(val))
		for _, item := range val {
			switch item.(type) {
			case string, int:
				children = append(children, &NodeValue{Literal: item})
			default:
				return nil, newErrInvalidKind(item, identKeyword, "Unsupported keyword value")
			}
		}
		if len(children) == 0 {
			return nil, ErrInvalidKeywordConstruct{Msg: "empty keyword list", Expr: expr}
		}
		return &NodeOr{Children: children}, nil
	default:
		return nil, ErrInvalidKeywordConstruct{Expr: expr}
	}
}

// newSelectionExpr builds a conjunction of map items for a selection map
// or a disjunction of those for a list of selection maps
func newSelectionExpr(expr interface{}, ph Placeholders) (Expr, error) {
	switch v := expr.(type) {
	case []interface{}:
		selections := make(exprSimpleOr, 0, len(v))
		for _, item := range v {
			e, err := newSelectionExpr(item, ph)
			if err != nil {
				return nil, err
			}
			selections = append(selections, e)
		}
		if len(selections) == 0 {
			return nil, ErrInvalidSelectionConstruct{Msg: "empty selection list", Expr: expr}
		}
		return selections.Reduce(), nil
	case map[interface{}]interface{}:
		return newSelectionFromMap(cleanUpInterfaceMap(v), ph)
	case map[string]interface{}:
		return newSelectionFromMap(v, ph)
	default:
		return nil, newErrInvalidKind(expr, identSelection, "Unsupported selection root container")
	}
}

func newSelectionFromMap(expr map[string]interface{}, ph Placeholders) (Expr, error) {
	if len(expr) == 0 {
		return nil, ErrInvalidSelectionConstruct{Msg: "empty selection map", Expr: expr}
	}
	keys := make([]string, 0, len(expr))
	for k := range expr {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sel := make(exprSimpleAnd, 0, len(keys))
	for _, key := range keys {
		bits := strings.Split(key, "|")
		e, err := newMapItemExpr(bits[0], bits[1:], expr[key], ph)
		if err != nil {
			return nil, err
		}
		sel = append(sel, e)
	}
	return sel.Reduce(), nil
}

// valueModifier collects field modifiers from a selection key
type valueModifier struct {
	wrap   func(string) string
	all    bool
	regex  bool
	expand bool
}

func newValueModifier(field string, mods []string) (*valueModifier, error) {
	m := &valueModifier{}
	for _, mod := range mods {
		switch mod {
		case "contains":
			m.wrap = func(s string) string { return "*" + s + "*" }
		case "startswith":
			m.wrap = func(s string) string { return s + "*" }
		case "endswith":
			m.wrap = func(s string) string { return "*" + s }
		case "all":
			m.all = true
		case "re":
			m.regex = true
		case "expand":
			m.expand = true
		default:
			return nil, ErrUnsupportedModifier{Field: field, Modifier: mod}
		}
	}
	if m.regex && m.wrap != nil {
		return nil, ErrUnsupportedModifier{Field: field, Modifier: strings.Join(mods, "|")}
	}
	return m, nil
}

func (m valueModifier) apply(field string, val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case nil:
		if m.regex || m.wrap != nil {
			return nil, ErrInvalidKind{
				Kind:     reflect.Invalid,
				T:        identSelection,
				Critical: true,
				Msg:      fmt.Sprintf("field %s has null value with a string modifier", field),
			}
		}
		return nil, nil
	case string:
		if m.regex {
			return Regex(v), nil
		}
		if m.wrap != nil {
			return m.wrap(v), nil
		}
		return v, nil
	case int:
		if m.regex {
			return Regex(strconv.Itoa(v)), nil
		}
		if m.wrap != nil {
			return m.wrap(strconv.Itoa(v)), nil
		}
		return v, nil
	default:
		// left as is, backends refuse values they cannot express
		return v, nil
	}
}

func newMapItemExpr(field string, mods []string, value interface{}, ph Placeholders) (Expr, error) {
	m, err := newValueModifier(field, mods)
	if err != nil {
		return nil, err
	}

	values, list := []interface{}{value}, false
	if v, ok := value.([]interface{}); ok {
		values, list = v, true
	}
	values, expanded, err := ph.expand(field, values, m.expand)
	if err != nil {
		return nil, err
	}
	list = list || expanded
	if len(values) == 0 {
		return nil, ErrInvalidSelectionConstruct{
			Msg:  fmt.Sprintf("field %s has an empty value list", field),
			Expr: value,
		}
	}

	// expand returns a copy, rule data stays untouched
	for i, v := range values {
		if values[i], err = m.apply(field, v); err != nil {
			return nil, err
		}
	}

	switch {
	case !list:
		return &NodeMapItem{Field: field, Value: values[0]}, nil
	case m.all || m.regex:
		items := make([]Expr, 0, len(values))
		for _, v := range values {
			items = append(items, &NodeMapItem{Field: field, Value: v})
		}
		if m.all {
			return exprSimpleAnd(items).Reduce(), nil
		}
		return exprSimpleOr(items).Reduce(), nil
	default:
		return &NodeMapItem{Field: field, Value: values}, nil
	}
}

func newErrInvalidKind(val interface{}, t identType, msg string) error {
	if val == nil {
		return ErrUnableToReflect
	}
	return ErrInvalidKind{
		Kind:     reflect.TypeOf(val).Kind(),
		T:        t,
		Critical: true,
		Msg:      msg,
	}
}

// Yaml can have non-string keys, so go-yaml unmarshals to map[interface{}]interface{}
// really annoying
func cleanUpInterfaceMap(rx map[interface{}]interface{}) map[string]interface{} {
	tx := make(map[string]interface{})
	for k, v := range rx {
		tx[fmt.Sprintf("%v", k)] = v
	}
	return tx
}
