package limacharlie

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/markuskont/go-sigma-limacharlie"
)

type resultKind int

const (
	// resultEmpty is a dropped clause and must be elided by the parent
	resultEmpty resultKind = iota
	// resultRaw is a bare value without field context, such as a keyword
	resultRaw
	resultNode
	resultList
)

// result is the outcome of translating a single expression node
type result struct {
	kind resultKind
	raw  interface{}
	node *Node
	list []result
}

func rawResult(v interface{}) result { return result{kind: resultRaw, raw: v} }
func nodeResult(n *Node) result      { return result{kind: resultNode, node: n} }

// nodeValue unwraps pointer nodes built by the parser
// ok is false for nil and for typed nil pointers
func nodeValue(e sigma.Expr) (sigma.Expr, bool) {
	switch n := e.(type) {
	case nil:
		return nil, false
	case *sigma.NodeAnd:
		if n == nil {
			return nil, false
		}
		return *n, true
	case *sigma.NodeOr:
		if n == nil {
			return nil, false
		}
		return *n, true
	case *sigma.NodeNot:
		if n == nil {
			return nil, false
		}
		return *n, true
	case *sigma.NodeSubexpression:
		if n == nil {
			return nil, false
		}
		return *n, true
	case *sigma.NodeList:
		if n == nil {
			return nil, false
		}
		return *n, true
	case *sigma.NodeMapItem:
		if n == nil {
			return nil, false
		}
		return *n, true
	case *sigma.NodeValue:
		if n == nil {
			return nil, false
		}
		return *n, true
	}
	return e, true
}

// translateExpr walks the expression tree
// ctx is read only for the whole walk
func translateExpr(ctx *MappingContext, e sigma.Expr) (result, error) {
	v, ok := nodeValue(e)
	if !ok {
		return result{}, ErrMalformedSelection{Key: ctx.Key, Msg: "missing expression"}
	}
	switch n := v.(type) {
	case sigma.NodeAnd:
		return translateAnd(ctx, n.Children)
	case sigma.NodeOr:
		return translateOr(ctx, n.Children)
	case sigma.NodeNot:
		return translateNot(ctx, n.Child)
	case sigma.NodeSubexpression:
		return translateExpr(ctx, n.Child)
	case sigma.NodeList:
		return translateList(ctx, n.Values)
	case sigma.NodeMapItem:
		return translateMapItem(ctx, n.Field, n.Value)
	case sigma.NodeValue:
		return rawResult(n.Literal), nil
	default:
		return result{}, ErrMalformedSelection{
			Kind: v.Kind(),
			Key:  ctx.Key,
			Msg:  fmt.Sprintf("unknown expression type %T", e),
		}
	}
}

// translateChildren translates a combinator's children
// dropped clauses are removed and lists are flattened into the parent
func translateChildren(ctx *MappingContext, children []sigma.Expr) ([]result, error) {
	out := make([]result, 0, len(children))
	for _, child := range children {
		r, err := translateExpr(ctx, child)
		if err != nil {
			return nil, err
		}
		out = appendSurvivors(out, r)
	}
	return out, nil
}

func appendSurvivors(out []result, r result) []result {
	switch r.kind {
	case resultEmpty:
		return out
	case resultList:
		for _, item := range r.list {
			out = appendSurvivors(out, item)
		}
		return out
	default:
		return append(out, r)
	}
}

// nodesOf unwraps detection nodes, raw values cannot be combined with them
func nodesOf(ctx *MappingContext, kind sigma.NodeKind, rx []result) ([]*Node, error) {
	nodes := make([]*Node, 0, len(rx))
	for _, r := range rx {
		if r.kind != resultNode {
			return nil, ErrMalformedSelection{
				Kind: kind,
				Key:  ctx.Key,
				Msg:  fmt.Sprintf("bare value %+v mixed with field matches", r.raw),
			}
		}
		nodes = append(nodes, r.node)
	}
	return nodes, nil
}

func translateAnd(ctx *MappingContext, children []sigma.Expr) (result, error) {
	rx, err := translateChildren(ctx, children)
	if err != nil {
		return result{}, err
	}
	switch len(rx) {
	case 0:
		return result{}, nil
	case 1:
		return rx[0], nil
	}
	nodes, err := nodesOf(ctx, sigma.KindAnd, rx)
	if err != nil {
		return result{}, err
	}
	return nodeResult(newCombinator(OpAnd, nodes)), nil
}

func translateOr(ctx *MappingContext, children []sigma.Expr) (result, error) {
	rx, err := translateChildren(ctx, children)
	if err != nil {
		return result{}, err
	}
	if len(rx) == 0 {
		return result{}, nil
	}
	if rx[0].kind == resultRaw {
		return translateKeywords(ctx, rx)
	}
	if len(rx) == 1 {
		return rx[0], nil
	}
	nodes, err := nodesOf(ctx, sigma.KindOr, rx)
	if err != nil {
		return result{}, err
	}
	return nodeResult(newCombinator(OpOr, nodes)), nil
}

// translateKeywords aliases a list of bare values onto the keywords field of the log source
func translateKeywords(ctx *MappingContext, rx []result) (result, error) {
	if !ctx.KeywordsSupported {
		return result{}, ErrUnsupportedKeywordSearch{Key: ctx.Key}
	}
	path, ignore, err := resolveField(ctx, KeywordsField)
	if err != nil {
		if errors.As(err, &ErrUnsupportedField{}) {
			return result{}, ErrUnsupportedKeywordSearch{Key: ctx.Key}
		}
		return result{}, err
	}
	if ignore {
		return result{}, nil
	}
	nodes := make([]*Node, 0, len(rx))
	for _, r := range rx {
		if r.kind != resultRaw {
			return result{}, ErrMalformedSelection{
				Kind: sigma.KindOr,
				Key:  ctx.Key,
				Msg:  "keyword list mixed with field matches",
			}
		}
		if !isScalar(r.raw) {
			return result{}, ErrUnsupportedValueType{Field: KeywordsField, Key: ctx.Key, Value: r.raw}
		}
		op, val := CompileValue(r.raw, ctx.AllValuesAreStrings)
		nodes = append(nodes, &Node{Op: op, Path: path, Value: val})
	}
	if len(nodes) == 1 {
		return nodeResult(nodes[0]), nil
	}
	return nodeResult(newCombinator(OpOr, nodes)), nil
}

// translateNot flips the not flag of the translated child
// not(not x) therefore yields x without the flag, rather than a node that stays negated
func translateNot(ctx *MappingContext, child sigma.Expr) (result, error) {
	r, err := translateExpr(ctx, child)
	if err != nil {
		return result{}, err
	}
	switch r.kind {
	case resultEmpty:
		return r, nil
	case resultNode:
		// node is freshly built for this walk, flipping keeps double negation correct
		r.node.Not = !r.node.Not
		return r, nil
	default:
		kind := sigma.KindUnknown
		if v, ok := nodeValue(child); ok {
			kind = v.Kind()
		}
		return result{}, ErrUnsupportedNegation{Kind: kind, Key: ctx.Key}
	}
}

func translateList(ctx *MappingContext, values []sigma.Expr) (result, error) {
	out := make([]result, 0, len(values))
	for _, v := range values {
		r, err := translateExpr(ctx, v)
		if err != nil {
			return result{}, err
		}
		out = append(out, r)
	}
	return result{kind: resultList, list: out}, nil
}

func translateMapItem(ctx *MappingContext, field string, value interface{}) (result, error) {
	path, ignore, err := resolveField(ctx, field)
	if err != nil {
		return result{}, err
	}
	if ignore {
		return result{}, nil
	}

	switch v := value.(type) {
	case nil:
		return nodeResult(&Node{Op: OpExists, Not: true, Path: path}), nil
	case []interface{}:
		return translateValueList(ctx, field, path, v)
	case []string:
		items := make([]interface{}, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return translateValueList(ctx, field, path, items)
	case []int:
		items := make([]interface{}, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return translateValueList(ctx, field, path, items)
	case sigma.Regex:
		if _, err := regexp.Compile(string(v)); err != nil {
			return result{}, ErrInvalidRegex{Field: field, Pattern: string(v), Err: err}
		}
		return nodeResult(&Node{Op: OpMatches, Path: path, Re: string(v)}), nil
	case sigma.TypeModifier:
		return result{}, ErrUnsupportedValueType{
			Field: field,
			Key:   ctx.Key,
			Value: v,
			Msg:   fmt.Sprintf("type modifier %s", v.Modifier()),
		}
	default:
		if !isScalar(v) {
			return result{}, ErrUnsupportedValueType{Field: field, Key: ctx.Key, Value: v}
		}
		return nodeResult(newLeaf(ctx, path, v)), nil
	}
}

func translateValueList(ctx *MappingContext, field, path string, values []interface{}) (result, error) {
	if len(values) == 0 {
		return result{}, ErrUnsupportedValueType{Field: field, Key: ctx.Key, Value: values, Msg: "empty value list"}
	}
	nodes := make([]*Node, 0, len(values))
	for _, v := range values {
		if !isScalar(v) {
			return result{}, ErrUnsupportedValueType{Field: field, Key: ctx.Key, Value: v, Msg: "list item"}
		}
		nodes = append(nodes, newLeaf(ctx, path, v))
	}
	if len(nodes) == 1 {
		return nodeResult(nodes[0]), nil
	}
	return nodeResult(newCombinator(OpOr, nodes)), nil
}

// newLeaf compiles a scalar into a case insensitive match
// Wildcard patterns compiled into regular expressions are carried in value as well
func newLeaf(ctx *MappingContext, path string, v interface{}) *Node {
	op, val := CompileValue(v, ctx.AllValuesAreStrings)
	return newMatch(op, path, val)
}

func resolveField(ctx *MappingContext, field string) (string, bool, error) {
	path, ignore, err := ctx.FieldMapping.Resolve(field)
	if err != nil {
		var e ErrUnsupportedField
		if errors.As(err, &e) {
			e.Key = ctx.Key
			return "", false, e
		}
		return "", false, err
	}
	return path, ignore, nil
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}
