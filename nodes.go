package sigma

// NodeAnd is a list of expressions connected with logical conjunction
type NodeAnd struct {
	Children []Expr
}

// Kind implements Expr
func (n NodeAnd) Kind() NodeKind { return KindAnd }

// NodeOr is a list of expressions connected with logical disjunction
type NodeOr struct {
	Children []Expr
}

// Kind implements Expr
func (n NodeOr) Kind() NodeKind { return KindOr }

// NodeNot negates an expression
type NodeNot struct {
	Child Expr
}

// Kind implements Expr
func (n NodeNot) Kind() NodeKind { return KindNot }

// NodeSubexpression wraps a parenthesised group from the condition
type NodeSubexpression struct {
	Child Expr
}

// Kind implements Expr
func (n NodeSubexpression) Kind() NodeKind { return KindSubexpression }

// NodeList is an ordered list of alternative values
type NodeList struct {
	Values []Expr
}

// Kind implements Expr
func (n NodeList) Kind() NodeKind { return KindList }

// NodeMapItem matches a single field against a value
// Value is a string, an int, a slice of those, a TypeModifier or nil
// nil means that the field must not exist
type NodeMapItem struct {
	Field string
	Value interface{}
}

// Kind implements Expr
func (n NodeMapItem) Kind() NodeKind { return KindMapItem }

// NodeValue is a bare literal without field context, as used by keywords
type NodeValue struct {
	Literal interface{}
}

// Kind implements Expr
func (n NodeValue) Kind() NodeKind { return KindValue }

// exprSimpleAnd collects conjunction members while parsing
type exprSimpleAnd []Expr

// Reduce strips the AND wrapper if only one element has been collected
func (n exprSimpleAnd) Reduce() Expr {
	if len(n) == 1 {
		return n[0]
	}
	return &NodeAnd{Children: n}
}

// exprSimpleOr collects disjunction members while parsing
type exprSimpleOr []Expr

// Reduce strips the OR wrapper if only one element has been collected
func (n exprSimpleOr) Reduce() Expr {
	if len(n) == 1 {
		return n[0]
	}
	return &NodeOr{Children: n}
}

func newNodeNotIfNegated(e Expr, negated bool) Expr {
	if negated {
		return &NodeNot{Child: e}
	}
	return e
}
