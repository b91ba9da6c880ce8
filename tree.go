package sigma

// Tree represents the full expression tree for a sigma rule
type Tree struct {
	Root Expr
	Rule *RuleHandle
}

// NewTree parses rule handle into an expression tree
// A list of conditions is joined with logical disjunction
func NewTree(r RuleHandle) (*Tree, error) {
	if r.Detection == nil {
		return nil, ErrMissingDetection{}
	}
	conditions, err := r.Detection.conditions()
	if err != nil {
		return nil, err
	}
	if len(r.Detection.Extract()) == 0 {
		return nil, ErrEmptyDetection{}
	}

	roots := make(exprSimpleOr, 0, len(conditions))
	for _, expr := range conditions {
		p := &parser{
			lex:          lex(expr),
			condition:    expr,
			sigma:        r.Detection,
			placeholders: r.Placeholders,
		}
		if err := p.run(); err != nil {
			return nil, err
		}
		roots = append(roots, p.result)
	}
	return &Tree{
		Root: roots.Reduce(),
		Rule: &r,
	}, nil
}
