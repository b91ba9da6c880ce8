package sigma

import (
	"fmt"
	"sort"
)

type parser struct {
	// lexer that tokenizes input string
	lex *lexer

	tokens []Item
	// memorize last token to validate proper sequence
	// for example, two identifiers have to be joined via logical AND or OR, otherwise the sequence is invalid
	previous Item

	// sigma detection map that contains condition query and relevant fields
	sigma Detection

	// values substituted for %name% placeholders in selections
	placeholders Placeholders

	// for debug
	condition string

	// resulting expression that can be collected later
	result Expr
}

func (p *parser) run() error {
	if p.lex == nil {
		return fmt.Errorf("cannot run condition parser, lexer not initialized")
	}
	// Pass 1: collect tokens, do basic sequence validation
	if err := p.collect(); err != nil {
		return err
	}
	// Pass 2: build the expression tree
	e, err := newBranch(p.sigma, &tokenStream{items: p.tokens}, 0, p.placeholders)
	if err != nil {
		return err
	}
	p.result = e
	return nil
}

// collect gathers all items from lexer and does preliminary sequence validation
func (p *parser) collect() error {
	// lexer goroutine blocks on send until the channel is drained
	defer func() {
		for range p.lex.items {
		}
	}()
	p.previous = Item{T: TokBegin}
	for item := range p.lex.items {
		switch item.T {
		case TokUnsupp:
			return ErrUnsupportedToken{Msg: item.Val}
		case TokKeywordNear, TokKeywordAgg, TokSepPipe:
			return ErrUnsupportedToken{Msg: fmt.Sprintf("%s | %s", item.T, item.Val)}
		}
		if !validTokenSequence(p.previous.T, item.T) {
			return ErrInvalidTokenSeq{
				Prev:      p.previous,
				Next:      item,
				Collected: p.tokens,
			}
		}
		if item.T != TokLitEof {
			p.tokens = append(p.tokens, item)
		}
		p.previous = item
	}
	if p.previous.T != TokLitEof {
		return ErrIncompleteTokenSeq{
			Expression: p.condition,
			Items:      p.tokens,
			Last:       p.previous,
		}
	}
	return nil
}

// tokenStream is a cursor over collected tokens
type tokenStream struct {
	items []Item
	pos   int
}

func (s *tokenStream) next() (Item, bool) {
	if s.pos >= len(s.items) {
		return Item{}, false
	}
	item := s.items[s.pos]
	s.pos++
	return item, true
}

// newBranch builds an expression from token list
// and binds tighter than or, not applies to the following operand
// sequence validation should be done before invoking newBranch
func newBranch(d Detection, s *tokenStream, depth int, ph Placeholders) (Expr, error) {
	and := make(exprSimpleAnd, 0)
	or := make(exprSimpleOr, 0)
	var negated bool
	var wildcard Token

	for item, ok := s.next(); ok; item, ok = s.next() {
		switch item.T {
		case TokIdentifier:
			val, ok := d[item.Val]
			if !ok {
				return nil, ErrMissingConditionItem{Key: item.Val}
			}
			e, err := newExprFromIdent(item.Val, val, ph)
			if err != nil {
				return nil, err
			}
			and = append(and, newNodeNotIfNegated(e, negated))
			negated = false
			wildcard = TokBegin
		case TokKeywordAnd:
			// no need to do anything special here
		case TokKeywordOr:
			// fill OR gate with collected AND nodes
			// reduce will strip AND logic if only one token has been collected
			or = append(or, and.Reduce())
			and = make(exprSimpleAnd, 0)
		case TokKeywordNot:
			negated = true
		case TokSepLpar:
			group, err := extractGroup(s)
			if err != nil {
				return nil, err
			}
			e, err := newBranch(d, &tokenStream{items: group}, depth+1, ph)
			if err != nil {
				return nil, err
			}
			and = append(and, newNodeNotIfNegated(&NodeSubexpression{Child: e}, negated))
			negated = false
		case TokIdentifierAll:
			e, err := newStatement(d, d.identifiers(), wildcard, ph)
			if err != nil {
				return nil, err
			}
			and = append(and, newNodeNotIfNegated(e, negated))
			negated = false
			wildcard = TokBegin
		case TokIdentifierWithWildcard:
			g, err := item.Glob()
			if err != nil {
				return nil, fmt.Errorf("failed to compile wildcard ident '%s': %w", item.Val, err)
			}
			names := make([]string, 0)
			for _, name := range d.identifiers() {
				if g.Match(name) {
					names = append(names, name)
				}
			}
			if len(names) == 0 {
				return nil, ErrMissingConditionItem{Key: item.Val}
			}
			e, err := newStatement(d, names, wildcard, ph)
			if err != nil {
				return nil, err
			}
			and = append(and, newNodeNotIfNegated(e, negated))
			negated = false
			wildcard = TokBegin
		case TokStAll, TokStOne:
			wildcard = item.T
		case TokSepRpar:
			return nil, fmt.Errorf("parser error, should not see %s", TokSepRpar)
		default:
			return nil, ErrUnsupportedToken{
				Msg: fmt.Sprintf("%s | %s", item.T, item.Val),
			}
		}
	}
	if len(and) == 0 {
		return nil, fmt.Errorf("parser error, empty expression at depth %d", depth)
	}
	or = append(or, and.Reduce())

	return or.Reduce(), nil
}

// newStatement resolves a 1 of / all of statement over named identifiers
func newStatement(d Detection, names []string, wildcard Token, ph Placeholders) (Expr, error) {
	if len(names) == 0 {
		return nil, ErrEmptyDetection{}
	}
	rules := make([]Expr, 0, len(names))
	for _, name := range names {
		e, err := newExprFromIdent(name, d[name], ph)
		if err != nil {
			return nil, err
		}
		rules = append(rules, e)
	}
	switch wildcard {
	case TokStAll:
		return exprSimpleAnd(rules).Reduce(), nil
	case TokStOne:
		return exprSimpleOr(rules).Reduce(), nil
	default:
		return nil, fmt.Errorf("invalid wildcard ident, missing 1 of/ all of prefix")
	}
}

// extractGroup is called when newBranch hits TokSepLpar
// it will be consumed, so balance is already 1
func extractGroup(s *tokenStream) ([]Item, error) {
	balance := 1
	group := make([]Item, 0)
	for item, ok := s.next(); ok; item, ok = s.next() {
		switch item.T {
		case TokSepLpar:
			balance++
		case TokSepRpar:
			balance--
			if balance == 0 {
				return group, nil
			}
		}
		group = append(group, item)
	}
	return nil, fmt.Errorf("parser error, unbalanced parenthesis")
}

// identifiers returns sorted detection identifiers usable by "them" statements
func (d Detection) identifiers() []string {
	out := make([]string, 0, len(d))
	for k := range d.Extract() {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
