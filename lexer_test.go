package sigma

import "testing"

type LexTestCase struct {
	Expr    string
	Tokens  []Token
	// Invalid is set when tokens lex fine but do not form a valid condition
	Invalid bool
}

var LexPosCases = []LexTestCase{
	{
		Expr:   "selection",
		Tokens: []Token{TokIdentifier, TokLitEof},
	},
	{
		Expr: "selection_1 AND NOT filter_0",
		Tokens: []Token{
			TokIdentifier,
			TokKeywordAnd,
			TokKeywordNot,
			TokIdentifier,
			TokLitEof,
		},
	},
	{
		Expr: "(selection1 or selection2) and not 1 of filter*",
		Tokens: []Token{
			TokSepLpar,
			TokIdentifier,
			TokKeywordOr,
			TokIdentifier,
			TokSepRpar,
			TokKeywordAnd,
			TokKeywordNot,
			TokStOne,
			TokIdentifierWithWildcard,
			TokLitEof,
		},
	},
	{
		Expr: "all of them",
		Tokens: []Token{
			TokStAll,
			TokIdentifierAll,
			TokLitEof,
		},
	},
	{
		Expr: "selection_all of_1",
		Tokens: []Token{
			TokIdentifier,
			TokIdentifier,
			TokLitEof,
		},
		Invalid: true,
	},
	{
		Expr: "selection | count() by host > 5",
		Tokens: []Token{
			TokIdentifier,
			TokSepPipe,
			TokUnsupp,
		},
	},
	{
		Expr: "selection1 near selection2",
		Tokens: []Token{
			TokIdentifier,
			TokKeywordNear,
			TokIdentifier,
			TokLitEof,
		},
	},
}

func TestLex(t *testing.T) {
	for j, c := range LexPosCases {
		l := lex(c.Expr)
		var i int
		for item := range l.items {
			if i >= len(c.Tokens) {
				t.Fatalf("lex case %d expr %s emitted unexpected item %s", j, c.Expr, item.T)
			}
			if item.T != c.Tokens[i] {
				t.Fatalf(
					"lex case %d expr %s failed on item %d expected %s got %s",
					j, c.Expr, i, c.Tokens[i].String(), item.T.String())
			}
			i++
		}
		if i != len(c.Tokens) {
			t.Fatalf("lex case %d expr %s emitted %d items, expected %d", j, c.Expr, i, len(c.Tokens))
		}
	}
}

func TestLexValues(t *testing.T) {
	l := lex("( sel_1 )")
	expected := []Item{
		{T: TokSepLpar, Val: "("},
		{T: TokIdentifier, Val: "sel_1"},
		{T: TokSepRpar, Val: ")"},
		{T: TokLitEof, Val: ""},
	}
	var i int
	for item := range l.items {
		if i >= len(expected) || item != expected[i] {
			t.Fatalf("lex item %d got %+v", i, item)
		}
		i++
	}
}

func TestClassifyWord(t *testing.T) {
	for word, expected := range map[string]Token{
		"":          TokNil,
		"AND":       TokKeywordAnd,
		"Not":       TokKeywordNot,
		"them":      TokIdentifierAll,
		"count":     TokKeywordAgg,
		"selection": TokIdentifier,
		"sel_*":     TokIdentifierWithWildcard,
		"android":   TokIdentifier,
	} {
		if got := classifyWord(word); got != expected {
			t.Fatalf("word %q classified as %s, expected %s", word, got, expected)
		}
	}
}

func TestValidTokenSequence(t *testing.T) {
	valid := [][2]Token{
		{TokBegin, TokIdentifier},
		{TokBegin, TokKeywordNot},
		{TokKeywordNot, TokSepLpar},
		{TokStOne, TokIdentifierWithWildcard},
		{TokStAll, TokIdentifierAll},
		{TokSepRpar, TokKeywordAnd},
		{TokIdentifierAll, TokLitEof},
	}
	for _, seq := range valid {
		if !validTokenSequence(seq[0], seq[1]) {
			t.Fatalf("sequence %s -> %s should be valid", seq[0], seq[1])
		}
	}
	invalid := [][2]Token{
		{TokIdentifier, TokIdentifier},
		{TokKeywordAnd, TokKeywordOr},
		{TokBegin, TokLitEof},
		{TokKeywordNot, TokKeywordNot},
		{TokIdentifier, TokIdentifierAll},
	}
	for _, seq := range invalid {
		if validTokenSequence(seq[0], seq[1]) {
			t.Fatalf("sequence %s -> %s should be invalid", seq[0], seq[1])
		}
	}
}
