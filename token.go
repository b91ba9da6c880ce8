package sigma

import "github.com/gobwas/glob"

var eof = rune(0)

// Item is lexical token along with respective plaintext value
// Item is communicated between lexer and parser
type Item struct {
	T   Token
	Val string
}

// Glob compiles a wildcard identifier such as selection* for matching detection keys
func (i Item) Glob() (glob.Glob, error) {
	return glob.Compile(i.Val)
}

// Token is a lexical token extracted from condition field
type Token int

const (
	// TokNil is an empty word
	TokNil Token = iota
	TokUnsupp
	TokBegin

	TokIdentifier
	TokIdentifierWithWildcard
	TokIdentifierAll

	TokLitEof

	TokSepLpar
	TokSepRpar
	TokSepPipe

	TokKeywordAnd
	TokKeywordOr
	TokKeywordNot
	TokKeywordAgg
	TokKeywordNear

	TokStOne
	TokStAll
)

// tokenText holds debug name and condition literal of a token
type tokenText struct {
	name, literal string
}

var tokenTexts = map[Token]tokenText{
	TokNil:                    {"NIL", ""},
	TokUnsupp:                 {"UNSUPPORTED", ""},
	TokBegin:                  {"BEGINNING", ""},
	TokIdentifier:             {"IDENT", ""},
	TokIdentifierWithWildcard: {"WILDCARDIDENT", ""},
	TokIdentifierAll:          {"THEM", "them"},
	TokLitEof:                 {"EOF", ""},
	TokSepLpar:                {"LPAR", "("},
	TokSepRpar:                {"RPAR", ")"},
	TokSepPipe:                {"PIPE", "|"},
	TokKeywordAnd:             {"AND", "and"},
	TokKeywordOr:              {"OR", "or"},
	TokKeywordNot:             {"NOT", "not"},
	TokKeywordAgg:             {"AGG", ""},
	TokKeywordNear:            {"NEAR", "near"},
	TokStOne:                  {"ONE", "1 of"},
	TokStAll:                  {"ALL", "all of"},
}

// String is the uppercased token name, for debugging
func (t Token) String() string {
	if txt, ok := tokenTexts[t]; ok {
		return txt.name
	}
	return "Unk"
}

// Literal is the token as written in a rule condition
// Identifiers and helper tokens have no fixed literal
func (t Token) Literal() string { return tokenTexts[t].literal }

// operandEnd are tokens that close an operand
var operandEnd = []Token{TokIdentifier, TokIdentifierAll, TokIdentifierWithWildcard, TokSepRpar}

// operandStart are tokens after which a new operand may begin
var operandStart = []Token{TokBegin, TokSepLpar, TokKeywordAnd, TokKeywordOr, TokKeywordNot}

// allowedBefore lists tokens that may directly precede a token
var allowedBefore = map[Token][]Token{
	TokStAll:                  operandStart,
	TokStOne:                  operandStart,
	TokSepLpar:                operandStart,
	TokIdentifierAll:          {TokStAll, TokStOne},
	TokIdentifier:             append([]Token{TokStOne, TokStAll}, operandStart...),
	TokIdentifierWithWildcard: append([]Token{TokStOne, TokStAll}, operandStart...),
	TokKeywordNot:             {TokBegin, TokSepLpar, TokKeywordAnd, TokKeywordOr},
	TokKeywordAnd:             operandEnd,
	TokKeywordOr:              operandEnd,
	TokSepRpar:                operandEnd,
	TokSepPipe:                operandEnd,
	TokLitEof:                 operandEnd,
}

// validTokenSequence is a quick check on adjacent tokens before parsing
// it does not catch every malformed condition
func validTokenSequence(t1, t2 Token) bool {
	for _, t := range allowedBefore[t2] {
		if t == t1 {
			return true
		}
	}
	return false
}
