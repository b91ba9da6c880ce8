package sigma

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexer splits a condition into items, sent to the parser over a channel
type lexer struct {
	input    string
	start    int // beginning of the pending word
	position int
	width    int // width of the last rune read by next
	items    chan Item
}

// lex creates a lexer and starts scanning the provided input.
// Consumer must drain the items channel until it is closed.
func lex(input string) *lexer {
	l := &lexer{
		input: input,
		items: make(chan Item),
	}
	go l.scan()
	return l
}

func (l *lexer) scan() {
	for fn := lexCondition; fn != nil; {
		fn = fn(l)
	}
	close(l.items)
}

func (l *lexer) next() (r rune) {
	if l.position >= len(l.input) {
		l.width = 0
		return eof
	}
	r, l.width = utf8.DecodeRuneInString(l.todo())
	l.position += l.width
	return r
}

func (l *lexer) backup() { l.position -= l.width }
func (l *lexer) ignore() { l.start = l.position }

func (l lexer) pending() string { return l.input[l.start:l.position] }
func (l lexer) todo() string    { return l.input[l.position:] }

func (l *lexer) emit(t Token) {
	l.items <- Item{T: t, Val: l.pending()}
	l.ignore()
}

// flush emits the word collected so far, if any
func (l *lexer) flush() {
	if l.position > l.start {
		l.emit(classifyWord(l.pending()))
	}
}

// atStatement reports if remaining input begins with a 1 of / all of statement
func (l lexer) atStatement(t Token) bool {
	lit := t.Literal()
	if !strings.HasPrefix(strings.ToLower(l.todo()), lit) {
		return false
	}
	rest := l.todo()[len(lit):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r)
}

type stateFn func(*lexer) stateFn

var separators = map[rune]Token{
	'(': TokSepLpar,
	')': TokSepRpar,
	'|': TokSepPipe,
}

func lexCondition(l *lexer) stateFn {
	for {
		// statements only begin on a word boundary
		if l.position == l.start {
			for _, st := range []Token{TokStOne, TokStAll} {
				if l.atStatement(st) {
					return lexStatement(st)
				}
			}
		}
		r := l.next()
		if r == eof {
			return lexEOF
		}
		if t, ok := separators[r]; ok {
			return lexSeparator(t)
		}
		if unicode.IsSpace(r) {
			l.backup()
			l.flush()
			return lexWhitespace
		}
	}
}

func lexStatement(t Token) stateFn {
	return func(l *lexer) stateFn {
		l.position += len(t.Literal())
		l.emit(t)
		return lexCondition
	}
}

// lexSeparator is entered with the separator rune already consumed
func lexSeparator(t Token) stateFn {
	return func(l *lexer) stateFn {
		l.backup()
		l.flush()
		l.next()
		l.emit(t)
		if t == TokSepPipe {
			l.items <- Item{T: TokUnsupp, Val: fmt.Sprintf("aggregation not supported [%s]", l.input)}
			return nil
		}
		return lexCondition
	}
}

func lexEOF(l *lexer) stateFn {
	l.flush()
	l.emit(TokLitEof)
	return nil
}

func lexWhitespace(l *lexer) stateFn {
	for {
		switch r := l.next(); {
		case r == eof:
			return lexEOF
		case !unicode.IsSpace(r):
			l.backup()
			return lexCondition
		default:
			l.ignore()
		}
	}
}

var keywords = map[string]Token{
	"and":   TokKeywordAnd,
	"or":    TokKeywordOr,
	"not":   TokKeywordNot,
	"near":  TokKeywordNear,
	"them":  TokIdentifierAll,
	"sum":   TokKeywordAgg,
	"min":   TokKeywordAgg,
	"max":   TokKeywordAgg,
	"count": TokKeywordAgg,
	"avg":   TokKeywordAgg,
}

// classifyWord maps a condition word to keyword or identifier token
func classifyWord(word string) Token {
	if word == "" {
		return TokNil
	}
	if t, ok := keywords[strings.ToLower(word)]; ok {
		return t
	}
	if strings.Contains(word, "*") {
		return TokIdentifierWithWildcard
	}
	return TokIdentifier
}
