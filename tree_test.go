package sigma

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// dump renders expression tree in a compact, comparable form
func dump(e Expr) string {
	switch n := e.(type) {
	case *NodeAnd:
		return "AND(" + dumpList(n.Children) + ")"
	case *NodeOr:
		return "OR(" + dumpList(n.Children) + ")"
	case *NodeNot:
		return "NOT(" + dump(n.Child) + ")"
	case *NodeSubexpression:
		return "SUB(" + dump(n.Child) + ")"
	case *NodeList:
		return "LIST(" + dumpList(n.Values) + ")"
	case *NodeMapItem:
		return fmt.Sprintf("%s=%#v", n.Field, n.Value)
	case *NodeValue:
		return fmt.Sprintf("%#v", n.Literal)
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%#v", n)
	}
}

func dumpList(rx []Expr) string {
	out := make([]string, 0, len(rx))
	for _, e := range rx {
		out = append(out, dump(e))
	}
	return strings.Join(out, ", ")
}

var treeErrorRules = []struct {
	Rule  string
	Check func(error) bool
}{
	{
		Rule: `
title: no detection
`,
		Check: func(err error) bool { return errors.As(err, &ErrMissingDetection{}) },
	},
	{
		Rule: `
title: no condition
detection:
  selection:
    Image: a.exe
`,
		Check: func(err error) bool { return errors.As(err, &ErrMissingCondition{}) },
	},
	{
		Rule: `
title: only condition
detection:
  condition: selection
`,
		Check: func(err error) bool { return errors.As(err, &ErrEmptyDetection{}) },
	},
	{
		Rule: `
title: aggregation
detection:
  selection:
    Image: a.exe
  condition: selection | count(Image) by User > 10
`,
		Check: func(err error) bool { return errors.As(err, &ErrUnsupportedToken{}) },
	},
}

func TestTreeErrors(t *testing.T) {
	for i, c := range treeErrorRules {
		_, err := parseTestRule(t, c.Rule)
		if !c.Check(err) {
			t.Fatalf("tree error case %d got unexpected error %v", i, err)
		}
	}
}

func TestTreeKeepsRule(t *testing.T) {
	tree, err := parseTestRule(t, detection2)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Rule == nil || tree.Rule.Detection == nil {
		t.Fatal("tree should reference source rule")
	}
	if tree.Root.Kind() != KindAnd {
		t.Fatalf("expected AND root, got %s", tree.Root.Kind())
	}
}

func benchmarkParse(b *testing.B, raw string) {
	rule, err := ParseRule([]byte(raw))
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		if _, err := NewTree(RuleHandle{Rule: *rule}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTreeSimple(b *testing.B)    { benchmarkParse(b, detection1) }
func BenchmarkTreeStatement(b *testing.B) { benchmarkParse(b, detection4) }
func BenchmarkTreeThem(b *testing.B)      { benchmarkParse(b, detection5) }
