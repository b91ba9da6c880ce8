package limacharlie

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var compileValueTestCases = []struct {
	In         interface{}
	AllStrings bool
	Op         Op
	Out        interface{}
}{
	{In: "cmd.exe", Op: OpIs, Out: "cmd.exe"},
	{In: "*cmd*", Op: OpContains, Out: "cmd"},
	{In: "cmd*", Op: OpStartsWith, Out: "cmd"},
	{In: "*cmd", Op: OpEndsWith, Out: "cmd"},
	{In: "a*b", Op: OpMatches, Out: "a.*b"},
	{In: "a?b", Op: OpIs, Out: "a?b"},
	{In: "*a?b*", Op: OpContains, Out: "a?b"},
	{In: "a*b?c", Op: OpMatches, Out: "a.*b.c"},
	{In: "*", Op: OpContains, Out: ""},
	{In: "**", Op: OpContains, Out: ""},
	{In: "", Op: OpIs, Out: ""},
	{In: "cmd\\*", Op: OpStartsWith, Out: "cmd\\"},
	{In: 4688, Op: OpIs, Out: 4688},
	{In: 4688, AllStrings: true, Op: OpIs, Out: "4688"},
	{In: "4688", AllStrings: true, Op: OpIs, Out: "4688"},
}

func TestCompileValue(t *testing.T) {
	for i, c := range compileValueTestCases {
		op, out := CompileValue(c.In, c.AllStrings)
		if op != c.Op {
			t.Fatalf("case %d value %+v got op %s, expected %s", i, c.In, op, c.Op)
		}
		assert.Equal(t, c.Out, out, "case %d value %+v", i, c.In)
	}
}

var wildcardRegexTestCases = []struct {
	In, Out string
	Match   []string
	NoMatch []string
}{
	{
		In:      "a*b",
		Out:     "a.*b",
		Match:   []string{"ab", "a123b"},
		NoMatch: []string{"ba"},
	},
	{
		In:      "C:\\Windows\\*.exe",
		Out:     "C:\\\\Windows\\.*\\.exe",
		Match:   []string{"C:\\Windows.exe", "C:\\Windows...exe"},
		NoMatch: []string{"C:\\Windows\\cmd.exe"},
	},
	{
		In:      "\"quoted\"*$x^",
		Out:     "\\\"quoted\\\".*\\$x\\^",
		Match:   []string{"\"quoted\" $x^"},
		NoMatch: []string{"quoted $x^"},
	},
	{
		In:  "a.b*c?d",
		Out: "a\\.b.*c.d",
	},
}

func TestWildcardToRegex(t *testing.T) {
	for i, c := range wildcardRegexTestCases {
		out := wildcardToRegex(c.In)
		if out != c.Out {
			t.Fatalf("case %d input %s got %s, expected %s", i, c.In, out, c.Out)
		}
		re, err := regexp.Compile(out)
		if err != nil {
			t.Fatalf("case %d output %s does not compile: %s", i, out, err)
		}
		for _, m := range c.Match {
			assert.True(t, re.MatchString(m), "case %d %s should match %s", i, out, m)
		}
		for _, m := range c.NoMatch {
			assert.False(t, re.MatchString(m), "case %d %s should not match %s", i, out, m)
		}
	}
}
