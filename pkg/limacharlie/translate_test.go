package limacharlie

import (
	"errors"
	"testing"

	"github.com/markuskont/go-sigma-limacharlie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() MappingContext {
	return MappingContext{
		Key: "test//",
		FieldMapping: StaticTable(map[string]string{
			"Image":       "event/FILE_PATH",
			"CommandLine": "event/COMMAND_LINE",
			"Hashes":      Ignore,
			KeywordsField: "event/COMMAND_LINE",
		}),
		KeywordsSupported: true,
	}
}

func item(field string, value interface{}) *sigma.NodeMapItem {
	return &sigma.NodeMapItem{Field: field, Value: value}
}

func value(v interface{}) *sigma.NodeValue {
	return &sigma.NodeValue{Literal: v}
}

func insensitive(op Op, path string, v interface{}) *Node {
	return newMatch(op, path, v)
}

func TestTranslateMapItemScalar(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, item("Image", "*\\cmd.exe"))
	require.NoError(t, err)
	assert.Equal(t, insensitive(OpEndsWith, "event/FILE_PATH", "\\cmd.exe"), n)
}

func TestTranslateMapItemNull(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, item("Image", nil))
	require.NoError(t, err)
	assert.Equal(t, &Node{Op: OpExists, Not: true, Path: "event/FILE_PATH"}, n)
}

func TestTranslateMapItemList(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, item("Image", []interface{}{"a.exe", "*b*"}))
	require.NoError(t, err)
	assert.Equal(t, newCombinator(OpOr, []*Node{
		insensitive(OpIs, "event/FILE_PATH", "a.exe"),
		insensitive(OpContains, "event/FILE_PATH", "b"),
	}), n)

	n, err = TranslateDetection(ctx, item("Image", []interface{}{"a.exe"}))
	require.NoError(t, err)
	assert.Equal(t, insensitive(OpIs, "event/FILE_PATH", "a.exe"), n, "single item list collapses")

	_, err = TranslateDetection(ctx, item("Image", []interface{}{}))
	var valErr ErrUnsupportedValueType
	assert.True(t, errors.As(err, &valErr), "empty list should not translate, got %v", err)
}

func TestTranslateWildcardRegex(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, item("CommandLine", "powershell*-enc*"))
	require.NoError(t, err)
	assert.Equal(t, insensitive(OpMatches, "event/COMMAND_LINE", "powershell.*-enc.*"), n)
	assert.Empty(t, n.Re)

	data, err := n.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"op":"matches","path":"event/COMMAND_LINE","value":"powershell.*-enc.*","case sensitive":false}`,
		string(data))
}

func TestTranslateRegexModifier(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, item("CommandLine", sigma.Regex(`^cmd\.exe /c .+$`)))
	require.NoError(t, err)
	assert.Equal(t, &Node{Op: OpMatches, Path: "event/COMMAND_LINE", Re: `^cmd\.exe /c .+$`}, n)

	_, err = TranslateDetection(ctx, item("CommandLine", sigma.Regex(`(unclosed`)))
	var reErr ErrInvalidRegex
	require.True(t, errors.As(err, &reErr), "expected invalid regex, got %v", err)
	assert.Equal(t, "CommandLine", reErr.Field)
}

type base64Modifier string

func (b base64Modifier) Modifier() string { return "base64" }

func TestTranslateUnsupportedValues(t *testing.T) {
	ctx := testContext()
	for i, v := range []interface{}{
		base64Modifier("x"),
		3.14,
		map[string]interface{}{"a": "b"},
		[]interface{}{"a", []interface{}{"b"}},
	} {
		_, err := TranslateDetection(ctx, item("Image", v))
		var valErr ErrUnsupportedValueType
		if !errors.As(err, &valErr) {
			t.Fatalf("case %d value %+v expected unsupported value type, got %v", i, v, err)
		}
		if valErr.Field != "Image" || valErr.Key != "test//" {
			t.Fatalf("case %d missing error context %+v", i, valErr)
		}
	}
}

func TestTranslateUnsupportedField(t *testing.T) {
	ctx := testContext()
	_, err := TranslateDetection(ctx, item("TargetFilename", "x"))
	var fieldErr ErrUnsupportedField
	require.True(t, errors.As(err, &fieldErr), "got %v", err)
	assert.Equal(t, ErrUnsupportedField{Field: "TargetFilename", Key: "test//"}, fieldErr)
}

func TestTranslateAndDropsIgnored(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, &sigma.NodeAnd{Children: []sigma.Expr{
		item("Hashes", "MD5=abc"),
		item("Image", "a.exe"),
	}})
	require.NoError(t, err)
	assert.Equal(t, insensitive(OpIs, "event/FILE_PATH", "a.exe"), n, "single survivor should collapse")

	n, err = TranslateDetection(ctx, &sigma.NodeAnd{Children: []sigma.Expr{
		item("Image", "a.exe"),
		item("Hashes", "MD5=abc"),
		item("CommandLine", "*x*"),
	}})
	require.NoError(t, err)
	assert.Equal(t, newCombinator(OpAnd, []*Node{
		insensitive(OpIs, "event/FILE_PATH", "a.exe"),
		insensitive(OpContains, "event/COMMAND_LINE", "x"),
	}), n)
}

func TestTranslateEmptyRoot(t *testing.T) {
	ctx := testContext()
	_, err := TranslateDetection(ctx, &sigma.NodeAnd{Children: []sigma.Expr{
		item("Hashes", "MD5=abc"),
	}})
	var selErr ErrMalformedSelection
	assert.True(t, errors.As(err, &selErr), "fully ignored rule must not translate, got %v", err)

	_, err = TranslateDetection(ctx, nil)
	assert.True(t, errors.As(err, &selErr), "nil root must not translate, got %v", err)
}

func TestTranslateKeywords(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, &sigma.NodeOr{Children: []sigma.Expr{
		value("*mimikatz*"),
		value("sekurlsa"),
	}})
	require.NoError(t, err)
	assert.Equal(t, newCombinator(OpOr, []*Node{
		{Op: OpContains, Path: "event/COMMAND_LINE", Value: "mimikatz"},
		{Op: OpIs, Path: "event/COMMAND_LINE", Value: "sekurlsa"},
	}), n)

	n, err = TranslateDetection(ctx, &sigma.NodeOr{Children: []sigma.Expr{value("whoami*")}})
	require.NoError(t, err)
	assert.Equal(t, &Node{Op: OpStartsWith, Path: "event/COMMAND_LINE", Value: "whoami"}, n)

	ctx.KeywordsSupported = false
	_, err = TranslateDetection(ctx, &sigma.NodeOr{Children: []sigma.Expr{value("whoami")}})
	var kwErr ErrUnsupportedKeywordSearch
	require.True(t, errors.As(err, &kwErr), "got %v", err)
	assert.Equal(t, "test//", kwErr.Key)
}

func TestTranslateKeywordsIgnored(t *testing.T) {
	ctx := testContext()
	ctx.FieldMapping = StaticTable(map[string]string{KeywordsField: Ignore, "Image": "event/FILE_PATH"})
	n, err := TranslateDetection(ctx, &sigma.NodeAnd{Children: []sigma.Expr{
		&sigma.NodeOr{Children: []sigma.Expr{value("whoami")}},
		item("Image", "a.exe"),
	}})
	require.NoError(t, err)
	assert.Equal(t, insensitive(OpIs, "event/FILE_PATH", "a.exe"), n)
}

func TestTranslateMixedSelection(t *testing.T) {
	ctx := testContext()
	for i, root := range []sigma.Expr{
		&sigma.NodeAnd{Children: []sigma.Expr{item("Image", "a.exe"), value("whoami")}},
		&sigma.NodeOr{Children: []sigma.Expr{value("whoami"), item("Image", "a.exe")}},
		&sigma.NodeOr{Children: []sigma.Expr{item("Image", "a.exe"), value("whoami")}},
	} {
		_, err := TranslateDetection(ctx, root)
		var selErr ErrMalformedSelection
		if !errors.As(err, &selErr) {
			t.Fatalf("case %d expected malformed selection, got %v", i, err)
		}
	}
}

func TestTranslateNegation(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, &sigma.NodeNot{Child: item("Image", "a.exe")})
	require.NoError(t, err)
	assert.True(t, n.Not)

	n, err = TranslateDetection(ctx, &sigma.NodeNot{Child: &sigma.NodeNot{Child: item("Image", "a.exe")}})
	require.NoError(t, err)
	assert.False(t, n.Not, "double negation should cancel out")

	n, err = TranslateDetection(ctx, &sigma.NodeAnd{Children: []sigma.Expr{
		item("Image", "a.exe"),
		&sigma.NodeNot{Child: item("Hashes", "x")},
	}})
	require.NoError(t, err)
	assert.Equal(t, insensitive(OpIs, "event/FILE_PATH", "a.exe"), n, "negated ignored clause is dropped")

	_, err = TranslateDetection(ctx, &sigma.NodeAnd{Children: []sigma.Expr{
		item("Image", "a.exe"),
		&sigma.NodeNot{Child: value("whoami")},
	}})
	var negErr ErrUnsupportedNegation
	require.True(t, errors.As(err, &negErr), "got %v", err)
	assert.Equal(t, sigma.KindValue, negErr.Kind)

	_, err = TranslateDetection(ctx, &sigma.NodeNot{Child: &sigma.NodeList{Values: []sigma.Expr{item("Image", "a")}}})
	assert.True(t, errors.As(err, &negErr), "negated list must fail, got %v", err)
}

func TestTranslateListFlattening(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, &sigma.NodeOr{Children: []sigma.Expr{
		&sigma.NodeList{Values: []sigma.Expr{
			item("Image", "a.exe"),
			item("Hashes", "x"),
			item("Image", "b.exe"),
		}},
		&sigma.NodeSubexpression{Child: item("CommandLine", "c")},
	}})
	require.NoError(t, err)
	assert.Equal(t, newCombinator(OpOr, []*Node{
		insensitive(OpIs, "event/FILE_PATH", "a.exe"),
		insensitive(OpIs, "event/FILE_PATH", "b.exe"),
		insensitive(OpIs, "event/COMMAND_LINE", "c"),
	}), n)
}

func TestTranslateValueNodes(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, sigma.NodeAnd{Children: []sigma.Expr{
		sigma.NodeMapItem{Field: "Image", Value: "a.exe"},
		sigma.NodeNot{Child: sigma.NodeMapItem{Field: "CommandLine", Value: "b"}},
	}})
	require.NoError(t, err)
	require.Len(t, n.Rules, 2)
	assert.True(t, n.Rules[1].Not)
}

func TestTranslateComputedMapping(t *testing.T) {
	ctx, err := DefaultRegistry().Lookup("windows", "", "")
	require.NoError(t, err)
	n, err := TranslateDetection(ctx, &sigma.NodeAnd{Children: []sigma.Expr{
		item("EventID", 4688),
		item("NewProcessName", "*\\whoami.exe"),
	}})
	require.NoError(t, err)
	assert.Equal(t, newCombinator(OpAnd, []*Node{
		insensitive(OpIs, "Event/System/EventID", "4688"),
		insensitive(OpEndsWith, "Event/EventData/NewProcessName", "\\whoami.exe"),
	}), n)
}

func TestTranslatePreconditionIsolation(t *testing.T) {
	reg := DefaultRegistry()
	ctx, err := reg.Lookup("windows", "process_creation", "")
	require.NoError(t, err)

	first, err := TranslateDetection(ctx, item("Image", "a.exe"))
	require.NoError(t, err)
	first.Rules[0].Not = true
	first.Rules[0].Path = "mutated"

	second, err := TranslateDetection(ctx, &sigma.NodeNot{Child: item("Image", "a.exe")})
	require.NoError(t, err)
	assert.Equal(t, &Node{Op: OpIsWindows}, second.Rules[0])
	assert.Equal(t, &Node{Op: OpIsWindows}, reg["windows/process_creation/"].Precondition)
}

func TestTranslateTypedNil(t *testing.T) {
	ctx := testContext()
	for i, root := range []sigma.Expr{
		(*sigma.NodeAnd)(nil),
		(*sigma.NodeMapItem)(nil),
		&sigma.NodeOr{Children: []sigma.Expr{item("Image", "a.exe"), (*sigma.NodeValue)(nil)}},
		&sigma.NodeNot{Child: (*sigma.NodeSubexpression)(nil)},
	} {
		_, err := TranslateDetection(ctx, root)
		var selErr ErrMalformedSelection
		if !errors.As(err, &selErr) {
			t.Fatalf("case %d expected malformed selection, got %v", i, err)
		}
	}
}

func TestTranslateBoolValue(t *testing.T) {
	ctx := testContext()
	n, err := TranslateDetection(ctx, item("Image", true))
	require.NoError(t, err)
	assert.Equal(t, insensitive(OpIs, "event/FILE_PATH", true), n)

	ctx.AllValuesAreStrings = true
	n, err = TranslateDetection(ctx, item("Image", []interface{}{false}))
	require.NoError(t, err)
	assert.Equal(t, insensitive(OpIs, "event/FILE_PATH", "false"), n)
}
