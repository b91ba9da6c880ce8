package limacharlie

import (
	"fmt"
	"io"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v2"
)

// Format is a serialization format for D&R documents
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates user provided output format
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %s, expected yaml or json", s)
	}
}

var (
	jsonCompact = jsoniter.ConfigCompatibleWithStandardLibrary
	jsonIndent  = jsoniter.Config{
		EscapeHTML:    true,
		SortMapKeys:   true,
		IndentionStep: 2,
	}.Froze()
)

// MapSlice returns node keys in fixed order
// op, not, path, value, re, case sensitive, rules
func (n Node) MapSlice() yaml.MapSlice {
	out := yaml.MapSlice{{Key: "op", Value: string(n.Op)}}
	if n.Not {
		out = append(out, yaml.MapItem{Key: "not", Value: true})
	}
	if n.Path != "" {
		out = append(out, yaml.MapItem{Key: "path", Value: n.Path})
	}
	if n.Value != nil {
		out = append(out, yaml.MapItem{Key: "value", Value: n.Value})
	}
	if n.Re != "" {
		out = append(out, yaml.MapItem{Key: "re", Value: n.Re})
	}
	if n.CaseSensitive != nil {
		out = append(out, yaml.MapItem{Key: "case sensitive", Value: *n.CaseSensitive})
	}
	if len(n.Rules) > 0 {
		rules := make([]interface{}, 0, len(n.Rules))
		for _, r := range n.Rules {
			if r == nil {
				continue
			}
			rules = append(rules, r.MapSlice())
		}
		out = append(out, yaml.MapItem{Key: "rules", Value: rules})
	}
	return out
}

// MapSlice merges params after node keys, params are sorted
// A param sharing a name with a node key replaces its value in place
func (d Detect) MapSlice() yaml.MapSlice {
	var out yaml.MapSlice
	if d.Node != nil {
		out = d.Node.MapSlice()
	}
	keys := make([]string, 0, len(d.Params))
	for k := range d.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
loop:
	for _, k := range keys {
		for i := range out {
			if out[i].Key == k {
				out[i].Value = d.Params[k]
				continue loop
			}
		}
		out = append(out, yaml.MapItem{Key: k, Value: d.Params[k]})
	}
	return out
}

// MapSlice returns metadata in order tags, description, references, level, author
func (m Metadata) MapSlice() yaml.MapSlice {
	out := make(yaml.MapSlice, 0, 5)
	if m.Tags != nil {
		out = append(out, yaml.MapItem{Key: "tags", Value: m.Tags})
	}
	if m.Description != nil {
		out = append(out, yaml.MapItem{Key: "description", Value: *m.Description})
	}
	if m.References != nil {
		out = append(out, yaml.MapItem{Key: "references", Value: m.References})
	}
	if m.Level != nil {
		out = append(out, yaml.MapItem{Key: "level", Value: *m.Level})
	}
	if m.Author != nil {
		out = append(out, yaml.MapItem{Key: "author", Value: *m.Author})
	}
	return out
}

func (a Action) MapSlice() yaml.MapSlice {
	out := yaml.MapSlice{
		{Key: "action", Value: a.Action},
		{Key: "name", Value: a.Name},
	}
	if a.Metadata != nil {
		out = append(out, yaml.MapItem{Key: "metadata", Value: a.Metadata.MapSlice()})
	}
	return out
}

// MapSlice returns detect before respond
func (d Document) MapSlice() yaml.MapSlice {
	respond := make([]interface{}, 0, len(d.Respond))
	for _, a := range d.Respond {
		respond = append(respond, a.MapSlice())
	}
	return yaml.MapSlice{
		{Key: "detect", Value: d.Detect.MapSlice()},
		{Key: "respond", Value: respond},
	}
}

// MarshalYAML implements yaml.Marshaler
func (d Document) MarshalYAML() (interface{}, error) { return d.MapSlice(), nil }

// MarshalYAML implements yaml.Marshaler
func (n Node) MarshalYAML() (interface{}, error) { return n.MapSlice(), nil }

// MarshalJSON implements json.Marshaler while keeping key order
func (d Document) MarshalJSON() ([]byte, error) { return marshalOrdered(jsonCompact, d.MapSlice()) }

// MarshalJSON implements json.Marshaler while keeping key order
func (n Node) MarshalJSON() ([]byte, error) { return marshalOrdered(jsonCompact, n.MapSlice()) }

func marshalOrdered(api jsoniter.API, v yaml.MapSlice) ([]byte, error) {
	stream := api.BorrowStream(nil)
	defer api.ReturnStream(stream)
	writeOrdered(stream, v)
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func writeOrdered(s *jsoniter.Stream, v interface{}) {
	switch t := v.(type) {
	case yaml.MapSlice:
		if len(t) == 0 {
			s.WriteEmptyObject()
			return
		}
		s.WriteObjectStart()
		for i, item := range t {
			if i > 0 {
				s.WriteMore()
			}
			s.WriteObjectField(fmt.Sprintf("%v", item.Key))
			writeOrdered(s, item.Value)
		}
		s.WriteObjectEnd()
	case []interface{}:
		if len(t) == 0 {
			s.WriteEmptyArray()
			return
		}
		s.WriteArrayStart()
		for i, item := range t {
			if i > 0 {
				s.WriteMore()
			}
			writeOrdered(s, item)
		}
		s.WriteArrayEnd()
	default:
		s.WriteVal(t)
	}
}

// Encode serializes a document into writer
// YAML documents are prefixed with a separator so multiple rules can share one stream
func Encode(w io.Writer, doc *Document, f Format) error {
	if doc == nil {
		return fmt.Errorf("missing document")
	}
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatYAML:
		data, err = yaml.Marshal(doc)
		if err == nil {
			data = append([]byte("---\n"), data...)
		}
	case FormatJSON:
		data, err = marshalOrdered(jsonIndent, doc.MapSlice())
		if err == nil {
			data = append(data, '\n')
		}
	default:
		return fmt.Errorf("unsupported output format %s", f)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
