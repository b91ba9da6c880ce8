package limacharlie

import (
	"fmt"
	"sort"
)

// Ignore is a static table path that drops the clause from the translated rule
const Ignore = ""

// KeywordsField is the generic field name resolved for free text keyword searches
const KeywordsField = "keywords"

type fieldMappingKind int

const (
	fieldMappingTable fieldMappingKind = iota + 1
	fieldMappingComputed
)

// FieldMapping converts generic sigma field names into event paths
// It is either a static table or a computed function
type FieldMapping struct {
	kind  fieldMappingKind
	table map[string]string
	fn    func(string) string
}

// StaticTable creates a table backed field mapping
// Fields mapped to Ignore are dropped, fields missing from the table are unsupported
func StaticTable(table map[string]string) FieldMapping {
	return FieldMapping{kind: fieldMappingTable, table: table}
}

// Computed creates a field mapping that derives every path from the field name
func Computed(fn func(string) string) FieldMapping {
	return FieldMapping{kind: fieldMappingComputed, fn: fn}
}

// Resolve returns the event path for a field
// ignore is set when the clause should be elided
func (f FieldMapping) Resolve(field string) (path string, ignore bool, err error) {
	switch f.kind {
	case fieldMappingTable:
		p, ok := f.table[field]
		if !ok {
			return "", false, ErrUnsupportedField{Field: field}
		}
		return p, p == Ignore, nil
	case fieldMappingComputed:
		p := f.fn(field)
		return p, p == Ignore, nil
	default:
		return "", false, fmt.Errorf("field mapping for %s is not initialized", field)
	}
}

// IsComputed reports if mapping is function based
func (f FieldMapping) IsComputed() bool { return f.kind == fieldMappingComputed }

// MappingContext holds target schema knowledge for one sigma log source
type MappingContext struct {
	// Key is the product/category/service triple
	Key string
	// TopLevelParams are merged into the detect component
	TopLevelParams Params
	// Precondition is ANDed with every translated rule, may be nil
	Precondition *Node
	FieldMapping FieldMapping
	// AllValuesAreStrings converts non string values into strings
	AllValuesAreStrings bool
	// KeywordsSupported allows free text keyword lists, aliased to the keywords field
	KeywordsSupported bool
}

// Registry maps log source keys to mapping contexts
type Registry map[string]MappingContext

// Key builds the registry key for a log source triple
func Key(product, category, service string) string {
	return fmt.Sprintf("%s/%s/%s", product, category, service)
}

// Lookup returns the mapping context for an exact log source triple
func (r Registry) Lookup(product, category, service string) (MappingContext, error) {
	key := Key(product, category, service)
	ctx, ok := r[key]
	if !ok {
		return MappingContext{}, ErrUnsupportedLogSource{
			Product:  product,
			Category: category,
			Service:  service,
		}
	}
	ctx.Key = key
	return ctx, nil
}

// Keys returns registered log source keys in sorted order
func (r Registry) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// windowsEventLogFieldName maps every field into the event data of a windows event log record
func windowsEventLogFieldName(field string) string {
	if field == "EventID" {
		return "Event/System/EventID"
	}
	return "Event/EventData/" + field
}

func processEvents() Params {
	return Params{"events": []string{"NEW_PROCESS", "EXISTING_PROCESS"}}
}

func unixProcessContext() MappingContext {
	return MappingContext{
		TopLevelParams: processEvents(),
		Precondition:   &Node{Op: OpIsLinux},
		FieldMapping: StaticTable(map[string]string{
			KeywordsField: "event/COMMAND_LINE",
			"exe":         "event/FILE_PATH",
			"type":        Ignore,
		}),
		KeywordsSupported: true,
	}
}

// DefaultRegistry returns a fresh copy of the built in log source mappings
// Windows event log services share a single entry keyed without service
func DefaultRegistry() Registry {
	return Registry{
		"windows/process_creation/": {
			TopLevelParams: processEvents(),
			Precondition:   &Node{Op: OpIsWindows},
			FieldMapping: StaticTable(map[string]string{
				"CommandLine":       "event/COMMAND_LINE",
				"Image":             "event/FILE_PATH",
				"ParentImage":       "event/PARENT/FILE_PATH",
				"ParentCommandLine": "event/PARENT/COMMAND_LINE",
				"User":              "event/USER_NAME",
				// always paired with Image, redundant in process events
				"OriginalFileName": Ignore,
				// non standard names seen in the wild
				"NewProcessName":     "event/FILE_PATH",
				"ProcessCommandLine": "event/COMMAND_LINE",
				"Command":            "event/COMMAND_LINE",
			}),
		},
		"windows//": {
			TopLevelParams:      Params{"target": "log", "log type": "wel"},
			FieldMapping:        Computed(windowsEventLogFieldName),
			AllValuesAreStrings: true,
		},
		"windows_defender//": {
			TopLevelParams:      Params{"target": "log", "log type": "wel"},
			FieldMapping:        Computed(windowsEventLogFieldName),
			AllValuesAreStrings: true,
		},
		"dns//": {
			TopLevelParams: Params{"event": "DNS_REQUEST"},
			FieldMapping: StaticTable(map[string]string{
				"query": "event/DOMAIN_NAME",
			}),
		},
		"linux//": unixProcessContext(),
		"unix//":  unixProcessContext(),
		"netflow//": {
			TopLevelParams: Params{"event": "NETWORK_CONNECTIONS"},
			FieldMapping: StaticTable(map[string]string{
				"destination.port": "event/NETWORK_ACTIVITY/DESTINATION/PORT",
				"source.port":      "event/NETWORK_ACTIVITY/SOURCE/PORT",
			}),
			// no keywords field is mapped, keyword lists fail as unsupported keyword search
			KeywordsSupported: true,
		},
	}
}
