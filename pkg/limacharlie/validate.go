package limacharlie

import (
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["detect", "respond"],
  "properties": {
    "detect": {"$ref": "#/definitions/node"},
    "respond": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["action", "name"],
        "properties": {
          "action": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "metadata": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "tags": {"type": "array"},
              "description": {"type": "string"},
              "references": {"type": "array"},
              "level": {"type": "string"},
              "author": {"type": "string"}
            }
          }
        }
      }
    }
  },
  "definitions": {
    "node": {
      "type": "object",
      "required": ["op"],
      "properties": {
        "op": {"type": "string", "minLength": 1},
        "not": {"type": "boolean"},
        "path": {"type": "string", "minLength": 1},
        "value": {"type": ["string", "integer", "boolean"]},
        "re": {"type": "string", "minLength": 1},
        "case sensitive": {"type": "boolean"},
        "rules": {
          "type": "array",
          "minItems": 1,
          "items": {"$ref": "#/definitions/node"}
        }
      },
      "allOf": [
        {
          "if": {"properties": {"op": {"enum": ["and", "or"]}}},
          "then": {"required": ["rules"]}
        },
        {
          "if": {"properties": {"op": {"enum": ["is", "contains", "starts with", "ends with"]}}},
          "then": {"required": ["path", "value"]}
        },
        {
          "if": {"properties": {"op": {"const": "matches"}}},
          "then": {
            "required": ["path"],
            "oneOf": [{"required": ["value"]}, {"required": ["re"]}]
          }
        },
        {
          "if": {"properties": {"op": {"const": "exists"}}},
          "then": {"required": ["path"]}
        }
      ]
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	})
	return compiledSchema, schemaErr
}

// Validate checks document structure against the D&R rule schema
// Every translated document should pass, failure indicates a broken mapping context
func Validate(doc *Document) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	errs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, e.String())
	}
	name := ""
	if len(doc.Respond) > 0 {
		name = doc.Respond[0].Name
	}
	return ErrInvalidDocument{Name: name, Errs: errs}
}
