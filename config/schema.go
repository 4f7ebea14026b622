package config

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "prospector://doctrines.schema.json"

// doctrineSchema describes a doctrine file. Unknown keys are rejected so a
// typo in a tunable fails loudly instead of silently using the default.
const doctrineSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["doctrines"],
  "properties": {
    "default": {"type": "string", "minLength": 1},
    "doctrines": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/definitions/doctrine"}
    }
  },
  "definitions": {
    "strategy": {"enum": ["safe", "resource_aware", "evasive", "rush"]},
    "doctrine": {
      "type": "object",
      "additionalProperties": false,
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "spawn_until_turn": {"type": "integer", "minimum": 0},
        "spawn_until_fraction": {"type": "number", "minimum": 0, "maximum": 1},
        "low_yield_fraction": {"type": "number", "minimum": 0, "maximum": 1},
        "search_radius": {"type": "integer", "minimum": 1, "maximum": 16},
        "crowd_threshold": {"type": "integer", "minimum": 1, "maximum": 3},
        "return_fraction": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
        "endgame_turns": {"type": "integer", "minimum": 0},
        "leave_base": {"type": "boolean"},
        "fuel_check": {"type": "boolean"},
        "navigation": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "travel": {"$ref": "#/definitions/strategy"},
            "return": {"$ref": "#/definitions/strategy"},
            "explore": {"$ref": "#/definitions/strategy"},
            "endgame": {"$ref": "#/definitions/strategy"},
            "leave_base": {"$ref": "#/definitions/strategy"}
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString(schemaURL, doctrineSchema)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile doctrine schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}
