package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchemaJSON constrains the shape of a translator.Config
// submitted to /api/import/translate. Vendor-supplied import configs
// are the one piece of attacker-adjacent structured input this service
// accepts from an admiral caller rather than its own Go types, so they
// get schema validation ahead of translator.Translate rather than
// relying on the decode-then-field-miss behaviour a loosely-typed
// EntityConfig would otherwise allow through silently.
const configSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "sourceType"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string"},
    "sourceType": {"type": "string", "minLength": 1},
    "officers": {"$ref": "#/definitions/entityConfig"},
    "ships": {"$ref": "#/definitions/entityConfig"},
    "docks": {"$ref": "#/definitions/entityConfig"}
  },
  "definitions": {
    "entityConfig": {
      "type": "object",
      "required": ["sourcePath", "idField", "fieldMap"],
      "properties": {
        "sourcePath": {"type": "string", "minLength": 1},
        "idField": {"type": "string", "minLength": 1},
        "idPrefix": {"type": "string"},
        "shipIdPrefix": {"type": "string"},
        "fieldMap": {"type": "object"},
        "defaults": {"type": "object"},
        "transforms": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["kind"],
            "properties": {
              "kind": {"enum": ["lookup", "toString", "toNumber", "toBoolean"]},
              "table": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

var configSchema = jsonschema.MustCompileString("translator_config.json", configSchemaJSON)

// validateConfigJSON validates a translator.Config's wire representation
// before it ever reaches translator.Translate, so a malformed vendor
// mapping fails with a pointed INVALID_PARAM detail instead of a
// generic decode error or a silently-empty translation.
func validateConfigJSON(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config is not valid JSON: %w", err)
	}
	if err := configSchema.Validate(v); err != nil {
		return fmt.Errorf("config failed validation: %w", err)
	}
	return nil
}
