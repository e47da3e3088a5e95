package agentreact

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Gurpartap/jiraagent/agent"
)

func indexToolDefinitions(definitions []agent.ToolDefinition) map[string]agent.ToolDefinition {
	out := make(map[string]agent.ToolDefinition, len(definitions))
	for _, definition := range agent.CloneToolDefinitions(definitions) {
		out[definition.Name] = definition
	}
	return out
}

func validateToolArguments(schema map[string]any, arguments map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	required, err := parseRequiredFields(schema["required"])
	if err != nil {
		return err
	}
	for _, field := range required {
		if _, ok := arguments[field]; !ok {
			return fmt.Errorf("missing required argument %q", field)
		}
	}

	properties, hasProperties := schema["properties"].(map[string]any)
	additionalAllowed := true
	if raw, ok := schema["additionalProperties"]; ok {
		allowed, isBool := raw.(bool)
		if !isBool {
			return errors.New(`input schema "additionalProperties" must be a bool`)
		}
		additionalAllowed = allowed
	}

	keys := make([]string, 0, len(arguments))
	for key := range arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		propertySchema, hasProperty := properties[key]
		if !hasProperty {
			if hasProperties && !additionalAllowed {
				return fmt.Errorf("unknown argument %q", key)
			}
			continue
		}
		propertyMap, ok := propertySchema.(map[string]any)
		if !ok {
			return errors.New(`input schema "properties" entries must be objects`)
		}
		if expected, _ := propertyMap["type"].(string); expected == "string" {
			if _, isString := arguments[key].(string); !isString && arguments[key] != nil {
				return fmt.Errorf("argument %q must be %q", key, expected)
			}
		}
	}
	return nil
}

func parseRequiredFields(raw any) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), value...), nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			field, ok := item.(string)
			if !ok {
				return nil, errors.New(`input schema "required" entries must be strings`)
			}
			out = append(out, field)
		}
		return out, nil
	default:
		return nil, errors.New(`input schema "required" must be an array`)
	}
}
