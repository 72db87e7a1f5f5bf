package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeArguments decodes JSON-shaped tool arguments into dst. Unknown
// fields are rejected so typos in model output surface as errors.
func DecodeArguments(arguments map[string]any, dst any) error {
	if arguments == nil {
		arguments = map[string]any{}
	}
	raw, err := json.Marshal(arguments)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// EncodeResponse flattens a JSON-serializable value into a tool response map.
// Values that do not encode to a JSON object are wrapped under "result".
func EncodeResponse(value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode tool response: %w", err)
	}
	var object map[string]any
	if err := json.Unmarshal(raw, &object); err == nil && object != nil {
		return object, nil
	}
	var scalar any
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return nil, fmt.Errorf("decode tool response: %w", err)
	}
	return map[string]any{"result": scalar}, nil
}
