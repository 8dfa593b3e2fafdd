package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownVariant = errors.New("unknown message variant")

// Messages are externally tagged: a variant without payload is encoded as its
// name in a JSON string, a variant with payload as a single-key object
// {"Name": payload}.

func encodeTagged(tag string, payload any) ([]byte, error) {
	if payload == nil {
		return json.Marshal(tag)
	}
	return json.Marshal(map[string]any{tag: payload})
}

func decodeTagged(data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, errors.New("empty message")
	}

	if data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return "", nil, err
		}
		return tag, nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, err
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("tagged object must have exactly one key, got %d", len(obj))
	}
	for tag, payload := range obj {
		return tag, payload, nil
	}
	panic("unreachable")
}

func unitVariant(tag string, payload json.RawMessage) error {
	if payload != nil {
		return fmt.Errorf("variant %s takes no payload", tag)
	}
	return nil
}

func payloadVariant(tag string, payload json.RawMessage, v any) error {
	if payload == nil {
		return fmt.Errorf("variant %s requires a payload", tag)
	}
	return json.Unmarshal(payload, v)
}
