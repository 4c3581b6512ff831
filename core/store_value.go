package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EncodeStoreValue converts a value into its stored string form. Strings and
// byte slices are kept as-is, primitives are formatted, everything else is
// JSON-encoded.
func EncodeStoreValue(value any) (string, error) {
	switch typed := value.(type) {
	case nil:
		return "", fmt.Errorf("core: store value is nil")
	case string:
		return typed, nil
	case []byte:
		return string(typed), nil
	case json.RawMessage:
		return string(typed), nil
	case bool:
		return strconv.FormatBool(typed), nil
	case int:
		return strconv.Itoa(typed), nil
	case int64:
		return strconv.FormatInt(typed, 10), nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), nil
	case fmt.Stringer:
		return typed.String(), nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return "", fmt.Errorf("core: encode store value: %w", err)
		}
		return string(encoded), nil
	}
}
