package core

import (
	"bytes"
	"encoding/json"
)

// ParseJSONOrRaw decodes body as JSON and falls back to the raw string. A
// parse failure only means the payload was never JSON.
func ParseJSONOrRaw(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return string(body)
	}
	return decoded
}
