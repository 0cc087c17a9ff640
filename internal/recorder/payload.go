package recorder

import (
	"encoding/json"
	"fmt"
)

// ConvertPayload applies the bag payload conversion rule to an
// arbitrary value a caller wants recorded directly (bypassing a node's
// own wire.ToPayload encode): bytes-like values pass through verbatim,
// strings become their UTF-8 bytes, anything else is JSON-encoded, and
// only if JSON encoding itself fails does it fall back to a textual
// %v representation. internal/node's Put already serializes through
// internal/wire before calling Record, so this exists for callers that
// hand the recorder a raw Go value directly (tests, and any future
// non-node producer of bag entries).
func ConvertPayload(value any) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		data, err := json.Marshal(value)
		if err == nil {
			return data
		}
		return []byte(fmt.Sprintf("%v", value))
	}
}
