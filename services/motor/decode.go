package motor

import (
	"encoding/json"

	"stepdrive-go/errcode"
)

// decode accepts T, *T, or anything that round-trips through JSON into T
// (maps from remote clients, raw bytes, strings).
func decode[T any](src any) (T, error) {
	var out T
	switch v := src.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	case nil:
	case []byte:
		if err := json.Unmarshal(v, &out); err == nil {
			return out, nil
		}
	case string:
		if err := json.Unmarshal([]byte(v), &out); err == nil {
			return out, nil
		}
	default:
		if b, err := json.Marshal(v); err == nil {
			if err := json.Unmarshal(b, &out); err == nil {
				return out, nil
			}
		}
	}
	return out, errcode.InvalidPayload
}
