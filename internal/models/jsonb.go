package models

import (
	"encoding/json"
	"fmt"
)

// scanJSON decodes a JSONB column into dst. NULL and empty payloads leave dst untouched.
func scanJSON(src interface{}, dst interface{}, name string) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", src, name)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

func valueJSON(v interface{}, name string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	return data, nil
}
