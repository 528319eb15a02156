package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap represents a free-form structured payload persisted as JSONB.
type JSONMap map[string]any

// Value marshals the map into JSON for Postgres.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the map.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("jsonmap: unsupported scan type %T", value)
	}

	result := make(JSONMap)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*m = result
	return nil
}
