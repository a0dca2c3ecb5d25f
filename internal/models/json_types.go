package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FeatureFlags is a JSONB object of plan feature name -> enabled
type FeatureFlags map[string]bool

// Value implements the driver.Valuer interface
func (f FeatureFlags) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface
func (f *FeatureFlags) Scan(src interface{}) error {
	if src == nil {
		*f = FeatureFlags{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FeatureFlags", src)
	}
	flags := FeatureFlags{}
	if err := json.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("failed to decode feature flags: %w", err)
	}
	*f = flags
	return nil
}

// JSONMap is a free-form JSONB document (audit details, event payloads)
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
	return json.Unmarshal(data, m)
}
