package fields

import (
	"encoding/json"
	"strings"
)

// Map is the extracted field set of one submission, keyed by field name.
// It round-trips through JSONB storage without losing kind information.
type Map map[string]Value

// Get returns the value for key and whether the key is present.
func (m Map) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// Missing reports whether the key is absent or its value carries no data.
func (m Map) Missing(key string) bool {
	v, ok := m[key]
	if !ok {
		return true
	}
	return v.IsMissing()
}

// Display returns the display form of the value, or "" when missing.
func (m Map) Display(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return v.Display()
}

// Money parses the keyed value as a dollar amount.
func (m Map) Money(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return v.Money()
}

// Count parses the keyed value as an integer count.
func (m Map) Count(key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return v.Count()
}

// List splits a comma- or semicolon-separated string value into trimmed,
// lowercased items. Used for multi-valued fields like data_types and
// security_controls.
func (m Map) List(key string) []string {
	raw := m.Display(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	raw = strings.ReplaceAll(raw, ";", ",")
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// FromJSON decodes a JSONB document into a Map.
func FromJSON(data []byte) (Map, error) {
	if len(data) == 0 {
		return Map{}, nil
	}
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = Map{}
	}
	return m, nil
}

// ToJSON encodes the Map for JSONB storage.
func (m Map) ToJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
