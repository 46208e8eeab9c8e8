package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"rento/workflow/applications"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Timeline is the ordered application history, kept as a JSON array in one
// column.
type Timeline []applications.TimelineEntry

// Value always writes an array, "[]" for a nil timeline.
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]applications.TimelineEntry(t))
	if err != nil {
		return nil, fmt.Errorf("encode timeline: %w", err)
	}
	return string(b), nil
}

// Scan reads a stored timeline. NULL, malformed JSON and non-array values
// all read as an empty timeline.
func (t *Timeline) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*t = Timeline{}
		return nil
	}

	var entries []applications.TimelineEntry
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		*t = Timeline{}
		return nil
	}
	*t = entries
	return nil
}

// GormDBDataType picks jsonb on postgres and text elsewhere.
func (Timeline) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}
