package models

import (
	"database/sql/driver"
	"encoding/json"
)

// StringSlice is a custom type for storing string arrays in JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), s)
}

// JSON is a custom type for storing arbitrary JSON data
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), j)
}

// ResultList is a custom type for storing per-platform publish results in JSON
type ResultList []PostResult

func (r ResultList) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *ResultList) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), r)
}
