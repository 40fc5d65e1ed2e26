package models

import "encoding/json"

// Field is an optional value in a partial write. A JSON key that is present
// (even as null) marks the field Set.
type Field[T any] struct {
	Set   bool
	Value T
}

// Set returns a Field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var v T
	if string(data) != "null" {
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
	}
	f.Set = true
	f.Value = v
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
