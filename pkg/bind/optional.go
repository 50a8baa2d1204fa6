package bind

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a JSON field was present and whether it was
// null, so PATCH-style payloads can tell "leave alone" from "clear".
//
//	type Patch struct {
//	    Note bind.Optional[string] `json:"note"`
//	}
//
// An absent key leaves Set false. `"note": null` sets Set and Null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON is only invoked when the key is present.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// Ptr returns nil for an explicit null and a pointer to Value otherwise.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// Some builds a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}
