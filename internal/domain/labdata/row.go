package labdata

import (
	"bytes"
	"encoding/json"
)

// Field is one key/value cell of a row.
type Field struct {
	Key   string
	Value string
}

// Row is an ordered string mapping. Keys keep the position of their first
// insertion; setting an existing key overwrites the value in place.
type Row struct {
	keys   []string
	values map[string]string
}

// NewRow returns a row holding fields in the given order.
func NewRow(fields ...Field) *Row {
	r := &Row{values: make(map[string]string, len(fields))}
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set writes value under key.
func (r *Row) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value under key and whether it is present.
func (r *Row) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Len returns the number of keys.
func (r *Row) Len() int { return len(r.keys) }

// Keys returns a copy of the keys in insertion order.
func (r *Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Fields returns the row's cells in insertion order.
func (r *Row) Fields() []Field {
	out := make([]Field, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, Field{Key: k, Value: r.values[k]})
	}
	return out
}

// Clone returns an independent deep copy.
func (r *Row) Clone() *Row {
	return NewRow(r.Fields()...)
}

// Merge returns a new row with r's fields followed by other's. On a key
// collision other's value wins and the key keeps r's position.
func (r *Row) Merge(other *Row) *Row {
	out := r.Clone()
	for _, f := range other.Fields() {
		out.Set(f.Key, f.Value)
	}
	return out
}

// Equal reports whether both rows hold the same keys in the same order with
// the same values.
func (r *Row) Equal(other *Row) bool {
	if r.Len() != other.Len() {
		return false
	}
	for i, k := range r.keys {
		if other.keys[i] != k || other.values[k] != r.values[k] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the row as a JSON object with keys in row order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
