package reader

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Fields gives typed access to the top-level members of one JSON object.
//
// Accessors never fail: a missing member or JSON null yields the zero value (or nil for
// the Ptr variants); a member whose JSON type does not fit yields the same and is
// counted in Malformed.
type Fields struct {
	raw       map[string]json.RawMessage
	Malformed int
}

// NewFields wraps the decoded members of one object.
func NewFields(raw map[string]json.RawMessage) *Fields {
	return &Fields{raw: raw}
}

func (f *Fields) lookup(key string) (json.RawMessage, bool) {
	v, ok := f.raw[key]
	if !ok {
		return nil, false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil, false
	}
	return v, true
}

// StringPtr reads a string member. Numbers and booleans are kept as their literal text,
// objects and arrays are malformed.
func (f *Fields) StringPtr(key string) *string {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			f.Malformed++
			return nil
		}
		return &s
	case '{', '[':
		f.Malformed++
		return nil
	default:
		s := string(v)
		return &s
	}
}

// String is StringPtr with null mapped to "".
func (f *Fields) String(key string) string {
	if s := f.StringPtr(key); s != nil {
		return *s
	}
	return ""
}

// Int64Ptr reads an integral number member.
func (f *Fields) Int64Ptr(key string) *int64 {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		f.Malformed++
		return nil
	}
	return &n
}

// Int64 is Int64Ptr with null mapped to 0.
func (f *Fields) Int64(key string) int64 {
	if n := f.Int64Ptr(key); n != nil {
		return *n
	}
	return 0
}

// Int32 reads an integral number member that must fit in 32 bits.
func (f *Fields) Int32(key string) int32 {
	n := f.Int64Ptr(key)
	if n == nil {
		return 0
	}
	if *n < math.MinInt32 || *n > math.MaxInt32 {
		f.Malformed++
		return 0
	}
	return int32(*n)
}

// Float64Ptr reads any number member.
func (f *Fields) Float64Ptr(key string) *float64 {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	if v[0] == '"' || v[0] == '{' || v[0] == '[' || v[0] == 't' || v[0] == 'f' {
		f.Malformed++
		return nil
	}
	x, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		f.Malformed++
		return nil
	}
	return &x
}

// Float64 is Float64Ptr with null mapped to 0.
func (f *Fields) Float64(key string) float64 {
	if x := f.Float64Ptr(key); x != nil {
		return *x
	}
	return 0
}
