// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package trackerdata

import (
	"io"
	"mime"
	"reflect"
	"strings"
	"time"

	"github.com/ugorji/go/codec"
)

// NewJSONHandle returns the codec handle used on both sides of the
// wire.  Untyped objects decode as map[string]interface{} and
// integers as int64, so records compare the same whichever side
// built them.
func NewJSONHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	h.SignedInteger = true
	return h
}

// Decode tries to decode a trackerdata object from a reader, such as
// an HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType == "" {
		// RFC 7231 section 3.1.1.5
		contentType = "application/octet-stream"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrBadRequest{Err: err}
	}

	// Promote to more specific types
	switch mediaType {
	case "text/json", "application/json", JSONMediaType, V1JSONMediaType:
		mediaType = V1JSONMediaType
	default:
		return ErrUnsupportedMediaType{Type: mediaType}
	}

	decoder := codec.NewDecoder(r, NewJSONHandle())
	return decoder.Decode(out)
}

// Encode writes the JSON representation of in to w.
func Encode(w io.Writer, in interface{}) error {
	encoder := codec.NewEncoder(w, NewJSONHandle())
	return encoder.Encode(in)
}

// TimeFormat is the RFC 3339 layout of record timestamps.  It is
// fixed-width in UTC, so timestamps order correctly as strings.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime formats a timestamp the way records carry them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a record timestamp, or any RFC 3339 time.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Int converts any Go integer or integral float to int64.
func Int(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		if float32(int64(n)) == n {
			return int64(n), true
		}
	case float64:
		if float64(int64(n)) == n {
			return int64(n), true
		}
	}
	return 0, false
}

func float(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := Int(v); ok {
		return float64(i), true
	}
	return 0, false
}

// Compare orders two record values.  Numbers compare numerically
// whatever their Go type, strings lexically and case-sensitively,
// false before true.  ok is false if the values are of different
// kinds or either is nil.
func Compare(a, b interface{}) (cmp int, ok bool) {
	if fa, isNum := float(a); isNum {
		fb, isNum := float(b)
		if !isNum {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch va := a.(type) {
	case string:
		vb, isString := b.(string)
		if !isString {
			return 0, false
		}
		return strings.Compare(va, vb), true
	case bool:
		vb, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		switch {
		case va == vb:
			return 0, true
		case vb:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// Equal reports whether two record values are the same, with numbers
// normalised as in Compare.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	cmp, ok := Compare(a, b)
	return ok && cmp == 0
}
