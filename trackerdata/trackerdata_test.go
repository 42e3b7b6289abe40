// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package trackerdata

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeName(t *testing.T) {
	tests := []struct{ plain, encoded string }{
		{"Shot", "Shot"},
		{"", "-"},
		{"-", "-LQ"},
		{"\u0000", "-AA"},
		{"a b", "-YSBi"},
	}
	for _, test := range tests {
		assert.Equal(t, test.encoded, MaybeEncodeName(test.plain))
		dec, err := MaybeDecodeName(test.encoded)
		if assert.NoError(t, err) {
			assert.Equal(t, test.plain, dec)
		}
	}
	_, err := MaybeDecodeName("-!!")
	assert.Error(t, err)
}

func TestDecodeRecord(t *testing.T) {
	in := `{"records": [{"id": 7, "code": "horse", "ratio": 1.5, "done": true}]}`
	var resp SearchResponse
	err := Decode("application/json; charset=utf-8", strings.NewReader(in), &resp)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	rec := resp.Records[0]
	assert.Equal(t, int64(7), rec.ID())
	assert.Equal(t, int64(7), rec["id"])
	assert.Equal(t, "horse", rec.String("code"))
	assert.Equal(t, "", rec.String("missing"))
	assert.Equal(t, 1.5, rec["ratio"])
	assert.Equal(t, true, rec["done"])
}

func TestDecodeNested(t *testing.T) {
	in := `{"filters": [{"field": "project_id", "op": "in", "value": [1, 2]}], "limit": 3}`
	var req SearchRequest
	require.NoError(t, Decode(V1JSONMediaType, strings.NewReader(in), &req))
	require.Len(t, req.Filters, 1)
	assert.Equal(t, OpIn, req.Filters[0].Op)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, req.Filters[0].Value)
	assert.Equal(t, 3, req.Limit)
}

func TestDecodeMediaType(t *testing.T) {
	var rec Record
	err := Decode("text/plain", strings.NewReader("{}"), &rec)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "text/plain"}, err)

	err = Decode("", strings.NewReader("{}"), &rec)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "application/octet-stream"}, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := SearchRequest{
		Filters: []Filter{Is("code", "horse"), Between("updated_at", "a", "b")},
		Order:   []Order{{Field: "updated_at", Direction: Desc}},
		Limit:   1,
	}
	require.NoError(t, Encode(&buf, req))
	var out SearchRequest
	require.NoError(t, Decode(JSONMediaType, &buf, &out))
	assert.Equal(t, req.Order, out.Order)
	assert.Equal(t, 1, out.Limit)
	if assert.Len(t, out.Filters, 2) {
		assert.Equal(t, "horse", out.Filters[0].Value)
		assert.Equal(t, []interface{}{"a", "b"}, out.Filters[1].Value)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b interface{}
		cmp  int
		ok   bool
	}{
		{int64(1), 1, 0, true},
		{uint64(2), 1.0, 1, true},
		{1, 1.5, -1, true},
		{"a", "b", -1, true},
		{"b", "B", 1, true},
		{false, true, -1, true},
		{true, true, 0, true},
		{"1", 1, 0, false},
		{nil, 1, 0, false},
	}
	for _, test := range tests {
		cmp, ok := Compare(test.a, test.b)
		assert.Equal(t, test.ok, ok, "%#v <=> %#v", test.a, test.b)
		if test.ok {
			assert.Equal(t, test.cmp, cmp, "%#v <=> %#v", test.a, test.b)
		}
	}
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, 0))
	assert.True(t, Equal(int64(3), 3))
}

func TestTime(t *testing.T) {
	when := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.FixedZone("X", 3600))
	s := FormatTime(when)
	assert.Equal(t, "2026-03-10T11:00:00.000000Z", s)
	back, err := ParseTime(s)
	if assert.NoError(t, err) {
		assert.True(t, back.Equal(when))
	}

	later := FormatTime(when.Add(500 * time.Millisecond))
	assert.True(t, s < later)
}

func TestErrorResponse(t *testing.T) {
	for _, err := range []error{
		ErrNoProject,
		ErrUnknownEntityType{Type: "Cat"},
		ErrBadFilter{Op: "like"},
		ErrUnsupportedMediaType{Type: "text/plain"},
	} {
		var resp ErrorResponse
		resp.FromError(err)
		assert.Equal(t, err, resp.ToError())
	}

	var resp ErrorResponse
	resp.FromError(ErrNotFound{Err: ErrUnknownEntityType{Type: "Cat"}})
	assert.Equal(t, "ErrUnknownEntityType", resp.Error)

	resp = ErrorResponse{}
	resp.FromError(errors.New("boom"))
	assert.Equal(t, "error", resp.Error)
	assert.Equal(t, "boom", resp.ToError().Error())

	resp = ErrorResponse{}
	resp.FromPanic("oops")
	assert.Equal(t, "panic", resp.Error)
	assert.Equal(t, "oops", resp.Message)
	assert.NotEmpty(t, resp.Stack)
}
