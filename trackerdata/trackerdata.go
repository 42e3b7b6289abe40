// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package trackerdata defines the data structures shared between the
// tracker client and trackerserver.  JSON encodings of these are
// passed across the wire as the application/vnd.pini.tracker.v1+json
// MIME type.
//
// API Usage
//
// HTTP GET the root document at its specified URL.  This returns a
// JSON serialization of RootData, whose fields are RFC 6570 URI
// templates.  With the system rooted at /, it looks like
//
//	{
//		"search_url": "/api/v1/entity/{type}/_search",
//		"create_url": "/api/v1/entity/{type}"
//	}
//
// The URL structure is formulaic, but only the root document is part
// of the contract.
//
// Records
//
// Every tracker object is a flat Record: a JSON object of field names
// to scalar values.  Each record has an integer "id" assigned by the
// server and an "updated_at" timestamp, an RFC 3339 string in UTC,
// which the server sets on every create.  Links between records are
// plain id fields ("project_id", "entity_id") next to a type field
// where the target type varies ("entity_type").
//
// Searching
//
// POST a SearchRequest to the search URL of an entity type.  Every
// Filter must match for a record to be returned.  Fields limits the
// returned fields ("id" is always included); Order sorts the result;
// a positive Limit truncates it after sorting.
//
// Errors
//
// Errors are returned as encodings of ErrorResponse with a failing
// HTTP status.  A server panic is reported with error code "panic".
package trackerdata

// V1JSONMediaType is the preferred, most specific MIME type for the
// JSON representation of this content.
const V1JSONMediaType = "application/vnd.pini.tracker.v1+json"

// JSONMediaType requests the most recent version of the JSON
// representation of this content.
const JSONMediaType = "application/vnd.pini.tracker+json"

// Entity types known to the tracker.
const (
	Project       = "Project"
	Asset         = "Asset"
	Sequence      = "Sequence"
	Shot          = "Shot"
	Task          = "Task"
	PublishedFile = "PublishedFile"
)

// EntityTypes lists every entity type a server must support.
var EntityTypes = []string{Project, Asset, Sequence, Shot, Task, PublishedFile}

// Well-known record fields.
const (
	FieldID        = "id"
	FieldUpdatedAt = "updated_at"
	FieldProjectID = "project_id"
)

// Filter operators.
const (
	// OpIs matches a field equal to Value.
	OpIs = "is"

	// OpIsNot matches a field not equal to Value, including a
	// missing field.
	OpIsNot = "is_not"

	// OpIn matches a field equal to any member of Value, which
	// must be a list.
	OpIn = "in"

	// OpBetween matches a field within Value, a two-element list
	// of inclusive bounds.  Timestamps compare as strings.
	OpBetween = "between"
)

// Order directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Record is a single tracker object.
type Record map[string]interface{}

// ID returns the record's integer id, or 0 if it has none.
func (r Record) ID() int64 {
	id, _ := Int(r[FieldID])
	return id
}

// String returns a string field, or "" if it is missing or not a
// string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Filter is one condition of a search.
type Filter struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// Is builds an equality filter.
func Is(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpIs, Value: value}
}

// Between builds an inclusive range filter.
func Between(field string, lo, hi interface{}) Filter {
	return Filter{Field: field, Op: OpBetween, Value: []interface{}{lo, hi}}
}

// Order is a sort key of a search.
type Order struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

// SearchRequest is posted to an entity type's search URL.
type SearchRequest struct {
	Filters []Filter `json:"filters"`
	Fields  []string `json:"fields,omitempty"`
	Order   []Order  `json:"order,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// SearchResponse is the reply to a search.
type SearchResponse struct {
	Records []Record `json:"records"`
}

// RootData is returned by the root path.
type RootData struct {
	// SearchURL supports HTTP POST of a SearchRequest, returning
	// a SearchResponse.  It is a URI template with a single
	// parameter "type", the (possibly escaped) entity type.
	SearchURL string `json:"search_url"`

	// CreateURL supports HTTP POST of a Record, returning the
	// stored Record with its id and update time.  It is a URI
	// template with a single parameter "type".
	CreateURL string `json:"create_url"`
}

// ErrorResponse can be a response to any method, generally accompanied
// by a failing HTTP status code.
type ErrorResponse struct {
	// Error is a short description of the failure.  This may be
	// the name of a well-known error, the string "panic", or the
	// string "error" for some other kind of error.
	Error string `json:"error"`

	// Message is a human-readable description of the failure.
	Message string `json:"message"`

	// Value is an extra parameter to the error if applicable.
	Value string `json:"value,omitempty"`

	// Stack holds a formatted backtrace, if the method failed
	// due to a panic.
	Stack string `json:"stack,omitempty"`
}
