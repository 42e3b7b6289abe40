// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package trackerserver

// This file contains a small REST skeleton: content type negotiation
// plus a standard way to decode inputs and encode outputs and errors.

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/diffeo/go-pini/trackerdata"
	"github.com/sirupsen/logrus"
)

var typeMap = map[string]string{
	"text/json":                 trackerdata.V1JSONMediaType,
	"application/json":          trackerdata.V1JSONMediaType,
	trackerdata.JSONMediaType:   trackerdata.V1JSONMediaType,
	trackerdata.V1JSONMediaType: trackerdata.V1JSONMediaType,
}

// errBadAccept is returned from negotiateResponse() if the Accept:
// header is malformed (and no more specific error applies).
var errBadAccept = errors.New("Invalid Accept: header")

// errNotAcceptable is returned from negotiateResponse() if the Accept:
// header does not mention any media types we can actually return.
type errNotAcceptable struct{}

func (e errNotAcceptable) Error() string {
	return "No acceptable representation for response"
}

func (e errNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// errMethodNotAllowed flags an HTTP method a resource has no handler
// for.
type errMethodNotAllowed struct {
	Method string
}

func (e errMethodNotAllowed) Error() string {
	return fmt.Sprintf("Method %v not allowed", e.Method)
}

func (e errMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// responseCreated is returned as a value response from handler
// functions that want to indicate that a new resource was created.
type responseCreated struct {
	Body interface{}
}

type resourceHandler struct {
	// Representation is the type of object a POST body decodes
	// to.  A value of this type is passed to Post.
	Representation interface{}

	// Context reads an HTTP request and produces a context object.
	Context func(req *http.Request) (*context, error)

	// Get, if non-nil, returns a representation of the object.
	Get func(*context) (interface{}, error)

	// Post, if non-nil, takes some action.  The return can be any
	// useful return value, including responseCreated.
	Post func(*context, interface{}) (interface{}, error)
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	var (
		ctx          *context
		in, out      interface{}
		err          error
		status       int
		responseType string
	)

	// Recover from panics by sending an HTTP error.
	defer func() {
		if recovered := recover(); recovered != nil {
			response := trackerdata.ErrorResponse{}
			response.FromPanic(recovered)
			logrus.WithFields(logrus.Fields{
				"url":   req.URL.String(),
				"error": response.Message,
			}).Error("tracker request panicked")
			resp.Header().Set("Content-Type", trackerdata.V1JSONMediaType)
			resp.WriteHeader(http.StatusInternalServerError)
			_ = trackerdata.Encode(resp, response)
		}
	}()

	// Pick a response type first; it determines how an error
	// would be sent back.
	status = http.StatusBadRequest
	responseType, err = negotiateResponse(req)
	if err != nil {
		responseType = trackerdata.V1JSONMediaType
	}

	if err == nil {
		ctx, err = h.Context(req)
	}

	if err == nil && req.Method == http.MethodPost {
		ptr := reflect.New(reflect.TypeOf(h.Representation))
		contentType := req.Header.Get("Content-Type")
		err = trackerdata.Decode(contentType, req.Body, ptr.Interface())
		if err == nil {
			in = ptr.Elem().Interface()
		} else if _, hasStatus := err.(trackerdata.ErrorStatus); !hasStatus {
			err = trackerdata.ErrBadRequest{Err: err}
		}
	}

	if err == nil {
		err = errMethodNotAllowed{Method: req.Method}
		// If anything else goes wrong here, it's a server error
		status = http.StatusInternalServerError
		switch req.Method {
		case http.MethodGet, http.MethodHead:
			if h.Get != nil {
				out, err = h.Get(ctx)
			}
		case http.MethodPost:
			if h.Post != nil {
				out, err = h.Post(ctx, in)
			}
		}
	}

	if err != nil {
		if errS, hasStatus := err.(trackerdata.ErrorStatus); hasStatus {
			status = errS.HTTPStatus()
		}
		response := trackerdata.ErrorResponse{}
		response.FromError(err)
		out = response
	} else if created, isCreated := out.(responseCreated); isCreated {
		status = http.StatusCreated
		out = created.Body
	} else if out == nil {
		status = http.StatusNoContent
	} else {
		status = http.StatusOK
	}
	if req.Method == http.MethodHead {
		out = nil
	}

	if _, understood := typeMap[responseType]; !understood {
		// Negotiation should have prevented this
		status = http.StatusInternalServerError
		out = trackerdata.ErrorResponse{Error: "error", Message: "Invalid response type " + responseType}
		responseType = trackerdata.V1JSONMediaType
	}

	if out != nil {
		resp.Header().Set("Content-Type", responseType)
	}
	resp.WriteHeader(status)
	if out != nil {
		// The status line is already out, so a failure here
		// can only be logged.
		if err := trackerdata.Encode(resp, out); err != nil {
			logrus.WithFields(logrus.Fields{
				"url": req.URL.String(),
				"err": err,
			}).Warn("could not write tracker response")
		}
	}
}

// negotiateResponse returns a supported MIME type for the response
// body, following the path laid out in RFC 7231 section 5.3.
func negotiateResponse(req *http.Request) (string, error) {
	accept := req.Header.Get("Accept")
	if accept == "" {
		accept = "*/*"
	}
	bestType := ""
	bestQ := 0.0
	for _, mediaRange := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(mediaRange))
		if err != nil {
			return "", err
		}

		q := 1.0
		if qStr, haveQ := params["q"]; haveQ {
			q, err = strconv.ParseFloat(qStr, 64)
			if err != nil {
				return "", err
			}
			if q < 0.0 || q > 1.0 {
				return "", errBadAccept
			}
		}
		if q < bestQ {
			continue
		}

		wildcard := bestType == "*/*" || bestType == "text/*" || bestType == "application/*"
		switch {
		case mediaType == "*/*":
			// Doesn't override anything.
			if q > bestQ {
				bestType, bestQ = mediaType, q
			}
		case mediaType == "text/*" || mediaType == "application/*":
			// Only overrides "*/*".
			if q > bestQ || bestType == "*/*" {
				bestType, bestQ = mediaType, q
			}
		default:
			// A known type overrides any wildcard; the first
			// one at a given q wins.
			if _, known := typeMap[mediaType]; known && (q > bestQ || wildcard) {
				bestType, bestQ = mediaType, q
			}
		}
	}
	if bestQ == 0.0 {
		return "", errNotAcceptable{}
	}
	switch bestType {
	case "*/*", "application/*":
		return trackerdata.V1JSONMediaType, nil
	case "text/*":
		return "text/json", nil
	}
	return bestType, nil
}
