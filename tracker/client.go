// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tracker

// This file provides the HTTP client for the tracker REST API.

import (
	"bytes"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/diffeo/go-pini/trackerdata"
	"github.com/jtacoma/uritemplates"
)

// ErrNoURL is returned by NewClient when no tracker URL is
// configured.
var ErrNoURL = errors.New("no tracker URL")

// Client talks to a tracker server such as the one in the
// trackerserver package.
type Client struct {
	// URL is the root document URL.
	URL *url.URL

	// HTTPClient performs requests.  If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client

	// Representation is the root document.
	Representation trackerdata.RootData
}

// NewClient creates a client for the tracker rooted at baseURL and
// fetches its root document.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{URL: u}
	if err = c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh fetches the root document again.
func (c *Client) Refresh() error {
	c.Representation = trackerdata.RootData{}
	return c.Do("GET", c.URL, nil, &c.Representation)
}

// Search returns the records of an entity type matching a request.
func (c *Client) Search(entityType string, req trackerdata.SearchRequest) ([]trackerdata.Record, error) {
	u, err := c.Template(c.Representation.SearchURL, map[string]interface{}{"type": entityType})
	if err != nil {
		return nil, err
	}
	if req.Filters == nil {
		req.Filters = []trackerdata.Filter{}
	}
	var resp trackerdata.SearchResponse
	if err = c.Do("POST", u, req, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Create stores a new record and returns it as stored, with its id
// and update time.
func (c *Client) Create(entityType string, rec trackerdata.Record) (trackerdata.Record, error) {
	u, err := c.Template(c.Representation.CreateURL, map[string]interface{}{"type": entityType})
	if err != nil {
		return nil, err
	}
	var out trackerdata.Record
	if err = c.Do("POST", u, rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Template expands a URI template from the root document, relative
// to the root URL.  String values are encoded if they are not safe
// in a URL.
func (c *Client) Template(template string, vars map[string]interface{}) (*url.URL, error) {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		return nil, err
	}
	for k, v := range vars {
		if s, isString := v.(string); isString {
			vars[k] = trackerdata.MaybeEncodeName(s)
		}
	}
	expanded, err := tmpl.Expand(vars)
	if err != nil {
		return nil, err
	}
	return c.URL.Parse(expanded)
}

// Do performs some HTTP action.  If in is non-nil, the request data is
// serialized and sent as the body of, for instance, a POST request.
// If out is non-nil, the response data (if any) is deserialized into
// this object, which must be of pointer type.
func (c *Client) Do(method string, u *url.URL, in, out interface{}) (err error) {
	// Set up the body as serialized JSON, if there is one
	var body io.Reader
	if in != nil {
		reader, writer := io.Pipe()
		finished := make(chan error)
		go func() {
			err := trackerdata.Encode(writer, in)
			err = firstError(err, writer.Close())
			finished <- err
		}()
		defer func() {
			err = firstError(err, <-finished)
		}()
		body = reader
	}

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		if in != nil {
			// unblock the encoder
			ioutil.ReadAll(body)
		}
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", trackerdata.V1JSONMediaType)
	}
	if out != nil {
		req.Header.Set("Accept", trackerdata.V1JSONMediaType)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if in != nil {
			ioutil.ReadAll(body)
		}
		return err
	}

	// If the response included a body, clean up afterwards
	if resp.Body != nil {
		defer func() {
			err = firstError(err, resp.Body.Close())
		}()
	}

	if err = checkHTTPStatus(resp); err != nil {
		return err
	}

	if resp.Body != nil && out != nil {
		contentType := resp.Header.Get("Content-Type")
		err = trackerdata.Decode(contentType, resp.Body, out)
	}
	return err
}

// ErrorHTTP is a catch-all error for non-successes returned from the
// REST endpoint.
type ErrorHTTP struct {
	// Response holds a pointer to the failing HTTP response.
	Response *http.Response

	// Body holds the contents of the message body, presumed to
	// be text.
	Body string
}

func (e ErrorHTTP) Error() string {
	return e.Response.Status
}

// checkHTTPStatus examines an HTTP response and returns an error if
// it is not successful.
func checkHTTPStatus(resp *http.Response) error {
	if len(resp.Status) > 0 && resp.Status[0] == '2' {
		return nil
	}

	// Always collect the entire body; we will need it as a fallback
	// and can only parse it once.
	var body []byte
	var err error
	if resp.Body != nil {
		body, err = ioutil.ReadAll(resp.Body)
		if err != nil {
			return err
		}
	}

	var errResp trackerdata.ErrorResponse
	contentType := resp.Header.Get("Content-Type")
	if err := trackerdata.Decode(contentType, bytes.NewReader(body), &errResp); err == nil && errResp.Error != "" {
		return errResp.ToError()
	}
	return ErrorHTTP{Response: resp, Body: string(body)}
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
