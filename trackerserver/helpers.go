// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package trackerserver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/diffeo/go-pini/trackerdata"
	"github.com/gorilla/mux"
)

// urlBuilder fills in route URLs, stopping at the first error.
type urlBuilder struct {
	Router *mux.Router
	Params []string
	Error  error
}

// buildURLs starts a builder whose params alternate names and
// values; values are escaped with MaybeEncodeName.
func buildURLs(router *mux.Router, params ...string) *urlBuilder {
	for i, value := range params {
		if i%2 == 1 {
			params[i] = trackerdata.MaybeEncodeName(value)
		}
	}
	return &urlBuilder{Router: router, Params: params}
}

func (u *urlBuilder) route(name string) *mux.Route {
	r := u.Router.Get(name)
	if r == nil {
		u.Error = fmt.Errorf("No such route %q", name)
	}
	return r
}

// URL sets *out to the URL of a route.
func (u *urlBuilder) URL(out *string, route string) *urlBuilder {
	var r *mux.Route
	var built *url.URL
	if u.Error == nil {
		r = u.route(route)
	}
	if u.Error == nil {
		built, u.Error = r.URL(u.Params...)
	}
	if u.Error == nil {
		*out = built.String()
	}
	return u
}

// Template sets *out to a URI template for a route with param left
// as a {param} placeholder.
func (u *urlBuilder) Template(out *string, route, param string) *urlBuilder {
	var r *mux.Route
	var built *url.URL
	if u.Error == nil {
		r = u.route(route)
	}
	if u.Error == nil {
		params := append([]string{param, "---"}, u.Params...)
		built, u.Error = r.URL(params...)
	}
	if u.Error == nil {
		*out = strings.Replace(built.String(), "---", "{"+param+"}", 1)
	}
	return u
}
