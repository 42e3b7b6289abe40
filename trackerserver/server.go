// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package trackerserver serves a tracker database over HTTP, using
// the wire format of the trackerdata package.  Together with the
// in-memory DB it is a fake production tracker for tests and for
// local work, and the reference for what the tracker client expects.
package trackerserver

import (
	"errors"
	"net/http"

	"github.com/diffeo/go-pini/trackerdata"
	"github.com/gorilla/mux"
)

// errUnmarshal is returned if a handler function is passed the wrong
// type.
var errUnmarshal = trackerdata.ErrBadRequest{
	Err: errors.New("Invalid input format"),
}

// NewRouter creates a new HTTP handler that processes all tracker
// requests against db, rooted at the URL path root.  For more
// control over this setup, create a mux.Router and call
// PopulateRouter instead.
func NewRouter(db *DB) http.Handler {
	r := mux.NewRouter()
	PopulateRouter(r, db)
	return r
}

// PopulateRouter adds tracker routes to an existing
// github.com/gorilla/mux router object.  This can be used, for
// instance, to place the tracker under a subpath:
//
//	r := mux.NewRouter()
//	s := r.PathPrefix("/tracker").Subrouter()
//	PopulateRouter(s, trackerserver.NewDB(clock.New()))
func PopulateRouter(r *mux.Router, db *DB) {
	api := &restAPI{DB: db, Router: r}
	api.PopulateRouter(r)
}

// restAPI holds the persistent state for the tracker REST API.
type restAPI struct {
	DB     *DB
	Router *mux.Router
}

// context holds what can be extracted from URL parameters.
type context struct {
	EntityType string
}

func (api *restAPI) Context(req *http.Request) (*context, error) {
	ctx := &context{}
	if entityType, present := mux.Vars(req)["type"]; present {
		var err error
		ctx.EntityType, err = trackerdata.MaybeDecodeName(entityType)
		if err != nil {
			return nil, trackerdata.ErrBadRequest{Err: err}
		}
	}
	return ctx, nil
}

// PopulateRouter adds all tracker URL paths to a router.
func (api *restAPI) PopulateRouter(r *mux.Router) {
	r.Path("/").Name("root").Handler(&resourceHandler{
		Representation: trackerdata.RootData{},
		Context:        api.Context,
		Get:            api.RootDocument,
	})
	r.Path("/api/v1/entity/{type}/_search").Name("search").Handler(&resourceHandler{
		Representation: trackerdata.SearchRequest{},
		Context:        api.Context,
		Post:           api.Search,
	})
	r.Path("/api/v1/entity/{type}").Name("create").Handler(&resourceHandler{
		Representation: trackerdata.Record{},
		Context:        api.Context,
		Post:           api.Create,
	})
}

// RootDocument returns the URI templates of the other resources.
func (api *restAPI) RootDocument(ctx *context) (interface{}, error) {
	resp := trackerdata.RootData{}
	err := buildURLs(api.Router).
		Template(&resp.SearchURL, "search", "type").
		Template(&resp.CreateURL, "create", "type").
		Error
	return resp, err
}

// Search runs a query against one entity type.
func (api *restAPI) Search(ctx *context, in interface{}) (interface{}, error) {
	req, valid := in.(trackerdata.SearchRequest)
	if !valid {
		return nil, errUnmarshal
	}
	records, err := api.DB.Search(ctx.EntityType, req)
	if err != nil {
		return nil, err
	}
	return trackerdata.SearchResponse{Records: records}, nil
}

// Create adds one record.
func (api *restAPI) Create(ctx *context, in interface{}) (interface{}, error) {
	rec, valid := in.(trackerdata.Record)
	if !valid || rec == nil {
		return nil, errUnmarshal
	}
	stored, err := api.DB.Create(ctx.EntityType, rec)
	if err != nil {
		return nil, err
	}
	return responseCreated{Body: stored}, nil
}
