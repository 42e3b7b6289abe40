// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"

	"github.com/diffeo/go-pini/trackerserver"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

// HTTP serves the tracker REST API and metrics.
type HTTP struct {
	db          *trackerserver.DB
	laddr       string
	logRequests bool
}

// Handler builds the full middleware stack.
func (h *HTTP) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	trackerserver.PopulateRouter(r, h.db)

	n := negroni.New(negroni.NewRecovery())
	if h.logRequests {
		n.Use(negroni.NewLogger())
	}
	n.UseHandler(r)
	return n
}

// Serve runs an HTTP server on the configured local address until it
// fails.
func (h *HTTP) Serve() error {
	logrus.WithField("listen", h.laddr).Info("serving tracker")
	return http.ListenAndServe(h.laddr, h.Handler())
}
