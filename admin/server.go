// Copyright 2019 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package admin serves the introspection and metrics HTTP surface: a
// sibling port to the data-plane TCP listener, for operators and
// monitoring systems rather than clients.
package admin

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
	"github.com/rs/cors"
)

// Server is the admin HTTP listener.
type Server struct {
	inspector *Inspector
	http      *http.Server
}

// NewServer builds a Server bound to addr, not yet listening.
func NewServer(addr string, inspector *Inspector) *Server {
	mux := http.NewServeMux()
	s := &Server{inspector: inspector}

	mux.HandleFunc("/debug/inspect", s.handleInspect)
	mux.HandleFunc("/debug/inspect/keys", s.handleKeys)
	mux.HandleFunc("/debug/disconnects", s.handleDisconnects)
	mux.HandleFunc("/debug/metrics", s.handleMetrics)
	mux.Handle("/debug/metrics/prometheus", prometheus.Handler(metrics.DefaultRegistry))

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	s.http = &http.Server{Addr: addr, Handler: handler}
	return s
}

// ListenAndServe blocks serving admin requests until the server is
// shut down or it fails to bind.
func (s *Server) ListenAndServe() error {
	log.Info("admin server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the admin server down immediately.
func (s *Server) Close() error {
	return s.http.Close()
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.inspector.Snapshot())
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.inspector.Keys())
}

func (s *Server) handleDisconnects(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.inspector.RecentDisconnects())
}

// handleMetrics dumps every registered metric's current value as JSON,
// the same registry metrics/prometheus.Handler exposes in Prometheus'
// text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot := make(map[string]interface{})
	metrics.DefaultRegistry.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Counter:
			snapshot[name] = m.Count()
		case metrics.Gauge:
			snapshot[name] = m.Value()
		case metrics.Meter:
			snapshot[name] = m.Snapshot().Rate1()
		case metrics.Timer:
			snapshot[name] = m.Snapshot().Mean()
		default:
			snapshot[name] = fmt.Sprintf("%v", i)
		}
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}
