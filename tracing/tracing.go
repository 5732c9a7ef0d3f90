// Copyright 2018 The go-ethereum Authors
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

// Package tracing installs the global opentracing.Tracer that
// command.Dispatcher's spans report into. command never constructs a
// tracer itself; it only calls opentracing.StartSpanFromContext, so
// whatever Init installs here (or opentracing's no-op default, when
// tracing is disabled) is what every dispatch gets traced against.
package tracing

import (
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/holisticode/kvd/config"
)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Init configures and installs the global tracer per cfg, returning a
// closer to flush buffered spans on shutdown. If tracing is disabled
// the returned closer is a no-op and the global tracer is left
// untouched (opentracing's NoopTracer).
func Init(cfg *config.Config) (io.Closer, error) {
	if !cfg.TracingEnabled {
		return noopCloser{}, nil
	}

	jcfg := jaegercfg.Configuration{
		ServiceName: cfg.TracingServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           false,
			LocalAgentHostPort: cfg.TracingAgentAddr,
		},
	}

	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	log.Info("tracing enabled", "service", cfg.TracingServiceName, "agent", cfg.TracingAgentAddr)
	return closer, nil
}
