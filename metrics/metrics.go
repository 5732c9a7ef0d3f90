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

// Package metrics wires the command package's counters and timers,
// which register themselves against
// metrics.DefaultRegistry the moment they're first touched, into
// process metrics collection and an optional InfluxDB export.
package metrics

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/influxdb"
	"github.com/holisticode/kvd/config"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// SizeFunc reports the current number of resident keys, sampled into
// a gauge on the same cadence as the other runtime metrics.
type SizeFunc func() int

// Setup starts background metrics collection per cfg, and, if
// cfg.MetricsInfluxDBURL is set, exports the registry to InfluxDB.
// It returns immediately; collection runs in background goroutines
// for the lifetime of the process.
func Setup(cfg *config.Config, sizeFn SizeFunc) {
	if !cfg.MetricsEnabled {
		return
	}
	metrics.Enabled = true
	gethlog.Info("enabling metrics collection")

	go metrics.CollectProcessMetrics(4 * time.Second)
	if sizeFn != nil {
		go collectKeyspaceSize(sizeFn, 4*time.Second)
	}

	if cfg.MetricsInfluxDBURL != "" {
		gethlog.Info("enabling metrics export to influxdb", "url", cfg.MetricsInfluxDBURL)
		tags := splitTags(cfg.MetricsInfluxDBTags)
		go influxdb.InfluxDBWithTags(metrics.DefaultRegistry, 10*time.Second, cfg.MetricsInfluxDBURL, cfg.MetricsInfluxDBDB, "", "", "kvd.", tags)
	}
}

func collectKeyspaceSize(sizeFn SizeFunc, d time.Duration) {
	g := metrics.GetOrRegisterGauge("keyspace/size", nil)
	for range time.Tick(d) {
		g.Update(int64(sizeFn()))
	}
}

// splitTags turns a comma-separated "k=v,k2=v2" string into a tag map,
// the same format accepted by go-ethereum's cmd/utils.SplitTagsFlag.
func splitTags(tagsFlag string) map[string]string {
	tags := strings.Split(tagsFlag, ",")
	tagsMap := map[string]string{}
	for _, t := range tags {
		if t == "" {
			continue
		}
		kv := strings.Split(t, "=")
		if len(kv) == 2 {
			tagsMap[kv[0]] = kv[1]
		}
	}
	return tagsMap
}
