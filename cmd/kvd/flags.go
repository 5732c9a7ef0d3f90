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

package main

import "gopkg.in/urfave/cli.v1"

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML configuration file",
	}
	listenAddrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "data-plane TCP listen address",
	}
	portFlag = cli.IntFlag{
		Name:  "port",
		Usage: "data-plane TCP listen port",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin.addr",
		Usage: "admin/metrics HTTP listen address",
	}
	adminPortFlag = cli.IntFlag{
		Name:  "admin.port",
		Usage: "admin/metrics HTTP listen port",
	}
	noAdminFlag = cli.BoolFlag{
		Name:  "admin.disable",
		Usage: "disable the admin/metrics HTTP server",
	}
	metricsFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "enable metrics collection",
	}
	metricsInfluxDBURLFlag = cli.StringFlag{
		Name:  "metrics.influxdb.url",
		Usage: "InfluxDB endpoint to export metrics to, empty disables export",
	}
	metricsInfluxDBDBFlag = cli.StringFlag{
		Name:  "metrics.influxdb.db",
		Usage: "InfluxDB database name",
	}
	metricsInfluxDBTagsFlag = cli.StringFlag{
		Name:  "metrics.influxdb.tags",
		Usage: "comma-separated key=value tags attached to every exported sample",
	}
	tracingFlag = cli.BoolFlag{
		Name:  "tracing",
		Usage: "enable Jaeger tracing",
	}
	tracingAgentFlag = cli.StringFlag{
		Name:  "tracing.agent",
		Usage: "Jaeger agent host:port",
		Value: "127.0.0.1:6831",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log.level",
		Usage: "log level: crit, error, warn, info, debug, trace",
		Value: "info",
	}
	logJSONFlag = cli.BoolFlag{
		Name:  "log.json",
		Usage: "emit structured JSON logs instead of terminal-formatted output",
	}
)
