// Copyright 2016 The go-ethereum Authors
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

// Package command dispatches parsed request argv to the keyspace and
// serializes results back into reply payloads. Every command also
// reports a counter and a timer through go-ethereum's metrics
// registry and, when a tracer is configured, an OpenTracing span — the
// same instrumentation pattern the teacher's storage layer uses around
// its own hot paths.
package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/opentracing/opentracing-go"

	"github.com/holisticode/kvd/protocol"
	"github.com/holisticode/kvd/store"
)

// Dispatcher executes commands against a single Keyspace. It satisfies
// connection.Dispatcher.
type Dispatcher struct {
	keyspace *store.Keyspace
}

// New returns a Dispatcher backed by keyspace.
func New(keyspace *store.Keyspace) *Dispatcher {
	return &Dispatcher{keyspace: keyspace}
}

// Dispatch executes argv and returns the unframed reply payload. An
// empty argv yields an ERR(ArgError) reply and an unrecognized command
// name an ERR(Unknown) reply, rather than closing the connection —
// only protocol-level violations are connection-fatal.
func (d *Dispatcher) Dispatch(argv []string) []byte {
	if len(argv) == 0 {
		return protocol.Err(nil, protocol.CodeArg, "empty command")
	}

	name := strings.ToUpper(argv[0])
	span, _ := opentracing.StartSpanFromContext(context.Background(), "command."+name)
	defer span.Finish()

	start := time.Now()
	defer func() {
		metrics.GetOrRegisterResettingTimer("command/"+strings.ToLower(name)+"/duration", nil).UpdateSince(start)
	}()
	metrics.GetOrRegisterCounter("command/"+strings.ToLower(name)+"/count", nil).Inc(1)

	switch name {
	case "GET":
		return d.get(argv)
	case "SET":
		return d.set(argv)
	case "DEL":
		return d.del(argv)
	case "KEYS":
		return d.keys(argv)
	case "ZADD":
		return d.zadd(argv)
	case "ZREM":
		return d.zrem(argv)
	case "ZSCORE":
		return d.zscore(argv)
	case "ZQUERY":
		return d.zquery(argv)
	default:
		metrics.GetOrRegisterCounter("command/unknown/count", nil).Inc(1)
		return protocol.Err(nil, protocol.CodeUnknown, fmt.Sprintf("unknown command %q", argv[0]))
	}
}

func (d *Dispatcher) get(argv []string) []byte {
	if len(argv) != 2 {
		return protocol.Err(nil, protocol.CodeArg, "GET requires 1 argument")
	}
	val, ok, err := d.keyspace.Get(argv[1])
	if err != nil {
		return typeErr(err)
	}
	if !ok {
		return protocol.Nil(nil)
	}
	return protocol.Str(nil, val)
}

func (d *Dispatcher) set(argv []string) []byte {
	if len(argv) != 3 {
		return protocol.Err(nil, protocol.CodeArg, "SET requires 2 arguments")
	}
	if err := d.keyspace.Set(argv[1], argv[2]); err != nil {
		return typeErr(err)
	}
	return protocol.Nil(nil)
}

func (d *Dispatcher) del(argv []string) []byte {
	if len(argv) != 2 {
		return protocol.Err(nil, protocol.CodeArg, "DEL requires 1 argument")
	}
	if d.keyspace.Del(argv[1]) {
		return protocol.Int(nil, 1)
	}
	return protocol.Int(nil, 0)
}

func (d *Dispatcher) keys(argv []string) []byte {
	keys := d.keyspace.Keys()
	buf, countOffset := protocol.ArrHeader(nil)
	for _, k := range keys {
		buf = protocol.Str(buf, k)
	}
	protocol.PatchArrCount(buf, countOffset, uint32(len(keys)))
	return buf
}

func (d *Dispatcher) zadd(argv []string) []byte {
	if len(argv) != 4 {
		return protocol.Err(nil, protocol.CodeArg, "ZADD requires 3 arguments")
	}
	score, ok := parseScore(argv[2])
	if !ok {
		return protocol.Err(nil, protocol.CodeArg, "expect floating-point number for score")
	}
	added, err := d.keyspace.ZAdd(argv[1], score, argv[3])
	if err != nil {
		return typeErr(err)
	}
	if added {
		return protocol.Int(nil, 1)
	}
	return protocol.Int(nil, 0)
}

func (d *Dispatcher) zrem(argv []string) []byte {
	if len(argv) != 3 {
		return protocol.Err(nil, protocol.CodeArg, "ZREM requires 2 arguments")
	}
	removed, err := d.keyspace.ZRem(argv[1], argv[2])
	if err != nil {
		return typeErr(err)
	}
	if removed {
		return protocol.Int(nil, 1)
	}
	return protocol.Int(nil, 0)
}

func (d *Dispatcher) zscore(argv []string) []byte {
	if len(argv) != 3 {
		return protocol.Err(nil, protocol.CodeArg, "ZSCORE requires 2 arguments")
	}
	score, ok, err := d.keyspace.ZScore(argv[1], argv[2])
	if err != nil {
		return typeErr(err)
	}
	if !ok {
		return protocol.Nil(nil)
	}
	return protocol.Dbl(nil, score)
}

func (d *Dispatcher) zquery(argv []string) []byte {
	if len(argv) != 6 {
		return protocol.Err(nil, protocol.CodeArg, "ZQUERY requires 5 arguments")
	}
	score, ok := parseScore(argv[2])
	if !ok {
		return protocol.Err(nil, protocol.CodeArg, "expect floating-point number for score")
	}
	name := argv[3]
	offset, ok := parseInt(argv[4])
	if !ok {
		return protocol.Err(nil, protocol.CodeArg, "expect integer for offset")
	}
	limit, ok := parseInt(argv[5])
	if !ok {
		return protocol.Err(nil, protocol.CodeArg, "expect integer for limit")
	}

	elems, err := d.keyspace.ZQuery(argv[1], score, name, offset, int(limit))
	if err != nil {
		return typeErr(err)
	}

	buf, countOffset := protocol.ArrHeader(nil)
	for _, e := range elems {
		buf = protocol.Str(buf, e.Name())
		buf = protocol.Dbl(buf, e.Score())
	}
	protocol.PatchArrCount(buf, countOffset, uint32(len(elems)*2))
	return buf
}

func typeErr(err error) []byte {
	if err == store.ErrWrongType {
		return protocol.Err(nil, protocol.CodeType, "expect zset")
	}
	log.Error("command dispatch failed unexpectedly", "err", err)
	return protocol.Err(nil, protocol.CodeUnknown, err.Error())
}

// parseScore mirrors strtod's all-or-nothing parse and rejects NaN, so
// "ZADD k nan x" fails the same way it does in the reference command
// set instead of silently admitting an unorderable score.
func parseScore(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != v {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
