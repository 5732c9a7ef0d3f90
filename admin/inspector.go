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

package admin

import (
	"time"

	"github.com/holisticode/kvd/store"
)

// Loop is the subset of eventloop.Loop's surface the admin server
// needs; taking an interface instead of a concrete dependency keeps
// admin from importing the eventloop/netio/unix stack it has no other
// use for.
type Loop interface {
	Len() int
	Uptime() time.Duration
	RecentDisconnects() []string
	Accepted() int
	Closed() int
}

// Inspector answers introspection queries about the running server
// without going through the data-plane wire protocol, the same role
// the teacher's Inspector plays for a swarm node's Kademlia table and
// local store.
type Inspector struct {
	keyspace *store.Keyspace
	loop     Loop
}

// NewInspector builds an Inspector over keyspace and the running
// event loop. loop may be nil, in which case connection-related
// fields report zero values.
func NewInspector(keyspace *store.Keyspace, loop Loop) *Inspector {
	return &Inspector{keyspace: keyspace, loop: loop}
}

// Keys lists every resident key.
func (i *Inspector) Keys() []string {
	return i.keyspace.Keys()
}

// KeyCount reports how many keys are resident.
func (i *Inspector) KeyCount() int {
	return i.keyspace.Len()
}

// Connections reports the number of live client connections.
func (i *Inspector) Connections() int {
	if i.loop == nil {
		return 0
	}
	return i.loop.Len()
}

// RecentDisconnects lists the most recently closed connection IDs.
func (i *Inspector) RecentDisconnects() []string {
	if i.loop == nil {
		return nil
	}
	return i.loop.RecentDisconnects()
}

// Uptime reports how long the event loop has been running.
func (i *Inspector) Uptime() time.Duration {
	if i.loop == nil {
		return 0
	}
	return i.loop.Uptime()
}

// AcceptedConnections reports the total number of connections accepted
// over the event loop's lifetime.
func (i *Inspector) AcceptedConnections() int {
	if i.loop == nil {
		return 0
	}
	return i.loop.Accepted()
}

// ClosedConnections reports the total number of connections closed
// over the event loop's lifetime.
func (i *Inspector) ClosedConnections() int {
	if i.loop == nil {
		return 0
	}
	return i.loop.Closed()
}

// ZSetCount reports the number of resident keys holding a sorted set.
func (i *Inspector) ZSetCount() int {
	return i.keyspace.ZSetCount()
}

// Rehashing reports whether the keyspace's hash index is currently
// migrating entries incrementally.
func (i *Inspector) Rehashing() bool {
	return i.keyspace.Rehashing()
}

// Stats is the JSON-serializable snapshot served at /debug/inspect.
type Stats struct {
	Keys                int      `json:"keys"`
	ZSets               int      `json:"zsets"`
	Rehashing           bool     `json:"rehashing"`
	Connections         int      `json:"connections"`
	AcceptedConnections int      `json:"accepted_connections"`
	ClosedConnections   int      `json:"closed_connections"`
	UptimeSeconds       float64  `json:"uptime_seconds"`
	RecentDisconnects   []string `json:"recent_disconnects"`
}

// Snapshot returns the current Stats.
func (i *Inspector) Snapshot() Stats {
	return Stats{
		Keys:                i.KeyCount(),
		ZSets:               i.ZSetCount(),
		Rehashing:           i.Rehashing(),
		Connections:         i.Connections(),
		AcceptedConnections: i.AcceptedConnections(),
		ClosedConnections:   i.ClosedConnections(),
		UptimeSeconds:       i.Uptime().Seconds(),
		RecentDisconnects:   i.RecentDisconnects(),
	}
}
