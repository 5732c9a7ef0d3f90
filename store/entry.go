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

// Package store implements the process-wide keyspace: a single hash
// index from key to Entry, where each Entry holds either a string
// value or a sorted set. This mirrors the original single global
// HMap-of-Entry design, generalized into a type other code can
// construct more than one of (useful for tests and for sharding should
// that ever be needed).
package store

import (
	"github.com/holisticode/kvd/hashindex"
	"github.com/holisticode/kvd/zset"
)

// Type identifies the kind of value an Entry holds.
type Type uint32

const (
	// TypeString marks an Entry holding a plain byte-string value.
	TypeString Type = iota
	// TypeZSet marks an Entry holding a sorted set.
	TypeZSet
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// Entry is one resident key. It embeds the hash hook that indexes it
// by key, and carries exactly one of the two payloads named by Type.
type Entry struct {
	node hashindex.Node
	key  string
	typ  Type
	str  string
	zset *zset.Set
}

// Key returns the entry's key.
func (e *Entry) Key() string { return e.key }

// Type returns the kind of value held by the entry.
func (e *Entry) Type() Type { return e.typ }

// String returns the entry's string value. Callers must first confirm
// Type() == TypeString.
func (e *Entry) String() string { return e.str }

// ZSet returns the entry's sorted set. Callers must first confirm
// Type() == TypeZSet.
func (e *Entry) ZSet() *zset.Set { return e.zset }

func newStringEntry(key, val string) *Entry {
	e := &Entry{key: key, typ: TypeString, str: val}
	e.node.Init(keyHash(key))
	e.node.SetOwner(e)
	return e
}

func newZSetEntry(key string, loadFactor, quantum int) *Entry {
	e := &Entry{key: key, typ: TypeZSet, zset: zset.New(loadFactor, quantum)}
	e.node.Init(keyHash(key))
	e.node.SetOwner(e)
	return e
}
