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

package store

import (
	"errors"

	"github.com/holisticode/kvd/hashindex"
	"github.com/holisticode/kvd/internal/strhash"
	"github.com/holisticode/kvd/zset"
)

// ErrWrongType is returned when a command targets a key whose resident
// value is not the type that command requires (e.g. GET on a key
// holding a sorted set).
var ErrWrongType = errors.New("store: key holds a value of the wrong type")

func keyHash(key string) uint64 { return uint64(strhash.Sum(key)) }

func probeByKey(key string) *hashindex.Node {
	n := &hashindex.Node{}
	n.Init(keyHash(key))
	n.SetOwner(&Entry{key: key})
	return n
}

func eqByKey(candidate, probe *hashindex.Node) bool {
	return candidate.Owner().(*Entry).key == probe.Owner().(*Entry).key
}

// Keyspace is the process-wide mapping from key to Entry.
type Keyspace struct {
	entries            *hashindex.Table
	zsetLoadFactor     int
	zsetRehashQuantum  int
}

// New returns an empty keyspace. loadFactor and quantum tune the
// keyspace's own hash index and every sorted set created under this
// keyspace; zero picks hashindex's defaults.
func New(loadFactor, quantum int) *Keyspace {
	return &Keyspace{
		entries:           hashindex.New(loadFactor, quantum),
		zsetLoadFactor:    loadFactor,
		zsetRehashQuantum: quantum,
	}
}

// Len returns the number of resident keys.
func (k *Keyspace) Len() int { return k.entries.Len() }

// ZSetCount returns the number of resident keys holding a sorted set,
// for admin/introspection.
func (k *Keyspace) ZSetCount() int {
	count := 0
	k.entries.ForEach(func(n *hashindex.Node) {
		if n.Owner().(*Entry).typ == TypeZSet {
			count++
		}
	})
	return count
}

// Rehashing reports whether the keyspace's hash index is currently
// migrating entries out of an old table incrementally.
func (k *Keyspace) Rehashing() bool { return k.entries.Migrating() }

func (k *Keyspace) lookup(key string) *Entry {
	found := k.entries.Lookup(probeByKey(key), eqByKey)
	if found == nil {
		return nil
	}
	return found.Owner().(*Entry)
}

// Get returns the string value stored at key. ok is false if key is
// absent; err is ErrWrongType if key holds a sorted set.
func (k *Keyspace) Get(key string) (val string, ok bool, err error) {
	ent := k.lookup(key)
	if ent == nil {
		return "", false, nil
	}
	if ent.typ != TypeString {
		return "", false, ErrWrongType
	}
	return ent.str, true, nil
}

// Set stores val at key, overwriting any existing string value. It
// returns ErrWrongType if key already holds a sorted set.
func (k *Keyspace) Set(key, val string) error {
	ent := k.lookup(key)
	if ent != nil {
		if ent.typ != TypeString {
			return ErrWrongType
		}
		ent.str = val
		return nil
	}
	ent = newStringEntry(key, val)
	k.entries.Insert(&ent.node)
	return nil
}

// Del removes key, disposing of its sorted set if it held one. It
// reports whether key was present.
func (k *Keyspace) Del(key string) bool {
	found := k.entries.Pop(probeByKey(key), eqByKey)
	return found != nil
}

// Keys returns every resident key, in unspecified order.
func (k *Keyspace) Keys() []string {
	out := make([]string, 0, k.entries.Len())
	k.entries.ForEach(func(n *hashindex.Node) {
		out = append(out, n.Owner().(*Entry).key)
	})
	return out
}

// ZAdd adds name with score to the sorted set at key, creating the set
// (and the key) if necessary. It reports whether name is a new member,
// and returns ErrWrongType if key holds a string.
func (k *Keyspace) ZAdd(key string, score float64, name string) (added bool, err error) {
	ent := k.lookup(key)
	if ent == nil {
		ent = newZSetEntry(key, k.zsetLoadFactor, k.zsetRehashQuantum)
		k.entries.Insert(&ent.node)
	} else if ent.typ != TypeZSet {
		return false, ErrWrongType
	}
	return ent.zset.Add(name, score), nil
}

// ZRem removes name from the sorted set at key. It reports whether
// name was present, and returns ErrWrongType if key holds a string or
// removed=false,err=nil if key is absent.
func (k *Keyspace) ZRem(key, name string) (removed bool, err error) {
	ent := k.lookup(key)
	if ent == nil {
		return false, nil
	}
	if ent.typ != TypeZSet {
		return false, ErrWrongType
	}
	return ent.zset.Remove(name), nil
}

// ZScore returns name's score within the sorted set at key.
func (k *Keyspace) ZScore(key, name string) (score float64, ok bool, err error) {
	ent := k.lookup(key)
	if ent == nil {
		return 0, false, nil
	}
	if ent.typ != TypeZSet {
		return 0, false, ErrWrongType
	}
	score, ok = ent.zset.Score(name)
	return score, ok, nil
}

// ZQuery returns up to limit members of the sorted set at key starting
// at the first member not less than (score, name), after skipping
// offset of those. A missing key yields a nil, nil result so callers
// can render it as an empty array rather than an error.
func (k *Keyspace) ZQuery(key string, score float64, name string, offset int64, limit int) ([]*zset.Element, error) {
	ent := k.lookup(key)
	if ent == nil {
		return nil, nil
	}
	if ent.typ != TypeZSet {
		return nil, ErrWrongType
	}
	return ent.zset.Query(score, name, offset, limit), nil
}
