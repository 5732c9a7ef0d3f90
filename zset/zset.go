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

// Package zset implements a sorted set: a collection of (name, score)
// pairs looked up either by name or by (score, name) rank order. It is
// a composite index over a single allocation per element — one
// avltree.Node for the score order and one hashindex.Node for name
// lookup, both embedded in Element — matching the two-index design of
// a Redis-style ZSET.
package zset

import (
	"github.com/holisticode/kvd/avltree"
	"github.com/holisticode/kvd/hashindex"
	"github.com/holisticode/kvd/internal/strhash"
)

// Element is one (name, score) member of a Set. Both index hooks are
// embedded directly; there is no separate allocation per index.
type Element struct {
	byScore avltree.Node
	byName  hashindex.Node
	name    string
	score   float64
}

// Name returns the element's member name.
func (e *Element) Name() string { return e.name }

// Score returns the element's current score.
func (e *Element) Score() float64 { return e.score }

func newElement(name string, score float64) *Element {
	e := &Element{name: name, score: score}
	avltree.Init(&e.byScore)
	avltree.SetOwner(&e.byScore, e)
	e.byName.Init(uint64(strhash.Sum(name)))
	e.byName.SetOwner(e)
	return e
}

// less compares two elements by score, breaking ties by name. Go's
// native string comparison is already the byte-wise, shorter-prefix-is-
// less ordering the rule calls for, so no custom comparator is needed
// for the name half.
func less(s1 float64, n1 string, s2 float64, n2 string) bool {
	if s1 != s2 {
		return s1 < s2
	}
	return n1 < n2
}

func scoreLess(a, b *avltree.Node) bool {
	ea := avltree.Owner(a).(*Element)
	eb := avltree.Owner(b).(*Element)
	return less(ea.score, ea.name, eb.score, eb.name)
}

// probeByName builds a throwaway node for name-only lookups against
// the hash index; its score is meaningless and must never be inserted.
func probeByName(name string) *hashindex.Node {
	n := &hashindex.Node{}
	n.Init(uint64(strhash.Sum(name)))
	n.SetOwner(&Element{name: name})
	return n
}

func eqByName(candidate, probe *hashindex.Node) bool {
	ca := candidate.Owner().(*Element)
	pb := probe.Owner().(*Element)
	return ca.name == pb.name
}

// Set is a sorted set: the name index resolves ZSCORE/ZREM/membership
// tests in O(1) amortized time, and the score index keeps members in
// ascending (score, name) order for ZQUERY range scans.
type Set struct {
	byName  *hashindex.Table
	byScore *avltree.Tree
}

// New returns an empty sorted set. loadFactor and quantum tune the
// name index's incremental rehashing; zero picks hashindex's defaults.
func New(loadFactor, quantum int) *Set {
	s := &Set{byName: hashindex.New(loadFactor, quantum)}
	s.byScore = avltree.New(scoreLess)
	return s
}

// Len returns the number of members in the set.
func (s *Set) Len() int { return s.byName.Len() }

// Add inserts name with score, or updates name's score if it is
// already a member. It reports whether a new member was created.
func (s *Set) Add(name string, score float64) (created bool) {
	found := s.byName.Lookup(probeByName(name), eqByName)
	if found != nil {
		el := found.Owner().(*Element)
		if el.score == score {
			return false
		}
		s.byScore.Delete(&el.byScore)
		el.score = score
		avltree.Init(&el.byScore)
		avltree.SetOwner(&el.byScore, el)
		s.byScore.Insert(&el.byScore)
		return false
	}

	el := newElement(name, score)
	s.byName.Insert(&el.byName)
	s.byScore.Insert(&el.byScore)
	return true
}

// Score returns name's score and whether it is a member.
func (s *Set) Score(name string) (float64, bool) {
	found := s.byName.Lookup(probeByName(name), eqByName)
	if found == nil {
		return 0, false
	}
	return found.Owner().(*Element).score, true
}

// Remove deletes name from the set, reporting whether it was present.
func (s *Set) Remove(name string) bool {
	found := s.byName.Pop(probeByName(name), eqByName)
	if found == nil {
		return false
	}
	el := found.Owner().(*Element)
	s.byScore.Delete(&el.byScore)
	return true
}

// Query returns up to limit members in ascending (score, name) order,
// starting at the first member not less than (score, name), skipping
// the first offset of those. It returns nil once the range is
// exhausted or if limit is non-positive.
func (s *Set) Query(score float64, name string, offset int64, limit int) []*Element {
	if limit <= 0 {
		return nil
	}
	anchor := s.byScore.Seek(func(n *avltree.Node) bool {
		e := avltree.Owner(n).(*Element)
		return less(e.score, e.name, score, name)
	})
	if anchor == nil {
		return nil
	}
	start := s.byScore.Offset(anchor, offset)
	if start == nil {
		return nil
	}

	results := make([]*Element, 0, limit)
	for n := start; n != nil && len(results) < limit; n = s.byScore.Offset(n, 1) {
		results = append(results, avltree.Owner(n).(*Element))
	}
	return results
}

// ForEach visits every member in unspecified order.
func (s *Set) ForEach(visit func(*Element)) {
	s.byName.ForEach(func(n *hashindex.Node) {
		visit(n.Owner().(*Element))
	})
}
