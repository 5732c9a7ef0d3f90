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

package hashindex

import (
	"fmt"
	"math/rand"
	"testing"
)

// keys maps nodes to the string key they represent. Real callers (like
// zset.Element) embed Node in their own payload struct and recover it
// with Owner(); tests stand in for that with a side table.
var keys map[*Node]string

func hashString(s string) uint64 {
	var h uint64 = 0x811c9dc5
	for i := 0; i < len(s); i++ {
		h = (h + uint64(s[i])) * 0x01000193
	}
	return h
}

func newKeyNode(key string) *Node {
	n := &Node{}
	n.Init(hashString(key))
	keys[n] = key
	return n
}

func probeFor(key string) *Node {
	n := &Node{}
	n.Init(hashString(key))
	keys[n] = key
	return n
}

func eqByKey(candidate, probe *Node) bool {
	return keys[candidate] == keys[probe]
}

func TestInsertLookupPop(t *testing.T) {
	keys = map[*Node]string{}
	tbl := New(DefaultLoadFactor, DefaultMigrationQuantum)

	a := newKeyNode("alpha")
	b := newKeyNode("beta")
	tbl.Insert(a)
	tbl.Insert(b)

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}

	found := tbl.Lookup(probeFor("alpha"), eqByKey)
	if found == nil || keys[found] != "alpha" {
		t.Fatalf("Lookup(alpha) = %v", found)
	}

	if got := tbl.Lookup(probeFor("missing"), eqByKey); got != nil {
		t.Fatalf("Lookup(missing) = %v, want nil", got)
	}

	popped := tbl.Pop(probeFor("alpha"), eqByKey)
	if popped == nil || keys[popped] != "alpha" {
		t.Fatalf("Pop(alpha) = %v", popped)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() after pop = %d, want 1", tbl.Len())
	}
	if got := tbl.Lookup(probeFor("alpha"), eqByKey); got != nil {
		t.Fatal("alpha still present after Pop")
	}
	if got := tbl.Lookup(probeFor("beta"), eqByKey); got == nil {
		t.Fatal("beta missing after unrelated pop")
	}
}

func TestIncrementalRehashAcrossResize(t *testing.T) {
	keys = map[*Node]string{}
	// Small quantum so migration takes many operations to finish,
	// exercising the old-table fallback path in Lookup/Pop.
	tbl := New(2, 1)

	const n = 500
	inserted := make([]*Node, 0, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		node := newKeyNode(key)
		tbl.Insert(node)
		inserted = append(inserted, node)

		if i == n/2 && !tbl.Migrating() {
			t.Fatalf("expected a migration in progress by insert %d", i)
		}
	}

	if tbl.Len() != n {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), n)
	}

	for _, node := range inserted {
		key := keys[node]
		found := tbl.Lookup(probeFor(key), eqByKey)
		if found == nil {
			t.Fatalf("Lookup(%s) = nil", key)
		}
	}

	r := rand.New(rand.NewSource(2))
	r.Shuffle(len(inserted), func(i, j int) { inserted[i], inserted[j] = inserted[j], inserted[i] })
	for _, node := range inserted {
		key := keys[node]
		if got := tbl.Pop(probeFor(key), eqByKey); got == nil {
			t.Fatalf("Pop(%s) = nil", key)
		}
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len() after draining = %d, want 0", tbl.Len())
	}
	if tbl.Migrating() {
		t.Fatal("migration still in progress after all nodes drained")
	}
}

func TestForEachVisitsEveryNode(t *testing.T) {
	keys = map[*Node]string{}
	tbl := New(DefaultLoadFactor, DefaultMigrationQuantum)

	want := map[string]bool{}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("k%d", i)
		tbl.Insert(newKeyNode(key))
		want[key] = true
	}

	got := map[string]bool{}
	tbl.ForEach(func(n *Node) { got[keys[n]] = true })

	if len(got) != len(want) {
		t.Fatalf("ForEach visited %d nodes, want %d", len(got), len(want))
	}
	for key := range want {
		if !got[key] {
			t.Fatalf("ForEach missed key %q", key)
		}
	}
}
