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

// Package hashindex implements a two-table, open-chaining hash map with
// incremental (amortized) rehashing. Nodes are intrusive: the caller
// embeds a Node in its payload and supplies identity via a precomputed
// 64-bit hash code and an equality callback, so the index never needs
// to know anything about the payload it indexes.
package hashindex

const (
	// DefaultLoadFactor is the count/size ratio, exceeding which
	// triggers a resize to double the table.
	DefaultLoadFactor = 8
	// DefaultMigrationQuantum is the maximum number of nodes migrated
	// out of the old table per mutating/lookup operation.
	DefaultMigrationQuantum = 128

	initialBuckets = 4
)

// Node is the intrusive hash hook embedded in a payload.
type Node struct {
	hcode uint64
	next  *Node
	owner interface{}
}

// Init sets the node's precomputed hash code. Hash codes must not
// change while the node is resident in a Table.
func (n *Node) Init(hcode uint64) {
	n.hcode = hcode
	n.next = nil
}

// HashCode returns the node's precomputed hash code.
func (n *Node) HashCode() uint64 { return n.hcode }

// SetOwner records the payload that embeds n, so that ForEach and
// lookup callers can recover it without unsafe pointer arithmetic.
func (n *Node) SetOwner(owner interface{}) { n.owner = owner }

// Owner returns the payload previously recorded with SetOwner.
func (n *Node) Owner() interface{} { return n.owner }

// Equal is supplied by the caller at lookup/pop time to decide identity
// between a probe node and a candidate already stored in the table.
type Equal func(candidate, probe *Node) bool

type bucketTable struct {
	buckets []*Node
	mask    uint64
	count   int
}

func newBucketTable(n int) *bucketTable {
	return &bucketTable{buckets: make([]*Node, n), mask: uint64(n - 1)}
}

// Table is an incrementally-rehashing hash map over intrusive Nodes.
type Table struct {
	cur, old   *bucketTable
	migrateAt  int
	loadFactor int
	quantum    int
}

// New returns an empty table. loadFactor and quantum of zero fall back
// to DefaultLoadFactor and DefaultMigrationQuantum.
func New(loadFactor, quantum int) *Table {
	if loadFactor <= 0 {
		loadFactor = DefaultLoadFactor
	}
	if quantum <= 0 {
		quantum = DefaultMigrationQuantum
	}
	return &Table{
		cur:        newBucketTable(initialBuckets),
		loadFactor: loadFactor,
		quantum:    quantum,
	}
}

// Len returns the total number of nodes resident across both tables.
func (t *Table) Len() int {
	n := t.cur.count
	if t.old != nil {
		n += t.old.count
	}
	return n
}

// helpMigrate drains up to the configured quantum of nodes from the old
// table into the current one, scanning buckets from where the previous
// call left off. It is called on every Insert/Lookup/Pop so the cost of
// a resize is amortized across normal operations instead of paid in one
// large pause.
func (t *Table) helpMigrate() {
	if t.old == nil {
		return
	}
	moved := 0
	for moved < t.quantum && t.old.count > 0 {
		for t.migrateAt <= int(t.old.mask) && t.old.buckets[t.migrateAt] == nil {
			t.migrateAt++
		}
		if t.migrateAt > int(t.old.mask) {
			break
		}
		node := t.old.buckets[t.migrateAt]
		t.old.buckets[t.migrateAt] = node.next
		t.old.count--

		pos := node.hcode & t.cur.mask
		node.next = t.cur.buckets[pos]
		t.cur.buckets[pos] = node
		t.cur.count++
		moved++
	}
	if t.old.count == 0 {
		t.old = nil
		t.migrateAt = 0
	}
}

func (t *Table) maybeResize() {
	if t.old != nil {
		return
	}
	if t.cur.count <= t.loadFactor*(int(t.cur.mask)+1) {
		return
	}
	t.old = t.cur
	t.cur = newBucketTable((int(t.old.mask) + 1) * 2)
	t.migrateAt = 0
}

// Insert prepends node to its bucket's chain in the current table.
func (t *Table) Insert(node *Node) {
	t.helpMigrate()
	pos := node.hcode & t.cur.mask
	node.next = t.cur.buckets[pos]
	t.cur.buckets[pos] = node
	t.cur.count++
	t.maybeResize()
}

func lookupIn(tab *bucketTable, probe *Node, eq Equal) *Node {
	if tab == nil {
		return nil
	}
	pos := probe.hcode & tab.mask
	for cur := tab.buckets[pos]; cur != nil; cur = cur.next {
		if cur.hcode == probe.hcode && eq(cur, probe) {
			return cur
		}
	}
	return nil
}

// Lookup returns the first node equal to probe under eq, searching the
// current table then the migrating table, or nil if none matches.
func (t *Table) Lookup(probe *Node, eq Equal) *Node {
	t.helpMigrate()
	if found := lookupIn(t.cur, probe, eq); found != nil {
		return found
	}
	return lookupIn(t.old, probe, eq)
}

func popFrom(tab *bucketTable, probe *Node, eq Equal) *Node {
	if tab == nil {
		return nil
	}
	pos := probe.hcode & tab.mask
	prev := &tab.buckets[pos]
	for cur := *prev; cur != nil; cur = cur.next {
		if cur.hcode == probe.hcode && eq(cur, probe) {
			*prev = cur.next
			cur.next = nil
			tab.count--
			return cur
		}
		prev = &cur.next
	}
	return nil
}

// Pop removes and returns the first node equal to probe under eq, or
// nil if none matches.
func (t *Table) Pop(probe *Node, eq Equal) *Node {
	t.helpMigrate()
	if found := popFrom(t.cur, probe, eq); found != nil {
		return found
	}
	return popFrom(t.old, probe, eq)
}

// ForEach visits every resident node across both tables. Order is
// unspecified. visit must not mutate the table.
func (t *Table) ForEach(visit func(*Node)) {
	for _, tab := range [2]*bucketTable{t.cur, t.old} {
		if tab == nil {
			continue
		}
		for _, head := range tab.buckets {
			for n := head; n != nil; n = n.next {
				visit(n)
			}
		}
	}
}

// Migrating reports whether an incremental rehash is currently in
// progress, for diagnostics.
func (t *Table) Migrating() bool { return t.old != nil }
