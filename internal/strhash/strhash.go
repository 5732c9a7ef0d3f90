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

// Package strhash provides the FNV-variant string hash used to bucket
// keys and sorted-set member names across the store.
package strhash

// Sum computes a 32-bit hash over s: the running hash starts at the
// FNV offset basis and is updated one byte at a time as
// h = (h + byte) * prime, matching the hash used by every index in
// the store so that the same key always lands in the same bucket
// regardless of which table is doing the hashing.
func Sum(s string) uint32 {
	var h uint32 = 0x811c9dc5
	for i := 0; i < len(s); i++ {
		h = (h + uint32(s[i])) * 0x01000193
	}
	return h
}
