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
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/holisticode/kvd/store"
)

type fakeLoop struct {
	connections int
	disconnects []string
	uptime      time.Duration
	accepted    int
	closed      int
}

func (f fakeLoop) Len() int                    { return f.connections }
func (f fakeLoop) Uptime() time.Duration       { return f.uptime }
func (f fakeLoop) RecentDisconnects() []string { return f.disconnects }
func (f fakeLoop) Accepted() int               { return f.accepted }
func (f fakeLoop) Closed() int                 { return f.closed }

func startServer(t *testing.T) (baseURL string, inspector *Inspector) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ks := store.New(8, 128)
	if err := ks.Set("k1", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	inspector = NewInspector(ks, fakeLoop{connections: 3, disconnects: []string{"conn-a"}, uptime: 5 * time.Second, accepted: 5, closed: 2})

	srv := NewServer(addr, inspector)
	go srv.ListenAndServe()
	t.Cleanup(func() { srv.Close() })

	// Give the listener a moment to come up.
	for i := 0; i < 50; i++ {
		if conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond); err == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return "http://" + addr, inspector
}

func TestHandleStats(t *testing.T) {
	base, _ := startServer(t)

	resp, err := http.Get(base + "/debug/inspect")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if stats.Keys != 1 {
		t.Fatalf("Keys = %d, want 1", stats.Keys)
	}
	if stats.Connections != 3 {
		t.Fatalf("Connections = %d, want 3", stats.Connections)
	}
	if stats.UptimeSeconds != 5 {
		t.Fatalf("UptimeSeconds = %v, want 5", stats.UptimeSeconds)
	}
	if len(stats.RecentDisconnects) != 1 || stats.RecentDisconnects[0] != "conn-a" {
		t.Fatalf("RecentDisconnects = %v, want [conn-a]", stats.RecentDisconnects)
	}
	if stats.AcceptedConnections != 5 {
		t.Fatalf("AcceptedConnections = %d, want 5", stats.AcceptedConnections)
	}
	if stats.ClosedConnections != 2 {
		t.Fatalf("ClosedConnections = %d, want 2", stats.ClosedConnections)
	}
	if stats.ZSets != 0 {
		t.Fatalf("ZSets = %d, want 0", stats.ZSets)
	}
	if stats.Rehashing {
		t.Fatalf("Rehashing = true, want false")
	}
}

func TestHandleDisconnects(t *testing.T) {
	base, _ := startServer(t)

	resp, err := http.Get(base + "/debug/disconnects")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	var disconnects []string
	if err := json.NewDecoder(resp.Body).Decode(&disconnects); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(disconnects) != 1 || disconnects[0] != "conn-a" {
		t.Fatalf("disconnects = %v, want [conn-a]", disconnects)
	}
}

func TestHandleMetricsReturnsJSONObject(t *testing.T) {
	base, _ := startServer(t)

	resp, err := http.Get(base + "/debug/metrics")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	var snapshot map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestHandleKeys(t *testing.T) {
	base, _ := startServer(t)

	resp, err := http.Get(base + "/debug/inspect/keys")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	var keys []string
	if err := json.NewDecoder(resp.Body).Decode(&keys); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(keys) != 1 || keys[0] != "k1" {
		t.Fatalf("keys = %v, want [k1]", keys)
	}
}

func TestCorsHeaderPresent(t *testing.T) {
	base, _ := startServer(t)

	req, err := http.NewRequest(http.MethodGet, base+"/debug/inspect", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
