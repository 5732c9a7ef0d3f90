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

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"gopkg.in/urfave/cli.v1"

	"github.com/holisticode/kvd/protocol"
)

var loadCommand = cli.Command{
	Name:      "load",
	Usage:     "bulk-load SET commands from a \"key value\" file into a running server",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "target", Value: "127.0.0.1:1234", Usage: "server address to load into"},
	},
	Action: runLoad,
}

func runLoad(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("kvd load: expected exactly one file argument")
	}
	lines, err := countLines(ctx.Args().First())
	if err != nil {
		return err
	}

	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	conn, err := net.Dial("tcp", ctx.String("target"))
	if err != nil {
		return fmt.Errorf("kvd load: dial %s: %w", ctx.String("target"), err)
	}
	defer conn.Close()

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(lines),
		mpb.PrependDecorators(decor.CountersNoUnit("%d / %d", 12)),
		mpb.AppendDecorators(decor.Percentage(5)),
	)

	scanner := bufio.NewScanner(f)
	var loaded int
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		if err := sendSet(conn, fields[0], fields[1]); err != nil {
			return fmt.Errorf("kvd load: line %d: %w", loaded+1, err)
		}
		loaded++
		bar.Increment()
	}
	p.Wait()

	fmt.Fprintf(os.Stdout, "loaded %d keys\n", loaded)
	return scanner.Err()
}

func sendSet(conn net.Conn, key, val string) error {
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write(protocol.EncodeRequest([]string{"SET", key, val})); err != nil {
		return err
	}

	var lenBuf [4]byte
	if _, err := readFull(conn, lenBuf[:]); err != nil {
		return err
	}
	total := binary.LittleEndian.Uint32(lenBuf[:])
	reply := make([]byte, total)
	_, err := readFull(conn, reply)
	return err
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	got := 0
	for got < len(buf) {
		n, err := conn.Read(buf[got:])
		if err != nil {
			return got, err
		}
		got += n
	}
	return got, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}
