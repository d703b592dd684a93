package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TraceRecord is one access of a memory trace.
type TraceRecord struct {
	Write bool
	Addr  uint64
	CPU   int
	Line  int
}

// ParseTrace reads a text trace. Each line holds an operation (R or W), an
// address in any Go integer syntax, and optionally the issuing cpu. Blank
// lines and everything after '#' are ignored.
//
//	R 0x1000
//	W 4096 1   # store from cpu 1
func ParseTrace(r io.Reader) ([]TraceRecord, error) {
	var records []TraceRecord

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		record, err := parseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNum, err)
		}
		record.Line = lineNum
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	return records, nil
}

func parseRecord(fields []string) (TraceRecord, error) {
	var record TraceRecord

	if len(fields) < 2 || len(fields) > 3 {
		return record, fmt.Errorf("want 2 or 3 fields, got %d", len(fields))
	}

	switch strings.ToUpper(fields[0]) {
	case "R":
	case "W":
		record.Write = true
	default:
		return record, fmt.Errorf("unknown operation %q", fields[0])
	}

	addr, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return record, fmt.Errorf("bad address %q: %w", fields[1], err)
	}
	record.Addr = addr

	if len(fields) == 3 {
		cpu, err := strconv.Atoi(fields[2])
		if err != nil || cpu < 0 {
			return record, fmt.Errorf("bad cpu %q", fields[2])
		}
		record.CPU = cpu
	}

	return record, nil
}
