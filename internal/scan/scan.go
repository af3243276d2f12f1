// Package scan aggregates the records of a single byte range.
package scan

import (
	"bytes"
	"os"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/miku/brcchunk/internal/brc"
)

// Aggregate maps exactly the bytes of r from f and returns the measurements
// of all records in it. The view is released before Aggregate returns; keys
// in the returned partial are copies. Chunk is only used to label errors.
func Aggregate(f *os.File, chunk int, r brc.Range) (p brc.Partial, err error) {
	if r.Len() <= 0 {
		return brc.Partial{}, nil
	}
	// mmap offsets must be page aligned, the view is sliced back to r.
	var (
		page    = int64(unix.Getpagesize())
		aligned = r.Start - r.Start%page
	)
	data, err := unix.Mmap(int(f.Fd()), aligned, int(r.End-aligned), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, &brc.IOError{Op: "mmap", Path: f.Name(), Err: err}
	}
	defer func() {
		if uerr := unix.Munmap(data); uerr != nil && err == nil {
			p, err = nil, &brc.IOError{Op: "munmap", Path: f.Name(), Err: uerr}
		}
	}()
	return AggregateBytes(data[r.Start-aligned:], chunk, r.Start)
}

// AggregateBytes parses data, a line aligned region that starts at file
// offset base, in a single forward pass. A trailing newline does not start
// another record and empty lines are skipped. Any malformed record fails the
// whole region.
func AggregateBytes(data []byte, chunk int, base int64) (brc.Partial, error) {
	var (
		p   = make(brc.Partial)
		off int
	)
	for off < len(data) {
		line := data[off:]
		next := len(data)
		if i := bytes.IndexByte(line, brc.Newline); i >= 0 {
			line = line[:i]
			next = off + i + 1
		}
		if len(line) > 0 {
			key, v, reason := parseRecord(line)
			if reason != "" {
				return nil, brc.NewParseError(chunk, base+int64(off), line, reason)
			}
			// string(key) in a map index does not allocate.
			if m, ok := p[string(key)]; ok {
				m.Add(v)
			} else {
				p[string(key)] = brc.NewMeasurements(v)
			}
		}
		off = next
	}
	return p, nil
}

// parseRecord splits line at the first delimiter and parses the value. On
// failure, reason describes the problem.
func parseRecord(line []byte) (key []byte, v float64, reason string) {
	i := bytes.IndexByte(line, brc.Delimiter)
	switch {
	case i < 0:
		return nil, 0, "missing delimiter"
	case i == 0:
		return nil, 0, "empty key"
	}
	key, value := line[:i], line[i+1:]
	if !isDecimal(value) {
		return nil, 0, "invalid value"
	}
	v, err := strconv.ParseFloat(unsafe.String(unsafe.SliceData(value), len(value)), 64)
	if err != nil {
		return nil, 0, "value out of range"
	}
	return key, v, ""
}

// isDecimal reports whether b is an optionally signed decimal number with an
// optional fractional part, e.g. "12", "-3.4", "+.5" or "7.".
func isDecimal(b []byte) bool {
	var i, digits int
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		i++
	}
	for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
		digits++
	}
	if i < len(b) && b[i] == '.' {
		i++
		for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
			digits++
		}
	}
	return digits > 0 && i == len(b)
}
