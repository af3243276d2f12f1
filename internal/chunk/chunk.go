// Package chunk splits a file of newline terminated records into line
// aligned byte ranges that can be aggregated independently.
package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/exp/mmap"

	"github.com/miku/brcchunk/internal/brc"
)

// DefaultSize is the target chunk size in bytes.
const DefaultSize = 10_000_000

// scanWindow is the number of bytes read at a time while looking for the end
// of a line.
const scanWindow = 4096

// PlanFile opens path read-only and plans ranges over its full length.
func PlanFile(path string, target int64) ([]brc.Range, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, &brc.IOError{Op: "open", Path: path, Err: err}
	}
	defer r.Close()
	ranges, err := Plan(r, int64(r.Len()), target)
	if err != nil {
		return nil, &brc.IOError{Op: "plan", Path: path, Err: err}
	}
	return ranges, nil
}

// Plan returns contiguous ranges covering [0, size). Candidate split points
// lie at multiples of target; each is moved forward to just past the next
// newline, so no record is ever split. Candidates that fall inside a range
// already emitted (a line longer than target) are dropped.
func Plan(r io.ReaderAt, size, target int64) ([]brc.Range, error) {
	if target <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", target)
	}
	if size <= target {
		return []brc.Range{{Start: 0, End: size}}, nil
	}
	var (
		ranges = make([]brc.Range, 0, size/target+1)
		start  int64
	)
	for c := target; c < size; c += target {
		if c < start {
			continue
		}
		end, err := lineEnd(r, c, size)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, brc.Range{Start: start, End: end})
		start = end
		if end == size {
			break
		}
	}
	if start < size {
		ranges = append(ranges, brc.Range{Start: start, End: size})
	}
	return ranges, nil
}

// lineEnd returns the offset just past the first newline at or after off, or
// size, if there is no such newline.
func lineEnd(r io.ReaderAt, off, size int64) (int64, error) {
	buf := make([]byte, scanWindow)
	for off < size {
		n := int(min(int64(len(buf)), size-off))
		k, err := r.ReadAt(buf[:n], off)
		if k < n && err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read at %d: %w", off, err)
		}
		if k == 0 {
			return 0, fmt.Errorf("read at %d: %w", off, io.ErrUnexpectedEOF)
		}
		if i := bytes.IndexByte(buf[:k], brc.Newline); i >= 0 {
			return off + int64(i) + 1, nil
		}
		off += int64(k)
	}
	return size, nil
}
