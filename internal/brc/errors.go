package brc

import (
	"fmt"
	"strings"
)

// IOError reports a failure to open, stat, map or read the source file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// maxRecordInError limits how much of a bad record is kept in a ParseError.
const maxRecordInError = 64

// ParseError reports a malformed record. Offset is the absolute file offset
// of the start of the record.
type ParseError struct {
	Chunk  int
	Offset int64
	Record string
	Reason string
}

// NewParseError copies (a prefix of) record, so the error stays valid after
// the mapped view the record came from is released.
func NewParseError(chunk int, offset int64, record []byte, reason string) *ParseError {
	var sb strings.Builder
	if len(record) > maxRecordInError {
		sb.Write(record[:maxRecordInError])
		sb.WriteString("...")
	} else {
		sb.Write(record)
	}
	return &ParseError{Chunk: chunk, Offset: offset, Record: sb.String(), Reason: reason}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("chunk %d: offset %d: %s: %q", e.Chunk, e.Offset, e.Reason, e.Record)
}

// EncodingError reports a key that is not valid UTF-8.
type EncodingError struct {
	Key []byte
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("key is not valid utf-8: %q", e.Key)
}
