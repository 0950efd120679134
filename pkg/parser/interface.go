package parser

import "context"

// Source provides a pull-based iterator over parsed records. A caller
// pulls one record at a time; the source suspends between pulls and never
// holds the whole file in memory. Implementations are safe for sequential
// access only, check ctx once per line or element, and release their file
// handle on every exit path.
type Source interface {
	// Next returns the next record. Returns io.EOF when the file is
	// exhausted, ctx.Err() when cancelled, and an I/O error only for
	// file-level failures. Malformed lines never surface as errors;
	// they come back as UNKNOWN or PARSE_ERROR records or are skipped.
	Next(ctx context.Context) (*Record, error)

	// Close releases the underlying file handle. Safe to call twice.
	Close() error
}
