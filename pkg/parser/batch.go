package parser

import (
	"context"
	"io"
)

// Batch size bounds. Requests outside the range are clamped, and a
// non-positive size falls back to the default.
const (
	DefaultBatchSize = 1000
	MinBatchSize     = 10
	MaxBatchSize     = 10000
)

// Batcher groups a Source into bounded-size chunks for consumers that
// prefer batches over single records. The underlying source is still
// pulled lazily, one record at a time.
type Batcher struct {
	source Source
	size   int
}

// NewBatcher wraps source with the given batch size, clamped to
// [MinBatchSize, MaxBatchSize].
func NewBatcher(source Source, size int) *Batcher {
	switch {
	case size <= 0:
		size = DefaultBatchSize
	case size < MinBatchSize:
		size = MinBatchSize
	case size > MaxBatchSize:
		size = MaxBatchSize
	}
	return &Batcher{source: source, size: size}
}

// Size returns the effective batch size after clamping.
func (b *Batcher) Size() int { return b.size }

// Next returns the next batch. The final batch may be short; io.EOF is
// returned only with an empty batch.
func (b *Batcher) Next(ctx context.Context) ([]*Record, error) {
	batch := make([]*Record, 0, b.size)
	for len(batch) < b.size {
		rec, err := b.source.Next(ctx)
		if err == io.EOF {
			if len(batch) > 0 {
				return batch, nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

// Close closes the underlying source.
func (b *Batcher) Close() error { return b.source.Close() }

// Collect drains a source into a slice. Intended for small files and
// tests; large files should be consumed incrementally.
func Collect(ctx context.Context, source Source) ([]*Record, error) {
	var records []*Record
	for {
		rec, err := source.Next(ctx)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
