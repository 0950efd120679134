package parser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
)

// sliceSource feeds canned records, for exercising the batcher without
// touching the filesystem.
type sliceSource struct {
	records []*Record
	index   int
}

func (s *sliceSource) Next(ctx context.Context) (*Record, error) {
	if s.index >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.index]
	s.index++
	return rec, nil
}

func (s *sliceSource) Close() error { return nil }

func makeRecords(n int) []*Record {
	records := make([]*Record, n)
	for i := range records {
		records[i] = &Record{Message: fmt.Sprintf("record %d", i)}
	}
	return records
}

func TestBatcher_SplitsIntoBatches(t *testing.T) {
	b := NewBatcher(&sliceSource{records: makeRecords(25)}, 10)
	ctx := context.Background()

	var sizes []int
	for {
		batch, err := b.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, len(batch))
	}

	want := []int{10, 10, 5}
	if len(sizes) != len(want) {
		t.Fatalf("batch sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("batch sizes = %v, want %v", sizes, want)
		}
	}
}

func TestBatcher_EOFOnlyWithEmptyBatch(t *testing.T) {
	b := NewBatcher(&sliceSource{records: makeRecords(10)}, 10)
	ctx := context.Background()

	batch, err := b.Next(ctx)
	if err != nil || len(batch) != 10 {
		t.Fatalf("first Next() = %d records, %v; want 10, nil", len(batch), err)
	}
	if _, err := b.Next(ctx); err != io.EOF {
		t.Fatalf("second Next() error = %v, want io.EOF", err)
	}
}

func TestNewBatcher_Clamping(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultBatchSize},
		{-5, DefaultBatchSize},
		{1, MinBatchSize},
		{10, 10},
		{500, 500},
		{10000, MaxBatchSize},
		{99999, MaxBatchSize},
	}
	for _, tt := range tests {
		if got := NewBatcher(&sliceSource{}, tt.in).Size(); got != tt.want {
			t.Errorf("NewBatcher(size=%d).Size() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBatcher_PreservesOrder(t *testing.T) {
	b := NewBatcher(&sliceSource{records: makeRecords(30)}, 10)
	ctx := context.Background()

	seen := 0
	for {
		batch, err := b.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		for _, rec := range batch {
			want := fmt.Sprintf("record %d", seen)
			if rec.Message != want {
				t.Fatalf("record out of order: got %q, want %q", rec.Message, want)
			}
			seen++
		}
	}
	if seen != 30 {
		t.Errorf("drained %d records, want 30", seen)
	}
}

func TestCollect(t *testing.T) {
	records, err := Collect(context.Background(), &sliceSource{records: makeRecords(3)})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if !strings.HasPrefix(records[0].Message, "record 0") {
		t.Errorf("records[0].Message = %q", records[0].Message)
	}
}
