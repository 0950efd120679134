// Package scanner routes files to their format parser and fans out over
// multiple files with bounded concurrency. It is the direct caller of the
// parsing core: per-file isolation lives here, so one unreadable file
// never aborts the rest of a scan.
package scanner

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/logsift/logsift/pkg/detector"
	"github.com/logsift/logsift/pkg/level"
	"github.com/logsift/logsift/pkg/parser"
)

// Scanner detects formats and constructs the matching sources.
type Scanner struct {
	detector     *detector.Detector
	levels       *level.Chain
	log          *zap.Logger
	workers      int
	batchSize    int
	maxLineBytes int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scanner) { s.log = log }
}

// WithLevelChain replaces the default level-detection chain used by the
// parsers that need one.
func WithLevelChain(c *level.Chain) Option {
	return func(s *Scanner) { s.levels = c }
}

// WithWorkers bounds concurrent file parses in ScanAll. Zero means one
// per processor.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithDetector replaces the default format detector.
func WithDetector(d *detector.Detector) Option {
	return func(s *Scanner) { s.detector = d }
}

// WithBatchSize sets the record batch size used when draining a file.
// Clamped by the batching layer to [parser.MinBatchSize, parser.MaxBatchSize].
func WithBatchSize(n int) Option {
	return func(s *Scanner) { s.batchSize = n }
}

// WithMaxLineBytes caps the line buffer of the line-oriented parsers.
func WithMaxLineBytes(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxLineBytes = n
		}
	}
}

// New creates a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		log:     zap.NewNop(),
		levels:  level.NewChain(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.detector == nil {
		s.detector = detector.New(detector.WithLogger(s.log))
	}
	return s
}

// ParseFile detects the format of one file and returns a source for it.
// The RabbitMQ paired-file routing decision is made here, per path, from
// the filename alone, before any parsing begins.
func (s *Scanner) ParseFile(ctx context.Context, path string) (parser.Source, detector.Format, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	default:
	}

	format := s.detector.Detect(path)
	src, err := s.open(path, format)
	if err != nil {
		return nil, format, err
	}
	return src, format, nil
}

func (s *Scanner) open(path string, format detector.Format) (parser.Source, error) {
	switch format {
	case detector.FormatIIS:
		return parser.NewIISSource(path, parser.WithIISLogger(s.log))

	case detector.FormatRabbitMQ:
		if headersPath, ok := parser.HeadersCompanion(path); ok {
			s.log.Debug("paired rabbitmq layout detected",
				zap.String("main", path), zap.String("headers", headersPath))
			return parser.NewPairedRabbitMQSource(path, headersPath,
				parser.WithRabbitMQLogger(s.log),
				parser.WithRabbitMQLevelChain(s.levels))
		}
		return parser.NewRabbitMQSource(path,
			parser.WithRabbitMQLogger(s.log),
			parser.WithRabbitMQLevelChain(s.levels))

	case detector.FormatLog4Net:
		return parser.NewLog4NetSource(path,
			parser.WithLog4NetLogger(s.log),
			parser.WithLog4NetLevelChain(s.levels))

	default:
		return parser.NewStandardSource(path,
			parser.WithLogger(s.log),
			parser.WithLevelChain(s.levels),
			parser.WithMaxLineBytes(s.maxLineBytes))
	}
}

// FileResult is the outcome of parsing one file.
type FileResult struct {
	Path    string
	Format  detector.Format
	Records []*parser.Record
	Err     error
}

// ScanResult aggregates a multi-file scan.
type ScanResult struct {
	Files []FileResult
}

// Records flattens all parsed records in input-path order.
func (r *ScanResult) Records() []*parser.Record {
	var records []*parser.Record
	for _, f := range r.Files {
		records = append(records, f.Records...)
	}
	return records
}

// Failed returns the files that could not be parsed at all.
func (r *ScanResult) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// ScanAll parses every path with bounded concurrency. Headers files of
// paired layouts are skipped; they are consumed through their main file.
// Each file owns its parse state, so the only shared mutation is the
// mutex-guarded result collection.
func (s *Scanner) ScanAll(ctx context.Context, paths []string) (*ScanResult, error) {
	result := &ScanResult{}

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, path := range paths {
		if parser.IsHeadersFile(path) {
			s.log.Debug("skipping headers file, parsed via its main file",
				zap.String("file", path))
			continue
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return result, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			fr := s.scanOne(ctx, path)

			mu.Lock()
			result.Files = append(result.Files, fr)
			mu.Unlock()
		}(path)
	}

	wg.Wait()

	// Concurrent completion scrambles the order; restore input order so
	// scans are deterministic.
	order := make(map[string]int, len(paths))
	for i, p := range paths {
		order[p] = i
	}
	sort.SliceStable(result.Files, func(i, j int) bool {
		return order[result.Files[i].Path] < order[result.Files[j].Path]
	})

	return result, ctx.Err()
}

func (s *Scanner) scanOne(ctx context.Context, path string) FileResult {
	src, format, err := s.ParseFile(ctx, path)
	if err != nil {
		s.log.Warn("file parse failed", zap.String("file", path), zap.Error(err))
		return FileResult{Path: path, Format: format, Err: fmt.Errorf("parsing %s: %w", path, err)}
	}
	defer src.Close()

	// Drain the source batch-wise so one file never holds more than a
	// batch beyond what it has already handed over.
	batcher := parser.NewBatcher(src, s.batchSize)
	var records []*parser.Record
	for {
		batch, err := batcher.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if err != context.Canceled {
				s.log.Warn("file read failed mid-parse", zap.String("file", path), zap.Error(err))
			}
			return FileResult{Path: path, Format: format, Records: records, Err: err}
		}
		records = append(records, batch...)
	}
	return FileResult{Path: path, Format: format, Records: records}
}
