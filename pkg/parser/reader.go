package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// defaultMaxLineBytes caps a single scanned line.
const defaultMaxLineBytes = 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// lineReader wraps an open log file: transparent gzip decompression for
// .gz paths, UTF-8 BOM stripping, and a scanner with a bounded buffer.
type lineReader struct {
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
}

// openLineReader opens path for line-by-line reading. The returned reader
// owns the file handle; Close releases it on every exit path.
func openLineReader(path string, maxLineBytes int) (*lineReader, error) {
	if maxLineBytes <= 0 {
		maxLineBytes = defaultMaxLineBytes
	}

	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	lr := &lineReader{file: f}
	var r io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		lr.gz = gz
		r = gz
	}

	lr.scanner = bufio.NewScanner(&bomStrippingReader{r: r})
	lr.scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	return lr, nil
}

// Scan advances to the next line.
func (lr *lineReader) Scan() bool { return lr.scanner.Scan() }

// Text returns the current line without its terminator.
func (lr *lineReader) Text() string { return lr.scanner.Text() }

// Err returns the first non-EOF scanner error.
func (lr *lineReader) Err() error { return lr.scanner.Err() }

// Close releases the gzip stream and the file handle. Safe to call twice.
func (lr *lineReader) Close() error {
	var err error
	if lr.gz != nil {
		err = lr.gz.Close()
		lr.gz = nil
	}
	if lr.file != nil {
		if cerr := lr.file.Close(); err == nil {
			err = cerr
		}
		lr.file = nil
	}
	return err
}

// bomStrippingReader removes a leading UTF-8 BOM from the stream.
type bomStrippingReader struct {
	r       io.Reader
	checked bool
}

func (b *bomStrippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, head)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return copy(p, head[:n]), io.EOF
		}
		if err != nil {
			return 0, err
		}
		if !bytes.Equal(head, utf8BOM) {
			b.r = io.MultiReader(bytes.NewReader(head), b.r)
		}
	}
	return b.r.Read(p)
}

// SampleLines reads up to n non-blank lines from the head of a file,
// decompressing and BOM-stripping like the parsers do. Used by format
// detection and validation.
func SampleLines(path string, n int) ([]string, error) {
	reader, err := openLineReader(path, 0)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var lines []string
	for len(lines) < n && reader.Scan() {
		line := reader.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

// ReadFile slurps a whole file, decompressing .gz paths and stripping a
// leading BOM. Used by the JSON parsers, which decode the document up
// front before streaming its elements.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return bytes.TrimPrefix(data, utf8BOM), nil
}
