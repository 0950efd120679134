package parser

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/logsift/logsift/pkg/level"
)

// headersSuffix marks the companion file of a paired RabbitMQ layout:
// messages in X.json, their fault headers in X_headers.json, joined by
// message id.
const headersSuffix = "_headers"

// HeadersCompanion returns the headers-file path a main message file
// would pair with, and whether it exists on disk. The routing decision is
// made per-path before any parsing begins.
func HeadersCompanion(path string) (string, bool) {
	ext := ".json"
	base := path
	if strings.HasSuffix(base, ".gz") {
		base = strings.TrimSuffix(base, ".gz")
		ext = ".json.gz"
	}
	if !strings.HasSuffix(base, ".json") {
		return "", false
	}
	stem := strings.TrimSuffix(base, ".json")
	if strings.HasSuffix(stem, headersSuffix) {
		return "", false
	}

	companion := stem + headersSuffix + ext
	if _, err := os.Stat(companion); err != nil {
		return "", false
	}
	return companion, true
}

// IsHeadersFile reports whether path is the headers half of a pair. These
// are parsed through their main file, never on their own.
func IsHeadersFile(path string) bool {
	base := strings.TrimSuffix(path, ".gz")
	base = strings.TrimSuffix(base, ".json")
	return strings.HasSuffix(base, headersSuffix)
}

// PairedRabbitMQSource joins a main message file with its headers file.
// The headers document is indexed by message id up front; main-file
// elements are then walked lazily and joined to their fault headers.
type PairedRabbitMQSource struct {
	log    *zap.Logger
	levels *level.Chain
	path   string

	mainParser    fastjson.Parser
	headersParser fastjson.Parser
	elements      []*fastjson.Value
	headersByID   map[string]*fastjson.Value
	index         int
}

// NewPairedRabbitMQSource reads both documents. Only the file reads can
// fail; decode failures degrade to zero records plus a warning, and a
// missing headers entry degrades the element to single-file handling.
func NewPairedRabbitMQSource(mainPath, headersPath string, opts ...RabbitMQOption) (*PairedRabbitMQSource, error) {
	// Options are shared with the single-file source.
	cfg := &RabbitMQSource{log: zap.NewNop(), levels: level.NewChain()}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &PairedRabbitMQSource{
		log:         cfg.log,
		levels:      cfg.levels,
		path:        mainPath,
		headersByID: make(map[string]*fastjson.Value),
	}

	mainData, err := ReadFile(mainPath)
	if err != nil {
		return nil, err
	}
	headersData, err := ReadFile(headersPath)
	if err != nil {
		return nil, err
	}

	if root, err := s.mainParser.ParseBytes(mainData); err != nil {
		s.log.Warn("main JSON document did not decode, yielding zero records",
			zap.String("file", mainPath), zap.Error(err))
	} else {
		s.elements = documentElements(root)
	}

	if root, err := s.headersParser.ParseBytes(headersData); err != nil {
		s.log.Warn("headers JSON document did not decode, joining nothing",
			zap.String("file", headersPath), zap.Error(err))
	} else {
		s.indexHeaders(root)
	}

	return s, nil
}

// documentElements flattens a JSON root into its element list: the
// elements of an array, a lone object, or nothing.
func documentElements(root *fastjson.Value) []*fastjson.Value {
	switch root.Type() {
	case fastjson.TypeArray:
		arr, _ := root.Array()
		return arr
	case fastjson.TypeObject:
		return []*fastjson.Value{root}
	default:
		return nil
	}
}

func (s *PairedRabbitMQSource) indexHeaders(root *fastjson.Value) {
	for _, elem := range documentElements(root) {
		if elem.Type() != fastjson.TypeObject {
			continue
		}
		id := jsonString(elem, "message_id")
		if id == "" {
			id = jsonString(elem, "correlation_id")
		}
		if id == "" {
			continue
		}
		headers := elem.Get("headers")
		if headers == nil {
			// The headers file may carry the header fields at top level.
			headers = elem
		}
		s.headersByID[id] = headers
	}
}

// Next returns the next joined record. Elements with no headers entry are
// handled like single-file elements; elements matching no shape at all
// are skipped with a debug note.
func (s *PairedRabbitMQSource) Next(ctx context.Context) (*Record, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.index >= len(s.elements) {
			return nil, io.EOF
		}

		elem := s.elements[s.index]
		s.index++

		if elem.Type() != fastjson.TypeObject {
			s.log.Debug("element is not an object, skipped",
				zap.String("file", s.path), zap.Int("element", s.index))
			continue
		}

		if rec := s.joinElement(elem, s.index); rec != nil {
			return rec, nil
		}

		s.log.Debug("element matched neither record shape, skipped",
			zap.String("file", s.path), zap.Int("element", s.index))
	}
}

// Close releases nothing; both documents were read eagerly.
func (s *PairedRabbitMQSource) Close() error { return nil }

func (s *PairedRabbitMQSource) joinElement(elem *fastjson.Value, ordinal int) *Record {
	raw := elem.String()

	id := jsonString(elem, "message_id")
	if id == "" {
		id = jsonString(elem, "correlation_id")
	}

	if headers, ok := s.headersByID[id]; ok && id != "" {
		if fault := parseFaultFromHeaders(elem, headers); fault != nil {
			return buildFaultRecord(s.path, elem, headers, fault, ordinal, raw)
		}
	}

	// No headers entry: fall back to the single-file shapes.
	single := &RabbitMQSource{log: s.log, levels: s.levels, path: s.path}
	return single.parseElement(elem, ordinal)
}
