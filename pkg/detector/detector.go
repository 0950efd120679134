// Package detector classifies log files into one of the supported formats
// from content alone. Detection never fails: any I/O or parse trouble
// degrades the classification to Standard.
package detector

import (
	"os"
	"regexp"
	"strings"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/logsift/logsift/pkg/parser"
)

// log4netPrefix is the comma-millisecond timestamp shape that suggests a
// Log4Net file; the full sampling validation confirms it.
var log4netPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3}`)

// Format identifies which parser handles a file.
type Format string

const (
	FormatIIS      Format = "iis"
	FormatRabbitMQ Format = "rabbitmq"
	FormatLog4Net  Format = "log4net"
	FormatStandard Format = "standard"
)

// iisMarkers are the header tokens that classify a file as IIS. They are
// the most specific signal and deliberately win over every timestamp
// heuristic.
var iisPrefixMarkers = []string{
	"#Software: Microsoft Internet Information Services",
	"#Version:",
	"#Fields:",
}

// rabbitVocabulary is the fixed field-name vocabulary a RabbitMQ JSON
// document is sniffed against. A root object (or first array element)
// exposing at least minRabbitFields of these classifies as RabbitMQ.
var rabbitVocabulary = []string{
	"timestamp", "level", "msg", "node", "pid", "queue", "exchange",
	"routing_key", "connection", "channel", "vhost", "user",
	"consumer_tag", "delivery_tag",
}

const minRabbitFields = 3

// headerSampleLines is how many leading lines are scanned for IIS markers.
const headerSampleLines = 10

// Detector classifies files. The zero value is not usable; construct
// with New.
type Detector struct {
	log         *zap.Logger
	sampleLines int
	matchRatio  float64
	jsonPool    fastjson.ParserPool
}

// Option configures the Detector.
type Option func(*Detector)

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Detector) { d.log = log }
}

// WithSampleLines sets how many leading lines the header scan reads.
func WithSampleLines(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleLines = n
		}
	}
}

// WithMatchRatio sets the fraction of sampled lines that must carry the
// Log4Net timestamp prefix. Zero keeps the parser default.
func WithMatchRatio(f float64) Option {
	return func(d *Detector) {
		if f > 0 && f <= 1 {
			d.matchRatio = f
		}
	}
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		log:         zap.NewNop(),
		sampleLines: headerSampleLines,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect classifies a file, in priority order: IIS header markers, the
// .json extension plus field-vocabulary sniff, the comma-millisecond
// Log4Net prefix, and Standard as the default. Never returns an error.
func (d *Detector) Detect(path string) Format {
	lines, err := d.sample(path)
	if err != nil {
		d.log.Warn("sampling failed, defaulting to standard format",
			zap.String("file", path), zap.Error(err))
		return FormatStandard
	}

	if hasIISMarkers(lines) {
		return FormatIIS
	}

	if isJSONPath(path) && d.sniffRabbitMQ(path) {
		return FormatRabbitMQ
	}

	if len(lines) > 0 && log4netPrefix.MatchString(lines[0]) {
		ok, err := d.validateLog4Net(path)
		if err != nil {
			d.log.Warn("log4net validation failed, defaulting to standard format",
				zap.String("file", path), zap.Error(err))
			return FormatStandard
		}
		if ok {
			return FormatLog4Net
		}
	}

	return FormatStandard
}

// Validate is the cheap pre-check used before committing to a full parse.
func (d *Detector) Validate(path string, format Format) bool {
	switch format {
	case FormatIIS:
		lines, err := d.sample(path)
		return err == nil && hasIISMarkers(lines)
	case FormatRabbitMQ:
		return isJSONPath(path) && d.sniffRabbitMQ(path)
	case FormatLog4Net:
		ok, err := d.validateLog4Net(path)
		return err == nil && ok
	default:
		f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
		if err != nil {
			return false
		}
		f.Close()
		return true
	}
}

func hasIISMarkers(lines []string) bool {
	for _, line := range lines {
		for _, marker := range iisPrefixMarkers {
			if strings.HasPrefix(line, marker) {
				return true
			}
		}
		if strings.Contains(line, "sc-status") {
			return true
		}
	}
	return false
}

func isJSONPath(path string) bool {
	return strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.gz")
}

// sample reads the leading non-blank lines used by the header scan.
func (d *Detector) sample(path string) ([]string, error) {
	return parser.SampleLines(path, d.sampleLines)
}

func (d *Detector) validateLog4Net(path string) (bool, error) {
	if d.matchRatio > 0 {
		return parser.ValidateLog4NetRatio(path, d.matchRatio)
	}
	return parser.ValidateLog4Net(path)
}

// sniffRabbitMQ parses the whole document and counts vocabulary fields on
// the root object or the first array element.
func (d *Detector) sniffRabbitMQ(path string) bool {
	data, err := parser.ReadFile(path)
	if err != nil {
		d.log.Warn("reading JSON document failed during detection",
			zap.String("file", path), zap.Error(err))
		return false
	}

	p := d.jsonPool.Get()
	defer d.jsonPool.Put(p)

	root, err := p.ParseBytes(data)
	if err != nil {
		d.log.Debug("JSON document did not decode during detection",
			zap.String("file", path), zap.Error(err))
		return false
	}

	subject := root
	if root.Type() == fastjson.TypeArray {
		arr, _ := root.Array()
		if len(arr) == 0 {
			return false
		}
		subject = arr[0]
	}
	if subject.Type() != fastjson.TypeObject {
		return false
	}

	count := 0
	for _, field := range rabbitVocabulary {
		if subject.Exists(field) {
			count++
		}
	}
	return count >= minRabbitFields
}
