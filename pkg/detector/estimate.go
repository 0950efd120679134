package detector

import (
	"os"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/logsift/logsift/pkg/parser"
)

// estimateSampleLines is how many lines feed the average-line-size
// estimate for line-oriented files.
const estimateSampleLines = 100

// EstimateRecordCount returns a best-effort record count for progress
// reporting: the array length for JSON documents, otherwise file size
// divided by the average sampled line length. Not guaranteed exact; 0
// means no estimate.
func (d *Detector) EstimateRecordCount(path string) int {
	if isJSONPath(path) {
		return d.estimateJSON(path)
	}
	return d.estimateLines(path)
}

func (d *Detector) estimateJSON(path string) int {
	data, err := parser.ReadFile(path)
	if err != nil {
		d.log.Debug("estimate read failed", zap.String("file", path), zap.Error(err))
		return 0
	}

	p := d.jsonPool.Get()
	defer d.jsonPool.Put(p)

	root, err := p.ParseBytes(data)
	if err != nil {
		return 0
	}

	switch root.Type() {
	case fastjson.TypeArray:
		arr, _ := root.Array()
		return len(arr)
	case fastjson.TypeObject:
		return 1
	default:
		return 0
	}
}

func (d *Detector) estimateLines(path string) int {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return 0
	}

	lines, err := parser.SampleLines(path, estimateSampleLines)
	if err != nil || len(lines) == 0 {
		return 0
	}

	total := 0
	for _, line := range lines {
		total += len(line) + 1 // terminator
	}
	avg := total / len(lines)
	if avg == 0 {
		return len(lines)
	}

	estimate := int(info.Size()) / avg
	if estimate < len(lines) {
		estimate = len(lines)
	}
	return estimate
}
