package parse

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gyeh/perfstats/internal/model"
)

var (
	rateRe = regexp.MustCompile(`rate(\d+)`)
	sizeRe = regexp.MustCompile(`size(\d+)`)
)

// FilenameTags derives categorical tags from a result file's basename.
// With rateSize set, rate(N) and size(M) must both be present; a name
// without them is a Failure. An optimized_/unoptimized_ prefix sets the
// optimization tag.
func FilenameTags(path string, rateSize bool) (map[string]model.Value, error) {
	base := filepath.Base(path)
	tags := make(map[string]model.Value)

	switch {
	case strings.HasPrefix(base, model.Unoptimized+"_"):
		tags[model.TagOptimization] = model.String(model.Unoptimized)
	case strings.HasPrefix(base, model.Optimized+"_"):
		tags[model.TagOptimization] = model.String(model.Optimized)
	}

	if !rateSize {
		return tags, nil
	}
	rate, ok := intMatch(rateRe, base)
	if !ok {
		return nil, fail(path, model.TagDropRate, "filename has no rate(N)")
	}
	size, ok := intMatch(sizeRe, base)
	if !ok {
		return nil, fail(path, model.TagPacketSize, "filename has no size(N)")
	}
	tags[model.TagDropRate] = model.Int(rate)
	tags[model.TagPacketSize] = model.Int(size)
	return tags, nil
}

func intMatch(re *regexp.Regexp, s string) (int64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
