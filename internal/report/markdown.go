package report

import (
	"fmt"
	"io"
	"math"
	"text/template"

	"github.com/gyeh/perfstats/internal/normalize"
)

// BandwidthStats summarizes observed bandwidth for one test type, in MB/s.
// Utilization is a percentage of the theoretical maximum.
type BandwidthStats struct {
	Mean        float64
	Max         float64
	Min         float64
	Utilization float64
}

// ComprehensiveReport holds the numbers behind performance_report.md.
// Optional figures are NaN (or nil) when their data was absent.
type ComprehensiveReport struct {
	BaseMessageSize float64
	HeaderOverhead  int
	AckSize         int
	LocalMinRTT     float64
	RemoteMinRTT    float64
	Local           BandwidthStats
	Remote          *BandwidthStats
	BaselineName    string
	VariantName     string
	BaselineMean    float64
	VariantMean     float64
	Improvement     float64
}

const markdownTmpl = `# UDP Performance Analysis Report

## Message Overhead
- Base message size: {{ f0 .BaseMessageSize }} bytes
- Header overhead: {{ .HeaderOverhead }} bytes (sequence number + checksum)
- ACK size: {{ .AckSize }} bytes

## Round Trip Time (RTT)
- Local minimum RTT: {{ f3 .LocalMinRTT }} ms
- Remote minimum RTT: {{ f3 .RemoteMinRTT }} ms

## Bandwidth Analysis
### Local Testing
- Maximum: {{ f2 .Local.Max }} MB/s
- Average: {{ f2 .Local.Mean }} MB/s
- Utilization: {{ f1 .Local.Utilization }}%

### Remote Testing
{{- if .Remote }}
- Maximum: {{ f2 .Remote.Max }} MB/s
- Average: {{ f2 .Remote.Mean }} MB/s
- Utilization: {{ f1 .Remote.Utilization }}%
{{- else }}
- No remote data
{{- end }}

## Performance Bottlenecks
1. Network latency (especially in remote testing)
2. Retry mechanism overhead
3. ACK waiting time
4. System call overhead

## Optimization Impact
- {{ title .VariantName }} bandwidth: {{ f2 .VariantMean }} MB/s
- {{ title .BaselineName }} bandwidth: {{ f2 .BaselineMean }} MB/s
- Performance improvement: {{ f1 .Improvement }}%
`

var markdown = template.Must(template.New("report").Funcs(template.FuncMap{
	"f0":    func(v float64) string { return normalize.FormatFixed(v, 0) },
	"f1":    func(v float64) string { return normalize.FormatFixed(v, 1) },
	"f2":    func(v float64) string { return normalize.FormatFixed(v, 2) },
	"f3":    func(v float64) string { return normalize.FormatFixed(v, 3) },
	"title": title,
}).Parse(markdownTmpl))

// WriteMarkdown renders the comprehensive report. Missing figures print as n/a.
func WriteMarkdown(w io.Writer, r ComprehensiveReport) error {
	if err := markdown.Execute(w, r); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

// Improvement returns the variant's gain over the baseline in percent, or
// NaN if the baseline is zero or missing.
func Improvement(baseline, variant float64) float64 {
	if math.IsNaN(baseline) || math.IsNaN(variant) {
		return math.NaN()
	}
	d, err := PercentDelta(baseline, variant)
	if err != nil {
		return math.NaN()
	}
	return d
}
