package parse

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
)

const csvHeader = "Metric,Value"

// csvMetrics maps the UDP sender's metric labels to record metric names.
var csvMetrics = map[string]string{
	"Packets_Sent":     model.MetricPacketsSent,
	"Packets_Received": model.MetricPacketsReceived,
	"Dropped_Packets":  model.MetricDroppedPackets,
	"Packet_Loss_Rate": model.MetricPacketLoss,
	"Bandwidth_MBps":   model.MetricBandwidth,
	"Average_RTT_ms":   model.MetricAvgRTT,
}

// countMetrics hold whole packet counts.
var countMetrics = map[string]bool{
	model.MetricPacketsSent:     true,
	model.MetricPacketsReceived: true,
	model.MetricDroppedPackets:  true,
}

// findHeader returns the byte offset just past the Metric,Value line.
func findHeader(content []byte) (int, bool) {
	off := 0
	for len(content[off:]) > 0 {
		line := content[off:]
		next := len(line)
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line, next = line[:i], i+1
		}
		off += next
		if string(bytes.TrimSpace(line)) == csvHeader {
			return off, true
		}
	}
	return 0, false
}

func (p *Parser) parseCSV(path string, content []byte) ([]model.Record, error) {
	start, ok := findHeader(content)
	if !ok {
		return nil, fail(path, csvHeader, "no %s header line", csvHeader)
	}

	rec := model.NewRecord(path)
	sc := bufio.NewScanner(bytes.NewReader(content[start:]))
	lineNo, known := 0, 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			p.diag.Warn(path, "", fmt.Sprintf("line %d: expected 2 fields, got %d", lineNo, len(parts)))
			continue
		}
		label := strings.TrimSpace(parts[0])
		v, err := model.ParseNumber(parts[1])
		if err != nil {
			p.diag.Warn(path, label, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}
		name, ok := csvMetrics[label]
		if ok {
			known++
		} else {
			name = normalize.MetricKey(label)
		}
		if name == "" {
			p.diag.Warn(path, label, fmt.Sprintf("line %d: empty metric name", lineNo))
			continue
		}
		if countMetrics[name] && v == math.Trunc(v) {
			rec.Metrics[name] = model.Int(int64(v))
		} else {
			rec.Metrics[name] = model.Float(v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fail(path, "", "scan: %v", err)
	}
	if len(rec.Metrics) == 0 {
		return nil, fail(path, csvHeader, "no metric lines after header")
	}
	if known == 0 {
		return nil, fail(path, csvHeader, "no known metric (Packets_Sent, Bandwidth_MBps, ...) after header")
	}
	return []model.Record{rec}, nil
}
