package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
)

type valueKind int

const (
	kindCount valueKind = iota
	kindFloat
	kindDuration
)

// linePattern is one labeled line of a harness log.
type linePattern struct {
	metric   string
	re       *regexp.Regexp
	kind     valueKind
	required bool
}

// udpPatterns match the UDP sender's summary block.
var udpPatterns = []linePattern{
	{model.MetricPacketsSent, regexp.MustCompile(`(?mi)Packets sent:\s*(\d+)`), kindCount, true},
	{model.MetricPacketsReceived, regexp.MustCompile(`(?mi)Packets received:\s*(\d+)`), kindCount, true},
	{model.MetricAvgRTT, regexp.MustCompile(`(?mi)Average RTT:[ \t]*(.+?)[ \t]*$`), kindDuration, true},
	{model.MetricBandwidth, regexp.MustCompile(`(?mi)Bandwidth:\s*([-+0-9.eE]+)\s*MB/s`), kindFloat, true},
	{model.MetricDroppedPackets, regexp.MustCompile(`(?mi)Dropped packets:\s*(\d+)`), kindCount, false},
	{model.MetricPacketLoss, regexp.MustCompile(`(?mi)Packet loss(?: rate)?:\s*([-+0-9.eE]+)\s*%?`), kindFloat, false},
}

// suiteRTTPatterns match the RTT block of the gRPC suite log.
var suiteRTTPatterns = []linePattern{
	{model.MetricFirstRTT, regexp.MustCompile(`(?m)First RTT:\s*(\S+)`), kindDuration, true},
	{model.MetricMinRTT, regexp.MustCompile(`(?m)Min RTT:\s*(\S+)`), kindDuration, true},
	{model.MetricMaxRTT, regexp.MustCompile(`(?m)Max RTT:\s*(\S+)`), kindDuration, true},
	{model.MetricAvgRTT, regexp.MustCompile(`(?m)Avg RTT:\s*(\S+)`), kindDuration, true},
}

var (
	suiteBandwidthRe = regexp.MustCompile(`Size:\s*(\d+) bytes, Bandwidth:\s*([-+0-9.eE]+) MB/s`)
	suiteMarshalRe   = regexp.MustCompile(`Result: \{DataType:(\S+)(?: Size:(\d+))?.*?MarshalTime:(\S+) UnmarshalTime:(\S+?)[ }]`)
)

// Suite record sections.
const (
	SectionRTT       = "rtt"
	SectionBandwidth = "bandwidth"
	SectionMarshal   = "marshal"
)

func (p *Parser) parseLogText(path string, content []byte, profile string) ([]model.Record, error) {
	text := string(content)
	switch profile {
	case model.ProfileUDP:
		rec := model.NewRecord(path)
		if err := p.applyPatterns(path, text, udpPatterns, &rec); err != nil {
			return nil, err
		}
		return []model.Record{rec}, nil
	case model.ProfileSuite:
		return p.parseSuite(path, text)
	}
	return nil, fail(path, "", "no log-text profile for this category")
}

// applyPatterns fills rec from the first match of every pattern. A missing
// or malformed required line fails the file; an optional one is skipped.
func (p *Parser) applyPatterns(path, text string, patterns []linePattern, rec *model.Record) error {
	for _, lp := range patterns {
		m := lp.re.FindStringSubmatch(text)
		if m == nil {
			if lp.required {
				return fail(path, lp.metric, "required line not found")
			}
			continue
		}
		v, err := convert(m[1], lp.kind)
		if err != nil {
			if lp.required {
				return fail(path, lp.metric, "%v", err)
			}
			p.diag.Warn(path, lp.metric, err.Error())
			continue
		}
		rec.Metrics[lp.metric] = v
	}
	return nil
}

func convert(s string, kind valueKind) (model.Value, error) {
	switch kind {
	case kindCount:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return model.Value{}, fmt.Errorf("invalid count %q", s)
		}
		return model.Int(n), nil
	case kindDuration:
		d, err := model.ParseDuration(s)
		if err != nil {
			return model.Value{}, err
		}
		return model.Float(d.Canonical()), nil
	}
	f, err := model.ParseNumber(s)
	if err != nil {
		return model.Value{}, err
	}
	return model.Float(f), nil
}

// parseSuite reads the suite log: one RTT record, then one record per
// bandwidth line and one per marshal result line, each tagged by section.
func (p *Parser) parseSuite(path, text string) ([]model.Record, error) {
	rtt := model.NewRecord(path)
	if err := p.applyPatterns(path, text, suiteRTTPatterns, &rtt); err != nil {
		return nil, err
	}
	rtt.Tags[model.TagSection] = model.String(SectionRTT)
	out := []model.Record{rtt}

	for _, m := range suiteBandwidthRe.FindAllStringSubmatch(text, -1) {
		size, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			p.diag.Warn(path, model.TagMessageSize, fmt.Sprintf("invalid size %q", m[1]))
			continue
		}
		bw, err := model.ParseNumber(m[2])
		if err != nil {
			p.diag.Warn(path, model.MetricBandwidthMBps, fmt.Sprintf("invalid bandwidth: %v", err))
			continue
		}
		r := model.NewRecord(path)
		r.Tags[model.TagSection] = model.String(SectionBandwidth)
		r.Tags[model.TagMessageSize] = model.Int(size)
		r.Metrics[model.MetricBandwidthMBps] = model.Float(bw)
		out = append(out, r)
	}

	for _, m := range suiteMarshalRe.FindAllStringSubmatch(text, -1) {
		marshal, err := model.ParseDuration(m[3])
		if err != nil {
			p.diag.Warn(path, model.MetricMarshalTime, err.Error())
			continue
		}
		unmarshal, err := model.ParseDuration(strings.TrimSuffix(m[4], ","))
		if err != nil {
			p.diag.Warn(path, model.MetricUnmarshalTime, err.Error())
			continue
		}
		r := model.NewRecord(path)
		r.Tags[model.TagSection] = model.String(SectionMarshal)
		r.Tags[model.TagDataType] = model.String(normalize.Label(m[1]))
		if m[2] != "" {
			if size, err := strconv.ParseInt(m[2], 10, 64); err == nil {
				r.Tags[model.TagMessageSize] = model.Int(size)
			}
		}
		r.Metrics[model.MetricMarshalTime] = model.Float(marshal.Canonical())
		r.Metrics[model.MetricUnmarshalTime] = model.Float(unmarshal.Canonical())
		out = append(out, r)
	}
	return out, nil
}
