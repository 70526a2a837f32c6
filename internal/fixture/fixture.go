// Package fixture writes synthetic benchmark result trees in every input
// format the parsers accept. Values are derived from the parameters, so a
// tree is identical for identical Options.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
)

// Options controls which parts of a tree are written.
type Options struct {
	DropRates    []int
	PacketSizes  []int
	MessageSizes []int
	DataTypes    []string
	Samples      int // RTT samples per JSON file
	Stamp        time.Time
	Remote       bool // write a remote_tests_* run next to the local one
	LogText      bool // write UDP results as .log instead of .csv
	Suite        bool // write the JSON suite and the two suite logs
}

// Default returns the options used by cmd/mkfixture and most tests.
func Default() Options {
	return Options{
		DropRates:    []int{0, 5, 10},
		PacketSizes:  []int{512, 1024},
		MessageSizes: []int{64, 1024, 16384},
		DataTypes:    []string{"int", "string", "struct"},
		Samples:      5,
		Stamp:        time.Date(2024, 11, 2, 14, 30, 0, 0, time.UTC),
		Remote:       true,
		Suite:        true,
	}
}

// Tree lists what Write produced.
type Tree struct {
	Root      string
	LocalRun  string
	RemoteRun string
	Files     []string
}

// UDPResult is one run of the UDP sender.
type UDPResult struct {
	Sent      int
	Received  int
	Dropped   int
	Loss      float64 // percent
	AvgRTT    float64 // ms
	Bandwidth float64 // MB/s
}

// UDP returns the synthetic result for one parameter combination. The
// optimized sender is faster and retransmits less; bandwidth always stays
// below size*1000 B/s.
func UDP(optimization string, rate, size int, remote bool) UDPResult {
	sent := 1000
	retrans := 1.0
	rtt := 0.5 + float64(rate)*0.08 + float64(size)/1024*0.05
	if optimization == model.Optimized {
		retrans = 0.6
		rtt *= 0.8
	}
	if remote {
		rtt += 12
	}
	dropped := int(float64(sent*rate) / 100 * retrans)
	ceiling := float64(size) * 1000 / (1024 * 1024)
	bw := ceiling * (0.9 - float64(rate)/200) * (1 - 0.2*retrans/2)
	if remote {
		bw *= 0.7
	}
	return UDPResult{
		Sent:      sent,
		Received:  sent - dropped,
		Dropped:   dropped,
		Loss:      normalize.Round(float64(dropped)/float64(sent)*100, 2),
		AvgRTT:    normalize.Round(rtt, 3),
		Bandwidth: normalize.Round(bw, 4),
	}
}

// CSV renders r as the sender's Metric,Value file with a short preamble.
func (r UDPResult) CSV() string {
	var b strings.Builder
	b.WriteString("# reliable udp sender\n")
	b.WriteString("Metric,Value\n")
	fmt.Fprintf(&b, "Packets_Sent,%d\n", r.Sent)
	fmt.Fprintf(&b, "Packets_Received,%d\n", r.Received)
	fmt.Fprintf(&b, "Dropped_Packets,%d\n", r.Dropped)
	fmt.Fprintf(&b, "Packet_Loss_Rate,%g\n", r.Loss)
	fmt.Fprintf(&b, "Bandwidth_MBps,%g\n", r.Bandwidth)
	fmt.Fprintf(&b, "Average_RTT_ms,%g\n", r.AvgRTT)
	return b.String()
}

// Log renders r as the sender's labeled-line summary.
func (r UDPResult) Log() string {
	var b strings.Builder
	b.WriteString("Starting transfer\n")
	fmt.Fprintf(&b, "Packets sent: %d\n", r.Sent)
	fmt.Fprintf(&b, "Packets received: %d\n", r.Received)
	fmt.Fprintf(&b, "Dropped packets: %d\n", r.Dropped)
	fmt.Fprintf(&b, "Packet loss rate: %g%%\n", r.Loss)
	fmt.Fprintf(&b, "Average RTT: %gms\n", r.AvgRTT)
	fmt.Fprintf(&b, "Bandwidth: %g MB/s\n", r.Bandwidth)
	return b.String()
}

// UDPName returns the result file name for one combination.
func UDPName(optimization string, rate, size int, ext string) string {
	return fmt.Sprintf("%s_rate%d_size%d%s", optimization, rate, size, ext)
}

// Write creates a results tree under root.
func Write(root string, opts Options) (*Tree, error) {
	t := &Tree{Root: root}
	stamp := normalize.RunStamp(opts.Stamp)

	t.LocalRun = filepath.Join(root, model.LocalRunPrefix+stamp)
	if err := t.writeUDPRun(t.LocalRun, opts, false); err != nil {
		return nil, err
	}
	if opts.Remote {
		t.RemoteRun = filepath.Join(root, model.RemoteRunPrefix+stamp)
		if err := t.writeUDPRun(t.RemoteRun, opts, true); err != nil {
			return nil, err
		}
	}
	if opts.Suite {
		if err := t.writeSuite(root, opts); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) writeUDPRun(dir string, opts Options, remote bool) error {
	ext := ".csv"
	if opts.LogText {
		ext = ".log"
	}
	for _, opt := range []string{model.Unoptimized, model.Optimized} {
		for _, rate := range opts.DropRates {
			for _, size := range opts.PacketSizes {
				r := UDP(opt, rate, size, remote)
				content := r.CSV()
				if opts.LogText {
					content = r.Log()
				}
				if err := t.write(filepath.Join(dir, UDPName(opt, rate, size, ext)), content); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RTTSamples returns the synthetic per-attempt RTTs for a message size as
// unit-suffixed strings. The first attempt includes connection setup.
func RTTSamples(size, n int) []string {
	out := make([]string, n)
	for i := range out {
		us := 300 + size/64 + i*7
		if i == 0 {
			out[i] = fmt.Sprintf("%.3fms", float64(us)/1000+1.5)
			continue
		}
		out[i] = fmt.Sprintf("%dµs", us)
	}
	return out
}

func (t *Tree) writeSuite(root string, opts Options) error {
	ts := opts.Stamp.Format(time.RFC3339)
	for _, size := range opts.MessageSizes {
		rtt := map[string]any{
			"message_size": size,
			"rtts":         RTTSamples(size, opts.Samples),
			"timestamp":    ts,
		}
		if err := t.writeJSON(filepath.Join(root, "rtt", fmt.Sprintf("rtt_%d.json", size)), rtt); err != nil {
			return err
		}
		bw := map[string]any{
			"message_size":   size,
			"bandwidth_mbps": normalize.Round(float64(size)/64*0.75, 3),
			"timestamp":      ts,
		}
		if err := t.writeJSON(filepath.Join(root, "bandwidth", fmt.Sprintf("bandwidth_%d.json", size)), bw); err != nil {
			return err
		}
		for _, dt := range opts.DataTypes {
			m := map[string]any{
				"message_size":      size,
				"data_type":         dt,
				"marshal_time_ns":   MarshalNanos(dt, size, false),
				"unmarshal_time_ns": MarshalNanos(dt, size, false) * 3 / 4,
				"timestamp":         ts,
			}
			name := fmt.Sprintf("marshal_%s_%d.json", dt, size)
			if err := t.writeJSON(filepath.Join(root, "marshal", name), m); err != nil {
				return err
			}
		}
	}

	for _, opt := range []string{model.Unoptimized, model.Optimized} {
		name := opt + "_results.txt"
		if err := t.write(filepath.Join(root, name), SuiteLog(opt, opts)); err != nil {
			return err
		}
	}
	return nil
}

// MarshalNanos is the synthetic marshal time of one message.
func MarshalNanos(dataType string, size int, optimized bool) int {
	ns := 400 + size/8 + 50*len(dataType)
	if optimized {
		ns = ns * 7 / 10
	}
	return ns
}

// SuiteLog renders the suite's `go test -v` output for one build.
func SuiteLog(optimization string, opts Options) string {
	optimized := optimization == model.Optimized
	var b strings.Builder
	b.WriteString("=== RUN   TestBandwidth\n")
	for _, size := range opts.MessageSizes {
		bw := float64(size) / 64 * 0.75
		if optimized {
			bw *= 1.25
		}
		fmt.Fprintf(&b, "Size: %d bytes, Bandwidth: %.2f MB/s\n", size, bw)
	}
	b.WriteString("--- PASS: TestBandwidth\n=== RUN   TestMarshal\n")
	for _, dt := range opts.DataTypes {
		size := opts.MessageSizes[0]
		m := MarshalNanos(dt, size, optimized)
		fmt.Fprintf(&b, "Result: {DataType:%s Size:%d MarshalTime:%s UnmarshalTime:%s Error:<nil>}\n",
			dt, size, time.Duration(m), time.Duration(m*3/4))
	}
	b.WriteString("--- PASS: TestMarshal\n=== RUN   TestRTT\n")
	first, rest := 2.1, 0.45
	if optimized {
		first, rest = 1.6, 0.38
	}
	fmt.Fprintf(&b, "First RTT: %.3fms\n", first)
	fmt.Fprintf(&b, "Min RTT: %dµs\n", int(rest*1000))
	fmt.Fprintf(&b, "Max RTT: %.3fms\n", first)
	fmt.Fprintf(&b, "Avg RTT: %dµs\n", int((rest+0.1)*1000))
	b.WriteString("--- PASS: TestRTT\nPASS\n")
	return b.String()
}

func (t *Tree) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return t.write(path, string(data)+"\n")
}

func (t *Tree) write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create fixture dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	t.Files = append(t.Files, path)
	return nil
}
