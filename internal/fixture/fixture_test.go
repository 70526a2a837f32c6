package fixture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gyeh/perfstats/internal/model"
)

func TestWrite_Default(t *testing.T) {
	root := t.TempDir()
	opts := Default()
	tree, err := Write(root, opts)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	udp := 2 * len(opts.DropRates) * len(opts.PacketSizes)
	suite := len(opts.MessageSizes) * (2 + len(opts.DataTypes))
	want := 2*udp + suite + 2
	if len(tree.Files) != want {
		t.Errorf("wrote %d files, want %d", len(tree.Files), want)
	}
	if !strings.HasPrefix(filepath.Base(tree.LocalRun), model.LocalRunPrefix) {
		t.Errorf("local run dir = %s", tree.LocalRun)
	}
	for _, name := range []string{"rtt/rtt_64.json", "bandwidth/bandwidth_1024.json", "marshal/marshal_int_64.json", "optimized_results.txt"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestWrite_Deterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	if _, err := Write(a, Default()); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(b, Default()); err != nil {
		t.Fatal(err)
	}
	name := filepath.Join("rtt", "rtt_1024.json")
	da, _ := os.ReadFile(filepath.Join(a, name))
	db, _ := os.ReadFile(filepath.Join(b, name))
	if string(da) != string(db) {
		t.Error("fixture content differs between runs")
	}
}

func TestUDP(t *testing.T) {
	for _, rate := range []int{0, 5, 10, 20} {
		for _, size := range []int{256, 1024, 4096} {
			for _, opt := range []string{model.Optimized, model.Unoptimized} {
				r := UDP(opt, rate, size, false)
				ceiling := float64(size) * 1000 / (1024 * 1024)
				if r.Bandwidth <= 0 || r.Bandwidth > ceiling {
					t.Errorf("%s rate=%d size=%d: bandwidth %v outside (0, %v]", opt, rate, size, r.Bandwidth, ceiling)
				}
				if r.Sent != r.Received+r.Dropped {
					t.Errorf("%s rate=%d size=%d: packet counts do not add up", opt, rate, size)
				}
			}
		}
	}

	opt := UDP(model.Optimized, 10, 1024, false)
	unopt := UDP(model.Unoptimized, 10, 1024, false)
	if opt.AvgRTT >= unopt.AvgRTT {
		t.Errorf("optimized RTT %v not below unoptimized %v", opt.AvgRTT, unopt.AvgRTT)
	}
}

func TestRTTSamples(t *testing.T) {
	got := RTTSamples(64, 3)
	if len(got) != 3 {
		t.Fatalf("got %d samples", len(got))
	}
	if !strings.HasSuffix(got[0], "ms") || !strings.HasSuffix(got[1], "µs") {
		t.Errorf("samples = %v", got)
	}
}
