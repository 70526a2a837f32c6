package parquetio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	a := model.NewRecord("a.csv")
	a.Tags[model.TagOptimization] = model.String(model.Optimized)
	a.Tags[model.TagDropRate] = model.Int(5)
	a.Metrics[model.MetricAvgRTT] = model.Float(1.25)
	a.Metrics[model.MetricPacketsSent] = model.Int(100)

	b := model.NewRecord("b.json")
	b.Tags[model.TagIsFirst] = model.Bool(true)
	b.Metrics[model.MetricRTT] = model.Float(0.5)

	tbl, err := table.Aggregate([]model.Record{a, b})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return tbl
}

func TestSnapshot_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "run.parquet")
	src := sampleTable(t)
	meta := Meta{RunID: "7b0c6c8e-5d1f-4c9a-9a51-0d2f5c1e9e11", Report: "udp"}

	n, err := WriteSnapshot(path, meta, src)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if want := src.Len() * len(src.Columns()); n != want {
		t.Errorf("wrote %d cells, want %d", n, want)
	}

	got, gotMeta, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if gotMeta != meta {
		t.Errorf("meta = %+v, want %+v", gotMeta, meta)
	}
	if got.Len() != src.Len() {
		t.Fatalf("rows = %d, want %d", got.Len(), src.Len())
	}
	srcCols, gotCols := src.Columns(), got.Columns()
	if len(gotCols) != len(srcCols) {
		t.Fatalf("columns = %v, want %v", gotCols, srcCols)
	}
	for j := range srcCols {
		if gotCols[j] != srcCols[j] {
			t.Errorf("column %d = %+v, want %+v", j, gotCols[j], srcCols[j])
		}
	}
	for i := 0; i < src.Len(); i++ {
		if got.Source(i) != src.Source(i) {
			t.Errorf("row %d source = %q, want %q", i, got.Source(i), src.Source(i))
		}
		for _, c := range srcCols {
			if !got.Value(i, c.Name).Equal(src.Value(i, c.Name)) {
				t.Errorf("row %d %s = %v, want %v", i, c.Name, got.Value(i, c.Name), src.Value(i, c.Name))
			}
		}
	}
	if !got.Value(1, model.TagOptimization).IsNA() {
		t.Error("NA cell did not survive the round trip")
	}
}

func TestWriteSnapshot_Empty(t *testing.T) {
	_, err := WriteSnapshot(filepath.Join(t.TempDir(), "x.parquet"), Meta{}, nil)
	if !errors.Is(err, table.ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestOpen_NotParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.parquet")
	os.WriteFile(path, []byte("not parquet"), 0644)
	if _, err := Open(path); err == nil {
		t.Error("expected error opening a non-parquet file")
	}
}

func TestOpen_RejectsForeignParquet(t *testing.T) {
	type other struct {
		Name  string `parquet:"name"`
		Count int64  `parquet:"count"`
	}
	path := filepath.Join(t.TempDir(), "other.parquet")
	if err := parquet.WriteFile(path, []other{{Name: "a", Count: 1}}); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error opening a parquet file without snapshot columns")
	}
}

func TestReader_Each(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.parquet")
	n, err := WriteSnapshot(path, Meta{RunID: "r", Report: "suite"}, sampleTable(t))
	if err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.NumRows() != int64(n) {
		t.Errorf("NumRows = %d, want %d", r.NumRows(), n)
	}

	var last int64 = -1
	read, err := r.Each(2, func(c model.CellRow) error {
		if c.RowIndex < last {
			t.Errorf("row %d after row %d", c.RowIndex, last)
		}
		last = c.RowIndex
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if read != int64(n) {
		t.Errorf("Each read %d cells, want %d", read, n)
	}
}

func TestReader_EachStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.parquet")
	if _, err := WriteSnapshot(path, Meta{RunID: "r", Report: "suite"}, sampleTable(t)); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	stop := errors.New("stop")
	read, err := r.Each(0, func(model.CellRow) error { return stop })
	if !errors.Is(err, stop) || read != 1 {
		t.Errorf("Each = %d, %v; want 1, stop", read, err)
	}
}
