package storage

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"github.com/san-kum/spotlab/internal/dynamo"
)

func testRun(t *testing.T) (RunMetadata, Table) {
	t.Helper()
	l, err := NewLog([]dynamo.Platform{dynamo.Chaser, dynamo.Target}, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	_ = l.Append(0, 0, Entry{Platform: dynamo.Chaser, State: dynamo.State{X: 1, Y: -1}})
	_ = l.Append(0.05, 1, Entry{Platform: dynamo.Chaser, State: dynamo.State{X: 1.1}},
		Entry{Platform: dynamo.Target, State: dynamo.State{Y: 2}})
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta := RunMetadata{
		ID:        NewRunID("simulation", start),
		Mode:      "simulation",
		Mission:   "short",
		Platforms: []string{"chaser", "target"},
		Timestamp: start,
		Dt:        0.05,
		Duration:  0.1,
		Rows:      2,
		Metrics:   map[string]float64{"tracking_error": 0.5},
	}
	return meta, l.Table()
}

func TestStoreWriteLoad(t *testing.T) {
	g := NewWithT(t)
	st := New(t.TempDir())
	g.Expect(st.Init()).To(Succeed())

	meta, tab := testRun(t)
	g.Expect(st.Write(context.Background(), meta, tab)).To(Succeed())

	got, err := st.Load(meta.ID)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got.Mode).To(Equal("simulation"))
	g.Expect(got.Metrics["tracking_error"]).To(Equal(0.5))

	back, err := st.LoadTable(meta.ID)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(back.Rows).To(Equal(2))
	g.Expect(back.Columns).To(Equal(tab.Columns))
	g.Expect(back.Column("chaser_x")).To(Equal([]float64{1, 1.1}))
	g.Expect(math.IsNaN(back.Column("target_y")[0])).To(BeTrue())
	g.Expect(back.Column("target_y")[1]).To(Equal(2.0))
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	meta, tab := testRun(t)
	later := meta
	later.ID = "later"
	later.Timestamp = meta.Timestamp.Add(time.Hour)
	for _, m := range []RunMetadata{later, meta} {
		if err := st.Write(context.Background(), m, tab); err != nil {
			t.Fatal(err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != meta.ID || runs[1].ID != "later" {
		t.Errorf("runs not sorted oldest first: %+v", runs)
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadTable("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteWrite(t *testing.T) {
	g := NewWithT(t)
	db, err := OpenSQLite(t.TempDir()+"/runs.db", zerolog.Nop())
	g.Expect(err).NotTo(HaveOccurred())
	defer db.Close()

	meta, tab := testRun(t)
	ctx := context.Background()
	g.Expect(db.Write(ctx, meta, tab)).To(Succeed())

	runs, err := db.Runs(ctx)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(1))
	g.Expect(runs[0].Platforms).To(Equal("chaser,target"))

	xs, err := db.Column(ctx, meta.ID, "chaser_x")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(xs).To(Equal([]float64{1, 1.1}))

	ys, err := db.Column(ctx, meta.ID, "target_y")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ys).To(Equal([]float64{2}))
}

func TestPoints(t *testing.T) {
	meta, tab := testRun(t)
	pts := Points(meta, tab)
	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %d", len(pts))
	}
	if !pts[1].Time().Equal(meta.Timestamp.Add(50 * time.Millisecond)) {
		t.Errorf("point time = %v", pts[1].Time())
	}
	for _, f := range pts[0].FieldList() {
		if f.Key == "target_y" || f.Key == "time" {
			t.Errorf("unexpected field %q in first point", f.Key)
		}
	}
}

func TestInfluxWrite(t *testing.T) {
	var mu sync.Mutex
	var body strings.Builder
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/api/v2/write") {
			b, _ := io.ReadAll(r.Body)
			mu.Lock()
			body.Write(b)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx := context.Background()
	x, err := OpenInflux(ctx, InfluxConfig{URL: srv.URL, Token: "t", Org: "lab", Bucket: "spot", BatchSize: 1}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer x.Close()

	meta, tab := testRun(t)
	if err := x.Write(ctx, meta, tab); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if got := strings.Count(body.String(), Measurement+","); got != 2 {
		t.Errorf("expected 2 lines, got %d in %q", got, body.String())
	}
}

type fakeSink struct {
	name  string
	err   error
	delay time.Duration

	mu     sync.Mutex
	called bool
}

func (f *fakeSink) Name() string { return f.name }

// Write fails with f.err at once, or waits delay and reports a cancelled
// context like a real backend would.
func (f *fakeSink) Write(ctx context.Context, _ RunMetadata, _ Table) error {
	f.mu.Lock()
	f.called = true
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.delay):
		return nil
	}
}

func TestFlushAll(t *testing.T) {
	meta, tab := testRun(t)
	ok := &fakeSink{name: "ok"}
	if err := FlushAll(context.Background(), meta, tab, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok.called {
		t.Error("sink not written")
	}
}

func TestFlushAllSurvivesFailingSink(t *testing.T) {
	ctx := context.Background()
	meta, tab := testRun(t)

	db, err := OpenSQLite(t.TempDir()+"/runs.db", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	slow := &fakeSink{name: "slow", delay: 50 * time.Millisecond}
	bad := &fakeSink{name: "csv", err: errors.New("disk full")}
	worse := &fakeSink{name: "influx", err: errors.New("unreachable")}

	err = FlushAll(ctx, meta, tab, bad, slow, db, worse)
	if err == nil {
		t.Fatal("expected sink errors")
	}
	for _, want := range []string{"flushing to csv: disk full", "flushing to influx: unreachable"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	if strings.Contains(err.Error(), "slow") || errors.Is(err, context.Canceled) {
		t.Errorf("healthy sink was cancelled: %v", err)
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("sqlite holds %d runs after a sibling sink failed, want 1", len(runs))
	}
}

func TestNewRunID(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a, b := NewRunID("experiment", start), NewRunID("experiment", start)
	if a == b {
		t.Error("run ids should be unique")
	}
	if !strings.HasPrefix(a, "experiment_20260102_030405_") {
		t.Errorf("unexpected run id %q", a)
	}
}
