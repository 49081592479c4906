package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/ternlab/pkg/adapters/file"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/lab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gridResponse struct {
	Grid         [][]int              `json:"grid"`
	Metrics      domain.MetricsReport `json:"metrics"`
	PosThreshold int                  `json:"pos_threshold"`
	NegThreshold int                  `json:"neg_threshold"`
}

func newTestHandler(t *testing.T, opts ...lab.Option) (http.Handler, *lab.Lab) {
	t.Helper()
	l, err := lab.New(append([]lab.Option{lab.WithSize(4)}, opts...)...)
	require.NoError(t, err)
	return NewHandler(l), l
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	e := decodeInto[errorResponse](t, w)
	assert.Equal(t, kind, e.Error)
	assert.NotEmpty(t, e.Message)
}

func TestGetGrid(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "GET", "/grid", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, key := range []string{"grid", "metrics", "pos_threshold", "neg_threshold"} {
		assert.Contains(t, raw, key)
	}

	g := decodeInto[gridResponse](t, w)
	assert.Len(t, g.Grid, 4)
	assert.Equal(t, 16, g.Metrics.Counts.Zero)
	assert.Equal(t, 3, g.PosThreshold)
}

func TestSetCell(t *testing.T) {
	h, l := newTestHandler(t)

	w := do(t, h, "POST", "/grid/set", `{"x": 3, "y": 0, "value": -1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true}`, w.Body.String())
	assert.Equal(t, domain.Neg, l.Grid(context.Background()).Grid.At(3, 0))

	assertError(t, do(t, h, "POST", "/grid/set", `{"x": 4, "y": 0, "value": 1}`), http.StatusBadRequest, "OutOfBounds")
	assertError(t, do(t, h, "POST", "/grid/set", `{"x": 0, "y": 0, "value": 3}`), http.StatusBadRequest, "InvalidValue")
	assertError(t, do(t, h, "POST", "/grid/set", `{"x": 0, "value": 1}`), http.StatusBadRequest, "InvalidRequest")
	assertError(t, do(t, h, "POST", "/grid/set", `{"x": "a"}`), http.StatusBadRequest, "InvalidRequest")
	assertError(t, do(t, h, "POST", "/grid/set", `{"x": 0, "y": null, "value": 1}`), http.StatusBadRequest, "InvalidRequest")
	assertError(t, do(t, h, "POST", "/grid/set", ""), http.StatusBadRequest, "InvalidRequest")
}

func TestSetCell_NonIntegerFields(t *testing.T) {
	h, l := newTestHandler(t)

	tests := []struct {
		body string
		kind string
	}{
		{`{"x": 0, "y": 0, "value": 1.5}`, "InvalidValue"},
		{`{"x": 0, "y": 0, "value": "1"}`, "InvalidValue"},
		{`{"x": 0, "y": 0, "value": true}`, "InvalidValue"},
		{`{"x": 1.5, "y": 0, "value": 1}`, "OutOfBounds"},
		{`{"x": 0, "y": "top", "value": 1}`, "OutOfBounds"},
		{`{"x": 1e300, "y": 0, "value": 1}`, "OutOfBounds"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assertError(t, do(t, h, "POST", "/grid/set", tt.body), http.StatusBadRequest, tt.kind)
		})
	}
	assert.Equal(t, 16, l.Metrics(context.Background()).Counts.Zero)

	w := do(t, h, "POST", "/grid/set", `{"x": 2.0, "y": 1, "value": 1}`)
	require.Equal(t, http.StatusOK, w.Code, "integral floats are accepted")
	assert.Equal(t, domain.Pos, l.Grid(context.Background()).Grid.At(2, 1))
}

func TestStep_Scenario(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, body := range []string{
		`{"x": 1, "y": 1, "value": 1}`,
		`{"x": 2, "y": 1, "value": 1}`,
		`{"x": 1, "y": 2, "value": 1}`,
	} {
		require.Equal(t, http.StatusOK, do(t, h, "POST", "/grid/set", body).Code)
	}

	w := do(t, h, "POST", "/grid/step", "")
	require.Equal(t, http.StatusOK, w.Code)
	g := decodeInto[gridResponse](t, w)

	assert.Equal(t, 1, g.Grid[2][2])
	assert.Equal(t, 1, g.Metrics.Counts.Pos)
	assert.Equal(t, 1, g.Metrics.Step)
	assert.Len(t, g.Metrics.EntropyHistory, 2)
}

func TestStep_Count(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "POST", "/grid/step?count=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeInto[gridResponse](t, w).Metrics.Step)

	assertError(t, do(t, h, "POST", "/grid/step?count=0", ""), http.StatusBadRequest, "InvalidValue")
	assertError(t, do(t, h, "POST", "/grid/step?count=10001", ""), http.StatusBadRequest, "InvalidValue")
	assertError(t, do(t, h, "POST", "/grid/step?count=many", ""), http.StatusBadRequest, "InvalidValue")
}

func TestResetAndResize(t *testing.T) {
	h, l := newTestHandler(t, lab.WithMaxSize(64))
	ctx := context.Background()

	require.Equal(t, http.StatusOK, do(t, h, "POST", "/grid/step", "").Code)
	w := do(t, h, "POST", "/grid/size/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true}`, w.Body.String())
	assert.Equal(t, 7, l.Grid(ctx).Grid.Size())
	assert.Equal(t, 0, l.Metrics(ctx).Step)

	assertError(t, do(t, h, "POST", "/grid/size/0", ""), http.StatusBadRequest, "InvalidSize")
	assertError(t, do(t, h, "POST", "/grid/size/65", ""), http.StatusBadRequest, "InvalidSize")
	assertError(t, do(t, h, "POST", "/grid/size/big", ""), http.StatusBadRequest, "InvalidSize")

	require.NoError(t, l.SetCell(ctx, 0, 0, 1))
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/grid/reset", "").Code)
	assert.Equal(t, 49, l.Metrics(ctx).Counts.Zero)
}

func TestResize_OverflowingSizeWithoutConfiguredLimit(t *testing.T) {
	h, l := newTestHandler(t)

	for _, n := range []string{"4097", "4294967296", "3037000500"} {
		assertError(t, do(t, h, "POST", "/grid/size/"+n, ""), http.StatusBadRequest, "InvalidSize")
	}

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(t, h, "GET", "/grid/thresholds", "") }()
	select {
	case w := <-done:
		assert.Equal(t, http.StatusOK, w.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("lab still locked after rejected resize")
	}
	assert.Equal(t, 4, l.Grid(context.Background()).Grid.Size())
}

func TestSeed(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "POST", "/grid/seed", `{"mode": "genesis"}`)
	require.Equal(t, http.StatusOK, w.Code)
	g := decodeInto[gridResponse](t, w)
	assert.Equal(t, 1, g.Grid[2][2])
	assert.Equal(t, 1, g.Metrics.Counts.Pos)

	a := decodeInto[gridResponse](t, do(t, h, "POST", "/grid/seed", `{"mode": "chaos", "rng_seed": 9}`))
	b := decodeInto[gridResponse](t, do(t, h, "POST", "/grid/seed", `{"mode": "chaos", "rng_seed": 9}`))
	assert.Equal(t, a.Grid, b.Grid)

	assertError(t, do(t, h, "POST", "/grid/seed", `{"mode": "stripes"}`), http.StatusBadRequest, "InvalidSeedMode")
}

func TestThresholds(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "GET", "/grid/thresholds", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pos_threshold": 3, "neg_threshold": 3}`, w.Body.String())

	w = do(t, h, "POST", "/grid/thresholds", `{"pos_threshold": 2, "neg_threshold": 5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true, "pos_threshold": 2, "neg_threshold": 5}`, w.Body.String())

	assertError(t, do(t, h, "POST", "/grid/thresholds", `{"pos_threshold": 0, "neg_threshold": 5}`), http.StatusBadRequest, "InvalidThreshold")
	assertError(t, do(t, h, "POST", "/grid/thresholds", `{"pos_threshold": 2}`), http.StatusBadRequest, "InvalidRequest")

	w = do(t, h, "GET", "/grid/thresholds", "")
	assert.JSONEq(t, `{"pos_threshold": 2, "neg_threshold": 5}`, w.Body.String())
}

func TestExportImport(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/grid/seed", `{"mode": "chaos", "rng_seed": 1}`).Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/grid/step?count=2", "").Code)

	exported := do(t, h, "GET", "/grid/export", "")
	require.Equal(t, http.StatusOK, exported.Code)

	other, _ := newTestHandler(t)
	w := do(t, other, "POST", "/grid/import", exported.Body.String())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.JSONEq(t, exported.Body.String(), do(t, other, "GET", "/grid/export", "").Body.String())
}

func TestImport_Invalid(t *testing.T) {
	h, _ := newTestHandler(t)
	before := do(t, h, "GET", "/grid/export", "").Body.String()

	assertError(t, do(t, h, "POST", "/grid/import", `{"size": 2, "grid": [[0, 7], [0, 0]], "pos_threshold": 3, "neg_threshold": 3, "step": 0}`),
		http.StatusBadRequest, "InvalidSnapshot")
	assertError(t, do(t, h, "POST", "/grid/import", `{"size": 3, "grid": [[0]], "pos_threshold": 3, "neg_threshold": 3, "step": 0}`),
		http.StatusBadRequest, "InvalidSnapshot")
	assertError(t, do(t, h, "POST", "/grid/import", `not json`), http.StatusBadRequest, "InvalidSnapshot")

	assert.JSONEq(t, before, do(t, h, "GET", "/grid/export", "").Body.String())
}

func TestImport_Legacy(t *testing.T) {
	h, l := newTestHandler(t)
	legacy := `{"grid": [[1,0],[0,-1]], "metrics": {"step": 4, "entropy_history": [1.5]}, "pos_threshold": 2, "neg_threshold": 2}`

	w := do(t, h, "POST", "/grid/import", legacy)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	view := l.Grid(context.Background())
	assert.Equal(t, 2, view.Grid.Size())
	assert.Equal(t, 0, view.Metrics.Step)
	assert.Equal(t, 2, view.PosThreshold)
}

func TestGetMetrics(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/grid/step?count=2", "").Code)

	w := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	m := decodeInto[domain.MetricsReport](t, w)
	assert.Equal(t, 2, m.Step)
	assert.Equal(t, 4, m.Size)
	assert.Equal(t, 16, m.Counts.Total())
	assert.Len(t, m.EntropyHistory, 3)
}

func TestExperiments(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "GET", "/experiments", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeInto[[]lab.Experiment](t, w)
	assert.Len(t, list, len(lab.DefaultExperiments()))

	w = do(t, h, "POST", "/experiments/chaos-2-4", `{"rng_seed": 5}`)
	require.Equal(t, http.StatusOK, w.Code)
	g := decodeInto[gridResponse](t, w)
	assert.Equal(t, 2, g.PosThreshold)
	assert.Equal(t, 4, g.NegThreshold)

	w = do(t, h, "POST", "/experiments/genesis-3-3", "")
	require.Equal(t, http.StatusOK, w.Code)

	assertError(t, do(t, h, "POST", "/experiments/missing", ""), http.StatusNotFound, "ExperimentNotFound")
}

func TestSnapshots(t *testing.T) {
	h, l := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, l.SetCell(ctx, 1, 1, 1))

	w := do(t, h, "POST", "/snapshots", `{"name": "one"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "one", decodeInto[idResponse](t, w).ID)

	w = do(t, h, "POST", "/snapshots", "")
	require.Equal(t, http.StatusCreated, w.Code)
	generated := decodeInto[idResponse](t, w).ID
	assert.NotEmpty(t, generated)

	w = do(t, h, "GET", "/snapshots", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"one", generated}, decodeInto[idsResponse](t, w).IDs)

	w = do(t, h, "GET", "/snapshots/one", "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeInto[domain.Snapshot](t, w)
	assert.Equal(t, 1, snap.Grid[1][1])

	require.NoError(t, l.Reset(ctx))
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/snapshots/one/load", "").Code)
	assert.Equal(t, domain.Pos, l.Grid(ctx).Grid.At(1, 1))

	require.Equal(t, http.StatusOK, do(t, h, "DELETE", "/snapshots/one", "").Code)
	assertError(t, do(t, h, "GET", "/snapshots/one", ""), http.StatusNotFound, "SnapshotNotFound")
	assertError(t, do(t, h, "POST", "/snapshots/one/load", ""), http.StatusNotFound, "SnapshotNotFound")

	assertError(t, do(t, h, "POST", "/snapshots", `{"name": "a/b"}`), http.StatusBadRequest, "InvalidSnapshotID")
	assertError(t, do(t, h, "POST", "/snapshots", `{"name": ".."}`), http.StatusBadRequest, "InvalidSnapshotID")
	assertError(t, do(t, h, "GET", "/snapshots/..", ""), http.StatusBadRequest, "InvalidSnapshotID")
}

func TestSnapshots_FileStoreRejectsPathNames(t *testing.T) {
	l, err := lab.New(lab.WithSize(4), lab.WithStore(file.New(t.TempDir())))
	require.NoError(t, err)
	h := NewHandler(l)

	assertError(t, do(t, h, "POST", "/snapshots", `{"name": "a/b"}`), http.StatusBadRequest, "InvalidSnapshotID")
	assertError(t, do(t, h, "POST", "/snapshots", `{"name": "tmp-x"}`), http.StatusBadRequest, "InvalidSnapshotID")
	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/snapshots", `{"name": "ok"}`).Code)
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decodeInto[map[string]string](t, w)
	assert.Equal(t, "ternlab-http", info["app"])
	assert.Equal(t, "1.1.0", info["api_version"])
	assert.NotEmpty(t, info["version"])

	w = do(t, h, "GET", "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}

func TestOpenAPIDocumentsRoutes(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	for _, path := range []string{"/grid", "/grid/set", "/grid/step", "/grid/size/{n}", "/grid/import", "/snapshots/{id}/load"} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
}

func TestDebugMetrics(t *testing.T) {
	h, _ := newTestHandler(t)
	w := do(t, h, "GET", "/debug/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEntropyChart(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/grid/seed", `{"mode": "chaos"}`).Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/grid/step?count=3", "").Code)

	w := do(t, h, "GET", "/grid/entropy.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))
}

func TestCORS(t *testing.T) {
	h, _ := newTestHandler(t)
	w := do(t, h, "OPTIONS", "/grid/set", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	l, err := lab.New(lab.WithSize(2))
	require.NoError(t, err)
	restricted := NewHandler(l, WithCORSOrigins([]string{"http://localhost:3000"}))

	req := httptest.NewRequest("GET", "/grid", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/grid", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents(t *testing.T) {
	streams := NewStreamManager(nil)
	l, err := lab.New(lab.WithSize(4), lab.WithLifecycleHooks(streams.Hooks()))
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(l, WithStreams(streams)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/grid/events?types=set_cell", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	// The ping is written after the subscription is registered.
	require.Equal(t, "connected", readData())

	// Filtered out by the types parameter.
	_, err = l.Step(ctx)
	require.NoError(t, err)
	require.NoError(t, l.SetCell(ctx, 2, 3, 1))

	var event domain.LabEvent
	require.NoError(t, json.Unmarshal([]byte(readData()), &event))
	assert.Equal(t, domain.EventSetCell, event.Type)
	assert.Equal(t, 1, event.Step)
	require.NotNil(t, event.Diff)
	assert.Equal(t, []domain.CellChange{{X: 2, Y: 3, Value: domain.Pos}}, event.Diff.Changes)
}

func TestStreamManager_DropsForSlowClients(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		sm.Broadcast("x")
	}
	assert.Len(t, ch, subscriberBuffer)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers())
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "step", eventType(`{"timestamp":"t","type":"step","step":1}`))
	assert.Equal(t, "", eventType(`{"step":1}`))
}
