package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/yieldpoint/internal/export"
	"github.com/talgya/yieldpoint/internal/playback"
	"github.com/talgya/yieldpoint/internal/specimen"
	"github.com/talgya/yieldpoint/internal/tensile"
)

const testAdminKey = "admin-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sess, err := playback.NewSession(tensile.Default, playback.DefaultOptions())
	require.NoError(t, err)
	return &Server{
		Session:  sess,
		Engine:   playback.NewEngine(sess),
		Layout:   specimen.NewLayout(specimen.DefaultGeometry()),
		Metrics:  NewMetrics(),
		Version:  "test",
		AdminKey: testAdminKey,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	status := decode[map[string]any](t, rec)
	assert.Equal(t, "yieldpoint", status["name"])
	assert.Equal(t, "Mild Steel", status["material"])
	assert.Equal(t, "ELASTIC", status["phase"])
	assert.Equal(t, float64(tensile.DefaultResolution), status["resolution"])
	assert.Equal(t, false, status["playing"])
	assert.Equal(t, false, status["running"])
}

type curveBody struct {
	Resolution int                 `json:"resolution"`
	MaxStrain  float64             `json:"max_strain"`
	Peak       tensile.DataPoint   `json:"peak"`
	Spans      []tensile.PhaseSpan `json:"spans"`
	Points     tensile.Curve       `json:"points"`
}

func TestCurve(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/curve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[curveBody](t, rec)
	assert.Equal(t, tensile.DefaultResolution, body.Resolution)
	assert.Len(t, body.Points, tensile.DefaultResolution+1)
	assert.InDelta(t, 0.16, body.MaxStrain, 1e-12)
	assert.InDelta(t, 420.0, body.Peak.Stress, 0.1)
	require.NotEmpty(t, body.Spans)
	assert.Equal(t, tensile.Elastic, body.Spans[0].Phase)
	assert.Equal(t, tensile.Fracture, body.Spans[len(body.Spans)-1].Phase)

	rec = do(t, h, http.MethodGet, "/api/v1/curve?upto=0.01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[curveBody](t, rec)
	require.NotEmpty(t, body.Points)
	assert.LessOrEqual(t, body.Points[len(body.Points)-1].Strain, 0.01)

	rec = do(t, h, http.MethodGet, "/api/v1/curve?upto=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStateQuery(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/state?strain=0.08", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[stateResponse](t, rec)
	assert.Nil(t, resp.Frame)
	assert.Equal(t, tensile.StrainHardening, resp.Reading.Phase)
	assert.Greater(t, resp.Reading.Stress, 280.0)
	assert.Less(t, resp.Reading.Stress, 420.0)
	assert.Equal(t, "Strain Hardening", resp.Content.Title)

	rec = do(t, h, http.MethodGet, "/api/v1/state?strain=1", "")
	resp = decode[stateResponse](t, rec)
	assert.Equal(t, 0.15, resp.Reading.Strain)
	assert.Equal(t, tensile.Fracture, resp.Reading.Phase)
	assert.Equal(t, 0.0, resp.Reading.Stress)

	rec = do(t, h, http.MethodGet, "/api/v1/state?strain=NaN", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0.0, s.Session.State().CurrentStrain, "queries do not move playback")
}

func TestStateLiveFrame(t *testing.T) {
	s := newTestServer(t)
	s.Session.Seek(40)

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/state", "")
	resp := decode[stateResponse](t, rec)
	require.NotNil(t, resp.Frame)
	assert.InDelta(t, 40.0, resp.Frame.Progress, 1e-9)
	assert.Equal(t, tensile.LudersPlateau, resp.Reading.Phase)
	assert.Equal(t, s.Session.ID(), resp.Frame.Session)
}

func TestThresholdsAndPhases(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/thresholds", "")
	th := decode[struct {
		Thresholds tensile.PhaseThresholds `json:"thresholds"`
	}](t, rec)
	assert.Equal(t, tensile.DeriveThresholds(), th.Thresholds)

	rec = do(t, h, http.MethodGet, "/api/v1/phases", "")
	phases := decode[[]phaseInfo](t, rec)
	require.Len(t, phases, int(tensile.PhaseCount))
	assert.Equal(t, "ELASTIC", phases[0].Key)
	assert.Equal(t, "Elastic Region", phases[0].Name)
	require.NotNil(t, phases[0].To)
	assert.InDelta(t, 0.0016, *phases[0].To, 1e-12)
	assert.Equal(t, "FRACTURE", phases[6].Key)
	assert.Nil(t, phases[6].To)
	assert.Equal(t, 0.15, phases[6].From)
}

func TestSpecimenAndMarkers(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/specimen?strain=0.135", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sp := decode[struct {
		View specimen.View `json:"view"`
	}](t, rec)
	assert.Equal(t, tensile.Necking, sp.View.Phase)
	assert.InDelta(t, 10.0, sp.View.NeckPinch, 1e-9)
	assert.Len(t, sp.View.Bands, 50)

	rec = do(t, h, http.MethodGet, "/api/v1/markers", "")
	markers := decode[[]playback.Marker](t, rec)
	require.Len(t, markers, 3)
	assert.InDelta(t, 80.0, markers[2].Percent, 1e-9)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	store, err := export.OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()
	s.Store = store
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, `attachment; filename="yieldpoint-400.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Len(t, rec.Header().Get("X-Run-ID"), 36)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "strain,stress_mpa,phase\n"))

	rec = do(t, h, http.MethodGet, "/api/v1/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.XLSX.ContentType(), rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")

	rec = do(t, h, http.MethodGet, "/api/v1/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportRateLimited(t *testing.T) {
	s := newTestServer(t)
	s.ExportLimit = 1
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/export", "").Code)
	rec := do(t, h, http.MethodGet, "/api/v1/export", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	body := `{"action":"play"}`

	rec := do(t, h, http.MethodPost, "/api/v1/playback", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/playback", body, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, s.Session.State().IsPlaying)

	s.AdminKey = ""
	rec = do(t, s.Handler(), http.MethodPost, "/api/v1/playback", body, "Authorization", "Bearer ")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/playback", "")
	assert.Equal(t, http.StatusOK, rec.Code, "GET reads state without a token")
}

func TestPlaybackCommands(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	auth := []string{"Authorization", "Bearer " + testAdminKey}

	post := func(body string) *httptest.ResponseRecorder {
		return do(t, h, http.MethodPost, "/api/v1/playback", body, auth...)
	}

	rec := post(`{"action":"play"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[playback.Frame](t, rec).State.IsPlaying)

	rec = post(`{"action":"seek","percent":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	f := decode[playback.Frame](t, rec)
	assert.InDelta(t, 0.09, f.State.CurrentStrain, 1e-12)
	assert.Equal(t, tensile.StrainHardening, f.Reading.Phase)

	assert.Equal(t, http.StatusBadRequest, post(`{"action":"seek"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"action":"rewind"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)

	rec = post(`{"action":"reset"}`)
	f = decode[playback.Frame](t, rec)
	assert.False(t, f.State.IsPlaying)
	assert.Equal(t, 0.0, f.State.CurrentStrain)
}

func TestSpeedAndResolution(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	auth := []string{"Authorization", "Bearer " + testAdminKey}

	rec := do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":2}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]float64{"speed": 2}, decode[map[string]float64](t, rec))

	rec = do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":-1}`, auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/resolution", `{"resolution":50}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"resolution": 50}, decode[map[string]int](t, rec))
	assert.Len(t, s.Session.Curve(), 51)

	rec = do(t, h, http.MethodPost, "/api/v1/resolution", `{"resolution":0}`, auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/resolution", "")
	assert.Equal(t, map[string]int{"resolution": 50}, decode[map[string]int](t, rec))
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	s.CORSOrigins = []string{"https://lab.example"}
	h := s.Handler()

	rec := do(t, h, http.MethodOptions, "/api/v1/status", "", "Origin", "https://lab.example")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://lab.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/api/v1/status", "", "Origin", "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/api/v1/status", "", "Origin", "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.Session.Seek(60)
	s.Metrics.ObserveFrame(s.Session.Snapshot())
	s.Metrics.ObserveTransition(tensile.LudersPlateau, tensile.StrainHardening, playback.Frame{})

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "yieldpoint_frames_total 1")
	assert.Contains(t, body, "yieldpoint_phase 4")
	assert.Contains(t, body, `yieldpoint_phase_transitions_total{phase="STRAIN_HARDENING"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestStreamRequiresRelayKey(t *testing.T) {
	s := newTestServer(t)
	s.RelayKey = "relay"

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/stream", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamWithoutEngine(t *testing.T) {
	s := newTestServer(t)
	s.Engine = nil

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/stream", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// readEvent returns the next SSE event name and data, skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamPublishesFramesAndPhases(t *testing.T) {
	opts := playback.DefaultOptions()
	opts.Pacing = playback.Pacing{FullRun: 200 * time.Millisecond, PlateauSlowdown: 1}
	sess, err := playback.NewSession(tensile.Default, opts)
	require.NoError(t, err)

	eng := playback.NewEngine(sess)
	eng.Interval = 2 * time.Millisecond
	s := &Server{
		Session: sess,
		Engine:  eng,
		Layout:  specimen.NewLayout(specimen.DefaultGeometry()),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer reqCancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ts.URL+"/api/v1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	event, data := readEvent(t, r)
	require.Equal(t, "frame", event)
	var first playback.Frame
	require.NoError(t, json.Unmarshal([]byte(data), &first))
	assert.False(t, first.State.IsPlaying)

	sess.Play()

	var sawPhase bool
	for !sawPhase {
		event, data = readEvent(t, r)
		if event == "phase" {
			var pe phaseEvent
			require.NoError(t, json.Unmarshal([]byte(data), &pe))
			assert.Equal(t, tensile.Elastic, pe.From)
			assert.Greater(t, int(pe.To), int(pe.From))
			sawPhase = true
		}
	}

	cancel()
	require.NoError(t, <-done)
}
