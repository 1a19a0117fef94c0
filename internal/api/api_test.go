package api_test

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"tomatoclock/internal/api"
	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/events"
	"tomatoclock/internal/storage"
	"tomatoclock/internal/testutil"
)

type testServer struct {
	srv     *httptest.Server
	engine  *pomodoro.Engine
	bus     *events.Bus
	history *storage.HistoryRepository
}

func newTestServer(t *testing.T, opts api.Options) *testServer {
	t.Helper()

	clock := testutil.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	engine := pomodoro.New(model.DefaultEngineConfig(), clock)
	bus := events.NewBus()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	history := storage.NewHistoryRepository(db)
	require.NoError(t, history.Migrate(context.Background()))

	if opts.RateLimit == 0 {
		opts.RateLimit = 1000
	}
	srv := httptest.NewServer(api.NewRouter(engine, bus, history, opts))
	t.Cleanup(func() {
		srv.Close()
		bus.Close()
		engine.Close()
		_ = db.Close()
	})
	return &testServer{srv: srv, engine: engine, bus: bus, history: history}
}

func do(t *testing.T, ts *testServer, method, path, body string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, bodyReader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status %d, want %d: %s", resp.StatusCode, want, body)
	}
}

func TestGetState(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	resp := do(t, ts, http.MethodGet, "/api/state", "")
	requireStatus(t, resp, http.StatusOK)

	var state pomodoro.TimerState
	decodeJSON(t, resp, &state)
	require.Equal(t, model.ModeWork, state.Mode)
	require.Equal(t, 1500, state.RemainingSeconds)
	require.False(t, state.Running)
}

func TestStartPauseReset(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	var state pomodoro.TimerState
	resp := do(t, ts, http.MethodPost, "/api/start", "")
	requireStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &state)
	require.True(t, state.Running)

	ts.engine.Tick()

	resp = do(t, ts, http.MethodPost, "/api/pause", "")
	requireStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &state)
	require.False(t, state.Running)
	require.Equal(t, 1499, state.RemainingSeconds)

	resp = do(t, ts, http.MethodPost, "/api/reset", "")
	requireStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &state)
	require.Equal(t, 1500, state.RemainingSeconds)
}

func TestSwitchModeErrors(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	resp := do(t, ts, http.MethodPost, "/api/mode/nap", "")
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, ts, http.MethodPost, "/api/mode/short-break", "")
	requireStatus(t, resp, http.StatusOK)
	var state pomodoro.TimerState
	decodeJSON(t, resp, &state)
	require.Equal(t, model.ModeShortBreak, state.Mode)
	require.Equal(t, 300, state.RemainingSeconds)

	ts.engine.Start()
	resp = do(t, ts, http.MethodPost, "/api/mode/long-break", "")
	requireStatus(t, resp, http.StatusConflict)
	var apiErr map[string]string
	decodeJSON(t, resp, &apiErr)
	require.Contains(t, apiErr["error"], "invalid transition")
	require.Equal(t, model.ModeShortBreak, ts.engine.State().Mode)
}

func TestUpdateDuration(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	resp := do(t, ts, http.MethodPut, "/api/durations/work", `{"minutes":0}`)
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, ts, http.MethodPut, "/api/durations/work", `not json`)
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, ts, http.MethodPut, "/api/durations/work", `{"minutes":50}`)
	requireStatus(t, resp, http.StatusOK)
	var state pomodoro.TimerState
	decodeJSON(t, resp, &state)
	require.Equal(t, 50, state.Durations.Work)
	require.Equal(t, 3000, state.RemainingSeconds)
}

func TestSetAutoAdvance(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	resp := do(t, ts, http.MethodPut, "/api/auto-advance", `{}`)
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, ts, http.MethodPut, "/api/auto-advance", `{"enabled":true}`)
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	require.True(t, ts.engine.State().AutoAdvance)
}

func TestGetSnapshotUsesRecordLayout(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	resp := do(t, ts, http.MethodGet, "/api/snapshot", "")
	requireStatus(t, resp, http.StatusOK)

	var record map[string]any
	decodeJSON(t, resp, &record)
	for _, key := range []string{
		"completedWorkSessions", "workDuration", "shortBreakDuration", "longBreakDuration",
		"autoAdvance", "mode", "remainingSeconds", "running", "savedAt",
	} {
		require.Contains(t, record, key)
	}
	require.Equal(t, "work", record["mode"])
}

func TestGetHistory(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	_, err := ts.history.Record(context.Background(), storage.HistoryEntry{
		Mode:            model.ModeWork,
		NextMode:        model.ModeShortBreak,
		DurationSeconds: 1500,
		WorkSessions:    1,
		CompletedAt:     time.Now(),
	})
	require.NoError(t, err)

	resp := do(t, ts, http.MethodGet, "/api/history?limit=5", "")
	requireStatus(t, resp, http.StatusOK)
	var body struct {
		Today  map[string]int         `json:"today"`
		Recent []storage.HistoryEntry `json:"recent"`
	}
	decodeJSON(t, resp, &body)
	require.Equal(t, 1, body.Today["work"])
	require.Len(t, body.Recent, 1)
	require.Equal(t, model.ModeShortBreak, body.Recent[0].NextMode)

	resp = do(t, ts, http.MethodGet, "/api/history?limit=-1", "")
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestRateLimitRejectsBursts(t *testing.T) {
	ts := newTestServer(t, api.Options{RateLimit: 1})

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp := do(t, ts, http.MethodPost, "/api/reset", "")
		statuses = append(statuses, resp.StatusCode)
		resp.Body.Close()
	}

	require.Contains(t, statuses, http.StatusTooManyRequests)
	require.Equal(t, http.StatusOK, statuses[0])

	resp := do(t, ts, http.MethodGet, "/api/state", "")
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestSubscribeStreamsStateAndCompletion(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.srv.URL+"/api/subscribe", nil)
	require.NoError(t, err)
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
	}

	name, data := readEvent()
	require.Equal(t, "state", name)
	require.Contains(t, data, `"remainingSeconds":1500`)

	require.Eventually(t, func() bool { return ts.bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	ts.bus.Publish(pomodoro.Event{
		Type:     pomodoro.EventCompleted,
		Mode:     model.ModeWork,
		NextMode: model.ModeShortBreak,
	})

	name, data = readEvent()
	require.Equal(t, "completed", name)
	require.Contains(t, data, `"nextMode":"short-break"`)
}

func TestAssetsServeNonAPIPaths(t *testing.T) {
	assets := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "asset:"+r.URL.Path)
	})
	ts := newTestServer(t, api.Options{Assets: assets})

	resp := do(t, ts, http.MethodGet, "/app.js", "")
	requireStatus(t, resp, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, "asset:/app.js", string(body))
}
