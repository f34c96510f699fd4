package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/filter"
	"github.com/relabs-tech/weather_station/internal/gps"
	"github.com/relabs-tech/weather_station/internal/history"
	"github.com/relabs-tech/weather_station/internal/lifecycle"
	"github.com/relabs-tech/weather_station/internal/store"
	"github.com/relabs-tech/weather_station/internal/wifi"
)

const wantPayload = `{"temperature":"22.50","pressure":101300,"altitude":"10.00","filterValue":101300}`

func newTestServer(opts Options) (*Server, *store.Store) {
	st := store.New()
	st.Write(env.Reading{Pressure: 101300, Temperature: 22.5, Altitude: 10})
	return NewServer("127.0.0.1:0", st, filter.New(), opts), st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestBMPDataPayload(t *testing.T) {
	srv, st := newTestServer(Options{})
	h := srv.Router()

	rec := get(t, h, "/getBMPData")
	if rec.Code != http.StatusOK || rec.Body.String() != wantPayload {
		t.Fatalf("first: %d %s", rec.Code, rec.Body.String())
	}

	rec = get(t, h, "/getBMPData")
	if rec.Body.String() != wantPayload {
		t.Fatalf("second: %s", rec.Body.String())
	}

	// inside the deadband: raw pressure moves, filterValue holds
	st.Write(env.Reading{Pressure: 101305, Temperature: 22.456, Altitude: 9.996})
	rec = get(t, h, "/getBMPData")
	want := `{"temperature":"22.46","pressure":101305,"altitude":"10.00","filterValue":101300}`
	if rec.Body.String() != want {
		t.Fatalf("deadband: got %s", rec.Body.String())
	}

	st.Write(env.Reading{Pressure: 101290, Temperature: -1.5, Altitude: 11.2})
	rec = get(t, h, "/getBMPData")
	want = `{"temperature":"-1.50","pressure":101290,"altitude":"11.20","filterValue":101290}`
	if rec.Body.String() != want {
		t.Fatalf("jump: got %s", rec.Body.String())
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(Options{})
	h := srv.Router()

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/getBMPData") {
		t.Fatalf("menu: %d", rec.Code)
	}

	rec = get(t, h, "/bootstrap.min.css")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/css" {
		t.Fatalf("css: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec.Body.Len() != len(bootstrapCSS) {
		t.Fatal("css body not served verbatim")
	}
}

func TestOptionalEndpointsDisabled(t *testing.T) {
	srv, _ := newTestServer(Options{})
	h := srv.Router()
	for _, p := range []string{"/getHistory", "/getGPSData"} {
		if rec := get(t, h, p); rec.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", p, rec.Code)
		}
	}
}

type fakeHistory struct {
	rows      []history.Row
	err       error
	lastLimit int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Row, error) {
	f.lastLimit = limit
	return f.rows, f.err
}

func TestHistoryEndpoint(t *testing.T) {
	fh := &fakeHistory{rows: []history.Row{{Pressure: 101300, Temperature: 22.5, Altitude: 10}}}
	srv, _ := newTestServer(Options{History: fh, HistoryLimit: 50})
	h := srv.Router()

	rec := get(t, h, "/getHistory?limit=5")
	var rows []history.Row
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil || len(rows) != 1 || rows[0].Pressure != 101300 {
		t.Fatalf("rows = %+v, err = %v", rows, err)
	}
	if fh.lastLimit != 5 {
		t.Fatalf("limit = %d", fh.lastLimit)
	}

	get(t, h, "/getHistory?limit=5000")
	if fh.lastLimit != 50 {
		t.Fatalf("limit not capped: %d", fh.lastLimit)
	}

	fh.err = errors.New("disk full")
	if rec := get(t, h, "/getHistory"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("error code = %d", rec.Code)
	}
}

type fakeFix struct {
	fix  gps.Fix
	have bool
}

func (f *fakeFix) Latest() (gps.Fix, bool) { return f.fix, f.have }

func TestGPSEndpoint(t *testing.T) {
	ff := &fakeFix{}
	srv, _ := newTestServer(Options{GPS: ff})
	h := srv.Router()

	if rec := get(t, h, "/getGPSData"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("before fix = %d", rec.Code)
	}

	ff.fix, ff.have = gps.Fix{Latitude: -23.5, Longitude: -46.6, Validity: "A"}, true
	rec := get(t, h, "/getGPSData")
	var fix gps.Fix
	if err := json.Unmarshal(rec.Body.Bytes(), &fix); err != nil || fix.Latitude != -23.5 {
		t.Fatalf("fix = %+v, err = %v", fix, err)
	}
}

func TestStream(t *testing.T) {
	srv, _ := newTestServer(Options{StreamInterval: 10 * time.Millisecond})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if strings.TrimSpace(string(msg)) != wantPayload {
			t.Fatalf("message %d = %s", i, msg)
		}
	}
}

// Drives the real server through the lifecycle controller: the endpoint is
// reachable only while the AP is up.
func TestServerLifecycleEndToEnd(t *testing.T) {
	srv, _ := newTestServer(Options{})

	var running *Running
	c := lifecycle.NewController(lifecycle.StarterFunc(func() (lifecycle.Handle, error) {
		h, err := srv.Start()
		if err == nil {
			running = h.(*Running)
		}
		return h, err
	}))

	ctx := context.Background()
	c.Handle(ctx, wifi.Event{Type: wifi.APStarted})
	if running == nil || !c.Running() {
		t.Fatal("server not started")
	}
	url := "http://" + running.Addr() + "/getBMPData"

	for i := 0; i < 2; i++ {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("GET %d: %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || string(body) != wantPayload {
			t.Fatalf("GET %d: %d %s", i, resp.StatusCode, body)
		}
	}

	c.Handle(ctx, wifi.Event{Type: wifi.APStopped})
	if c.Running() {
		t.Fatal("still running after APStopped")
	}

	client := &http.Client{Timeout: time.Second}
	if resp, err := client.Get(url); err == nil {
		resp.Body.Close()
		t.Fatal("endpoint reachable after APStopped")
	}
}

func TestStartBindFailure(t *testing.T) {
	srv, _ := newTestServer(Options{})
	h, err := srv.Start()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Stop(context.Background())

	busy := NewServer(h.(*Running).Addr(), store.New(), filter.New(), Options{})
	if _, err := busy.Start(); err == nil {
		t.Fatal("expected bind failure on a used address")
	}
}
