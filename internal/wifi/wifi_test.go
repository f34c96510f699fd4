package wifi

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseHostapdLine(t *testing.T) {
	cases := []struct {
		line   string
		want   Event
		wantOK bool
	}{
		{"wlan0: AP-ENABLED", Event{Type: APStarted}, true},
		{"wlan0: AP-DISABLED", Event{Type: APStopped}, true},
		{"wlan0: AP-STA-CONNECTED 12:34:56:78:9a:bc", Event{Type: APClientConnected, Detail: "12:34:56:78:9a:bc"}, true},
		{"<3>AP-STA-DISCONNECTED 12:34:56:78:9a:bc", Event{Type: APClientDisconnected, Detail: "12:34:56:78:9a:bc"}, true},
		{"wlan0: AP-STA-DISCONNECTED 12:34:56:78:9a:bc", Event{Type: APClientDisconnected, Detail: "12:34:56:78:9a:bc"}, true},
		{"wlan0: interface state UNINITIALIZED->ENABLED", Event{}, false},
		{"", Event{}, false},
	}
	for _, c := range cases {
		got, ok := ParseHostapdLine(c.line)
		if ok != c.wantOK || got != c.want {
			t.Errorf("ParseHostapdLine(%q) = %+v, %v; want %+v, %v", c.line, got, ok, c.want, c.wantOK)
		}
	}
}

func TestRenderHostapdOpenAP(t *testing.T) {
	conf := RenderHostapd(DefaultAPConfig)
	for _, want := range []string{
		"interface=wlan0\n",
		"ssid=Estacao-Meteorologica\n",
		"max_num_sta=3\n",
		"channel=6\n",
		"wpa=0\n",
	} {
		if !strings.Contains(conf, want) {
			t.Errorf("hostapd config missing %q:\n%s", want, conf)
		}
	}
	if strings.Contains(conf, "wpa_passphrase") {
		t.Error("open AP must not carry a passphrase")
	}
}

func TestParseEventName(t *testing.T) {
	cases := map[string]EventType{
		"AP_START":           APStarted,
		"ap_stop":            APStopped,
		" AP_STACONNECTED\n": APClientConnected,
		"AP_STADISCONNECTED": APClientDisconnected,
		"AP_STAIPASSIGNED":   APClientAssignedIP,
		"STA_START":          Unknown,
		"":                   Unknown,
	}
	for in, want := range cases {
		if got := ParseEventName(in); got != want {
			t.Errorf("ParseEventName(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestEventTypeStringRoundTrip(t *testing.T) {
	for _, et := range []EventType{APStarted, APStopped, APClientConnected, APClientDisconnected, APClientAssignedIP} {
		if got := ParseEventName(et.String()); got != et {
			t.Errorf("ParseEventName(%s) = %s", et, got)
		}
	}
}

func TestParseMQTTPayload(t *testing.T) {
	if got := ParseMQTTPayload([]byte("AP_START")); got.Type != APStarted {
		t.Errorf("bare name: got %+v", got)
	}
	got := ParseMQTTPayload([]byte(`{"event":"AP_STAIPASSIGNED","detail":"192.168.4.2"}`))
	if got.Type != APClientAssignedIP || got.Detail != "192.168.4.2" {
		t.Errorf("json: got %+v", got)
	}
	if got := ParseMQTTPayload([]byte(`{"event":`)); got.Type != Unknown {
		t.Errorf("broken json: got %+v", got)
	}
}

func TestStaticSource(t *testing.T) {
	ev := <-NewStaticSource().Events()
	if ev.Type != APStarted {
		t.Fatalf("got %+v", ev)
	}
}

func TestHostapdStartForwardsEvents(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "hostapd")
	body := "#!/bin/sh\n" +
		"grep -q 'ssid=Estacao-Meteorologica' \"$1\" || exit 1\n" +
		"echo 'wlan0: interface state UNINITIALIZED->ENABLED'\n" +
		"echo 'wlan0: AP-ENABLED'\n" +
		"echo 'wlan0: AP-STA-CONNECTED aa:bb:cc:dd:ee:ff'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	h := &Hostapd{
		Binary:   script,
		ConfPath: filepath.Join(dir, "hostapd.conf"),
		Config:   DefaultAPConfig,
	}
	// consumers may take the channel before hostapd is launched
	events := h.Events()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []EventType{APStarted, APClientConnected, APStopped}
	for i, w := range want {
		select {
		case ev := <-events:
			if ev.Type != w {
				t.Fatalf("event %d = %s, want %s", i, ev.Type, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected channel to close after hostapd exit")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestHostapdStartMissingBinary(t *testing.T) {
	dir := t.TempDir()
	h := &Hostapd{
		Binary:   filepath.Join(dir, "does-not-exist"),
		ConfPath: filepath.Join(dir, "hostapd.conf"),
		Config:   DefaultAPConfig,
	}
	if err := h.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
}
