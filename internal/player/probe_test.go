package player

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func probeOnce(t *testing.T, url string) EngineEvent {
	t.Helper()
	factory := NewProbeEngineFactory(nil)
	engine := factory(&fakeSink{})
	defer engine.Destroy()

	events := make(chan EngineEvent, 1)
	engine.Load(url, func(ev EngineEvent) { events <- ev })

	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("probe never reported")
		return EngineEvent{}
	}
}

func TestProbeEngine_ValidManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n#EXT-X-VERSION:3\n"))
	}))
	defer srv.Close()

	if ev := probeOnce(t, srv.URL); ev.Kind != EngineManifestParsed {
		t.Errorf("event = %+v, want manifest parsed", ev)
	}
}

func TestProbeEngine_NotFoundIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if ev := probeOnce(t, srv.URL); ev.Kind != EngineStreamOffline {
		t.Errorf("event = %+v, want stream offline", ev)
	}
}

func TestProbeEngine_NonManifestIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a playlist</html>"))
	}))
	defer srv.Close()

	ev := probeOnce(t, srv.URL)
	if ev.Kind != EnginePlaybackError || !ev.Fatal {
		t.Errorf("event = %+v, want fatal playback error", ev)
	}
}
