package display

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/store"
)

func TestLines(t *testing.T) {
	got := Lines(env.Reading{Pressure: 101300, Temperature: 22.5, Altitude: 10}, true)
	want := []string{"P: 101300 Pa", "T: 22.50 C", "Alt: 10.0 m", "Web: on"}
	if len(got) != len(want) {
		t.Fatalf("lines = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	if Lines(env.Reading{}, false)[3] != "Web: off" {
		t.Error("server state not shown")
	}
}

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderDrawsText(t *testing.T) {
	img := Render(env.Reading{Pressure: 101300}, false)
	if img.Bounds() != image.Rect(0, 0, 128, 64) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if litPixels(img) == 0 {
		t.Fatal("nothing drawn")
	}
	if litPixels(RenderSplash()) == 0 {
		t.Fatal("splash empty")
	}
}

type fakeDrawer struct {
	mu    sync.Mutex
	draws int
}

func (f *fakeDrawer) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (f *fakeDrawer) Draw(image.Rectangle, image.Image, image.Point) error {
	f.mu.Lock()
	f.draws++
	f.mu.Unlock()
	return nil
}

func (f *fakeDrawer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draws
}

func TestRunRedraws(t *testing.T) {
	dev := &fakeDrawer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, dev, store.New(), func() bool { return true }, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for dev.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if dev.count() < 3 {
		t.Fatalf("draws = %d", dev.count())
	}
}
