package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

const noElapsed = "--:--"

// elapsedTimer shows the time since an event, like the last unstick. It shows noElapsed until Set
type elapsedTimer struct {
	startTime time.Time
	mtx       sync.Mutex
	text      *canvas.Text
}

func newElapsedTimer() *elapsedTimer {
	return &elapsedTimer{
		text: canvas.NewText(noElapsed, nil),
	}
}

// Set restarts the timer from start. Setting an earlier time than the current start is ignored so
// that an echoed transition doesn't move the timer backwards
func (t *elapsedTimer) Set(start time.Time) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if start.After(t.startTime) {
		t.startTime = start
	}
}

func (t *elapsedTimer) Go(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			fyne.Do(func() {
				t.mtx.Lock()
				t.text.Text = formatElapsed(t.startTime, time.Now())
				t.mtx.Unlock()
				t.text.Refresh()
			})
		}
	}()
}

func formatElapsed(start, now time.Time) string {
	if start.IsZero() {
		return noElapsed
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
