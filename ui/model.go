package ui

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/calvinmclean/feedarm"
)

const maxLogLines = 200

// model is the device state as seen through the serial output
type model struct {
	mtx         sync.Mutex
	status      feedarm.Status
	hasStatus   bool
	log         []string
	partial     []byte
	lastUnstick time.Time
}

// write consumes serial output. Incomplete lines are held until the rest arrives
func (m *model) write(p []byte, now time.Time) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.partial = append(m.partial, p...)
	for {
		i := bytes.IndexByte(m.partial, '\n')
		if i < 0 {
			return
		}
		line := strings.TrimRight(string(m.partial[:i]), "\r")
		m.partial = m.partial[i+1:]
		m.handleLine(line, now)
	}
}

func (m *model) handleLine(line string, now time.Time) {
	if line == "" {
		return
	}

	// Status lines come from polling, so they update the display without filling the log
	if s, ok := feedarm.ParseStatusLine(line); ok {
		m.status = s
		m.hasStatus = true
		return
	}

	if _, to, ok := feedarm.ParseTransition(line); ok {
		m.status.State = to
		if to == feedarm.StateUnsticking {
			m.lastUnstick = now
		}
		if to == feedarm.StateCooldown {
			m.status.UnstickCount++
		}
	}

	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

type snapshot struct {
	status      feedarm.Status
	hasStatus   bool
	log         string
	lastUnstick time.Time
}

func (m *model) snapshot() snapshot {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return snapshot{
		status:      m.status,
		hasStatus:   m.hasStatus,
		log:         strings.Join(m.log, "\n"),
		lastUnstick: m.lastUnstick,
	}
}
