package arm

import (
	"errors"
	"sync"
)

type fakeClock struct {
	mu  sync.Mutex
	now uint32
}

func (f *fakeClock) Now() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(ms uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = ms
}

func (f *fakeClock) Advance(ms uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += ms
}

type fixedSampler struct {
	value uint16
}

func (s *fixedSampler) Get() uint16 { return s.value }

type sequenceSampler struct {
	values []uint16
	i      int
}

func (s *sequenceSampler) Get() uint16 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

type fakeServo struct {
	angles   []int
	releases int
	err      error
}

func (f *fakeServo) SetAngle(deg int) error {
	if f.err != nil {
		return f.err
	}
	f.angles = append(f.angles, deg)
	return nil
}

func (f *fakeServo) Release() error {
	f.releases++
	return f.err
}

func (f *fakeServo) Last() int {
	if len(f.angles) == 0 {
		return -1
	}
	return f.angles[len(f.angles)-1]
}

var errServo = errors.New("pwm unavailable")

// rawFor returns the raw reading that maps to angle with the default calibration
func rawFor(angle float32) uint16 {
	return uint16(200 + angle*3600/160)
}

type harness struct {
	clock        *fakeClock
	feedPot      *fixedSampler
	tensionPot   *fixedSampler
	feedServo    *fakeServo
	tensionServo *fakeServo
	pulses       *PulseCounter
	logs         []string
	c            *Controller
}

func newHarness(cfg Config) *harness {
	h := &harness{
		clock:        &fakeClock{},
		feedPot:      &fixedSampler{value: rawFor(90)},
		tensionPot:   &fixedSampler{value: rawFor(80)},
		feedServo:    &fakeServo{},
		tensionServo: &fakeServo{},
	}
	h.pulses = NewPulseCounter(h.clock.Now)
	h.c = New(cfg, Hardware{
		FeedPot:      h.feedPot,
		TensionPot:   h.tensionPot,
		FeedServo:    h.feedServo,
		TensionServo: h.tensionServo,
		Pulses:       h.pulses,
		Clock:        h.clock.Now,
	}, WithLogger(func(s string) {
		h.logs = append(h.logs, s)
	}))
	return h
}

// tickAt sets the clock and runs one Update
func (h *harness) tickAt(ms uint32) {
	h.clock.Set(ms)
	h.c.Update()
}

func (h *harness) setFeed(angle float32) {
	h.feedPot.value = rawFor(angle)
}
