// SPDX-License-Identifier: EPL-2.0

package frame

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/ik5/wavereel/envelope"
)

func silentMachine(t *testing.T, p Params) *Machine {
	t.Helper()

	m, err := NewMachine(make([]float64, FrameCount(p.Duration, p.FPS)), p)
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}
	return m
}

func TestFrameCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		duration, fps float64
		want          int
	}{
		{10, 30, 300},
		{10, 24, 240},
		{1.51, 10, 15},
		{1.56, 10, 16},
		{0, 30, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := FrameCount(tt.duration, tt.fps); got != tt.want {
			t.Errorf("FrameCount(%v, %v) = %d, want %d", tt.duration, tt.fps, got, tt.want)
		}
	}
}

func TestMachine_SilentTenSeconds(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.Duration = 10
	p.FPS = 30
	p.BreathingFrequency = 0.5
	m := silentMachine(t, p)

	if m.Frames() != 300 {
		t.Fatalf("Frames() = %d, want 300", m.Frames())
	}

	cycles := 0
	prev := 0.0
	for i := range m.Frames() {
		s, err := m.State(i)
		if err != nil {
			t.Fatalf("State(%d) error = %v", i, err)
		}

		for j, v := range s.Window {
			if v != 0 {
				t.Fatalf("frame %d window[%d] = %v, want 0", i, j, v)
			}
		}
		if len(s.Window) != p.Columns {
			t.Fatalf("frame %d window has %d columns, want %d", i, len(s.Window), p.Columns)
		}
		if s.Phase < 0 || s.Phase >= 1 {
			t.Fatalf("frame %d phase %v outside [0, 1)", i, s.Phase)
		}
		if s.Angle < 0 || s.Angle >= 2*math.Pi {
			t.Fatalf("frame %d angle %v outside [0, 2π)", i, s.Angle)
		}
		if i == 0 || s.Phase < prev {
			cycles++
		}
		prev = s.Phase
	}

	if want := int(10 * p.BreathingFrequency); cycles != want {
		t.Errorf("breathing cycles = %d, want %d", cycles, want)
	}
}

func TestMachine_Timeline(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.Duration = 4
	p.FPS = 25
	m := silentMachine(t, p)

	first, _ := m.State(0)
	if first.Timestamp != 0 || first.Scroll != 0 {
		t.Errorf("frame 0 = %vs scroll %v, want 0", first.Timestamp, first.Scroll)
	}

	mid, _ := m.State(50)
	if mid.Timestamp != 2 || mid.Scroll != 0.5 {
		t.Errorf("frame 50 = %vs scroll %v, want 2s scroll 0.5", mid.Timestamp, mid.Scroll)
	}

	last, _ := m.State(m.Frames() - 1)
	if math.Abs(last.Timestamp-3.96) > 1e-12 {
		t.Errorf("last frame timestamp = %v, want 3.96", last.Timestamp)
	}

	prev := -1.0
	for i := range m.Frames() {
		s, _ := m.State(i)
		if s.Scroll <= prev {
			t.Fatalf("scroll not increasing at frame %d", i)
		}
		prev = s.Scroll
	}
}

func TestMachine_BreathingBounds(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.Duration = 8
	p.BreathingFrequency = 1
	p.BreathingAmplitude = 0.5
	p.MinScale = 0.9
	p.MaxScale = 1.1
	m := silentMachine(t, p)

	sawMin, sawMax := false, false
	for i := range m.Frames() {
		s, _ := m.State(i)
		if s.Scale < p.MinScale || s.Scale > p.MaxScale {
			t.Fatalf("frame %d scale %v outside [%v, %v]", i, s.Scale, p.MinScale, p.MaxScale)
		}
		sawMin = sawMin || s.Scale == p.MinScale
		sawMax = sawMax || s.Scale == p.MaxScale
	}
	if !sawMin || !sawMax {
		t.Error("large amplitude never reached the clamp bounds")
	}

	s, _ := m.State(0)
	if s.Scale != 1 {
		t.Errorf("frame 0 scale = %v, want 1", s.Scale)
	}
}

func TestMachine_Fade(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.Duration = 10
	p.FPS = 10
	p.FadeSeconds = 2
	m := silentMachine(t, p)

	tests := map[int]float64{0: 0, 10: 0.5, 20: 1, 50: 1, 90: 0.5}
	for i, want := range tests {
		s, _ := m.State(i)
		if math.Abs(s.Alpha-want) > 1e-12 {
			t.Errorf("frame %d alpha = %v, want %v", i, s.Alpha, want)
		}
	}

	p.FadeSeconds = 0
	s, _ := silentMachine(t, p).State(0)
	if s.Alpha != 1 {
		t.Errorf("alpha without fade = %v, want 1", s.Alpha)
	}
}

func TestMachine_ImpulseWindow(t *testing.T) {
	t.Parallel()

	env := envelope.Envelope{Samples: make([]float32, 200), Resolution: 100, Duration: 2}
	env.Samples[100] = 1

	p := DefaultParams()
	p.Duration = 2
	p.FPS = 30
	p.ViewportFraction = 0.25
	p.Columns = 200

	n := FrameCount(p.Duration, p.FPS)
	m, err := NewMachine(envelope.Resample(env, n, p.Duration), p)
	if err != nil {
		t.Fatal(err)
	}

	for i := range m.Frames() {
		s, _ := m.State(i)

		peak := 0.0
		for _, v := range s.Window {
			peak = max(peak, v)
		}

		visible := s.Scroll >= 0.5 && s.Scroll-p.ViewportFraction <= 0.5
		switch {
		case s.Scroll < 0.5 && peak != 0:
			t.Errorf("frame %d before the impulse shows %v", i, peak)
		case visible && peak <= 0:
			t.Errorf("frame %d covers t=1s but shows nothing", i)
		}
	}

	at, _ := m.State(n / 2)
	if at.Window[len(at.Window)-1] != 1 {
		t.Errorf("frame at t=1s ends its window with %v, want 1", at.Window[len(at.Window)-1])
	}

	early, _ := m.State(3)
	if early.Window[0] != 0 {
		t.Errorf("early frame leading column = %v, want zero fill", early.Window[0])
	}
}

func TestMachine_Deterministic(t *testing.T) {
	t.Parallel()

	amps := make([]float64, 300)
	for i := range amps {
		amps[i] = math.Abs(math.Sin(float64(i) / 7))
	}
	p := DefaultParams()
	p.Duration = 10

	m, err := NewMachine(amps, p)
	if err != nil {
		t.Fatal(err)
	}

	want := make([]VisualState, m.Frames())
	for i := range want {
		want[i], _ = m.State(i)
	}

	// Out of order and in parallel gives the same states.
	var wg sync.WaitGroup
	for i := m.Frames() - 1; i >= 0; i-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _ := m.State(i)
			if !reflect.DeepEqual(got, want[i]) {
				t.Errorf("State(%d) differs between calls", i)
			}
		}()
	}
	wg.Wait()
}

func TestMachine_ViewportSeconds(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.Duration = 100
	p.ViewportSeconds = 10
	if w := p.Width(); w != 0.1 {
		t.Errorf("Width() = %v, want 0.1", w)
	}

	p.ViewportSeconds = 500
	if w := p.Width(); w != 1 {
		t.Errorf("Width() = %v, want clamp to 1", w)
	}
}

func TestNewMachine_Invalid(t *testing.T) {
	t.Parallel()

	base := DefaultParams()
	base.Duration = 1

	tests := []struct {
		name   string
		mutate func(*Params)
		amps   int
	}{
		{"zero fps", func(p *Params) { p.FPS = 0 }, 0},
		{"no columns", func(p *Params) { p.Columns = 0 }, 30},
		{"zero viewport", func(p *Params) { p.ViewportFraction = 0 }, 30},
		{"wide viewport", func(p *Params) { p.ViewportFraction = 1.5 }, 30},
		{"inverted scale", func(p *Params) { p.MinScale, p.MaxScale = 1.2, 0.8 }, 30},
		{"amplitude count", func(*Params) {}, 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := base
			tt.mutate(&p)
			if _, err := NewMachine(make([]float64, tt.amps), p); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("NewMachine() error = %v, want %v", err, ErrInvalidParams)
			}
		})
	}

	m := silentMachine(t, base)
	for _, i := range []int{-1, m.Frames()} {
		if _, err := m.State(i); !errors.Is(err, ErrFrameRange) {
			t.Errorf("State(%d) error = %v, want %v", i, err, ErrFrameRange)
		}
	}
}

func TestMachine_EmptyTrack(t *testing.T) {
	t.Parallel()

	m, err := NewMachine(nil, DefaultParams())
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}
	if m.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0", m.Frames())
	}
}

func BenchmarkState(b *testing.B) {
	p := DefaultParams()
	p.Duration = 3600
	m, err := NewMachine(make([]float64, FrameCount(p.Duration, p.FPS)), p)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	i := 0
	for b.Loop() {
		m.State(i % m.Frames())
		i++
	}
}
