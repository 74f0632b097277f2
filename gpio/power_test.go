package gpio

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// recorder collects the value changes and sleeps of a controller in order.
type recorder struct {
	events []string
}

type fakeLine struct {
	name   string
	rec    *recorder
	failOn int
	closed bool
}

func (l *fakeLine) SetValue(v int) error {
	if l.failOn == v {
		return errors.New("line busy")
	}
	l.rec.events = append(l.rec.events, fmt.Sprintf("%s=%d", l.name, v))
	return nil
}

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

func newTestController(t *testing.T, cfg Config) (*PowerController, *recorder, map[int]*fakeLine) {
	t.Helper()
	rec := &recorder{}
	lines := make(map[int]*fakeLine)
	request := func(chip string, offset int, consumer string) (Line, error) {
		name := "rail" + fmt.Sprint(offset)
		if offset == cfg.PowerKey {
			name = "key"
		}
		l := &fakeLine{name: name, rec: rec, failOn: -1}
		lines[offset] = l
		return l, nil
	}

	cfg.Logger = slog.New(slog.DiscardHandler)
	pc, err := newPowerController(cfg, request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pc.sleep = func(d time.Duration) {
		rec.events = append(rec.events, "sleep "+d.String())
	}
	return pc, rec, lines
}

func TestPowerController_PowerOn(t *testing.T) {
	pc, rec, _ := newTestController(t, Config{Chip: "gpiochip0", PowerKey: 5, Rails: []int{7, 8}})

	if err := pc.PowerOn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"rail7=1", "rail8=1", "key=1", "sleep 750ms", "key=0", "sleep 2s"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("expected %q, got %q", want, rec.events)
	}
}

func TestPowerController_PowerOff(t *testing.T) {
	pc, rec, _ := newTestController(t, Config{
		Chip:     "gpiochip0",
		PowerKey: 5,
		Rails:    []int{7},
		OffPulse: time.Second,
		OffWait:  3 * time.Second,
	})

	if err := pc.PowerOff(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"key=1", "sleep 1s", "key=0", "sleep 3s", "rail7=0"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("expected %q, got %q", want, rec.events)
	}
}

func TestPowerController_SetValueError(t *testing.T) {
	pc, _, lines := newTestController(t, Config{Chip: "gpiochip0", PowerKey: 5})
	lines[5].failOn = 1

	err := pc.PowerOn()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed to set power key high") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestPowerController_Close(t *testing.T) {
	pc, _, lines := newTestController(t, Config{Chip: "gpiochip0", PowerKey: 5, Rails: []int{7}})

	if err := pc.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for offset, l := range lines {
		if !l.closed {
			t.Errorf("line %d not released", offset)
		}
	}
	if err := pc.PowerOn(); err == nil {
		t.Error("expected error after Close")
	}
}

func TestNewPowerController_Errors(t *testing.T) {
	t.Run("No chip", func(t *testing.T) {
		if _, err := NewPowerController(Config{}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Rail request fails", func(t *testing.T) {
		request := func(chip string, offset int, consumer string) (Line, error) {
			if offset == 9 {
				return nil, errors.New("device or resource busy")
			}
			return &fakeLine{rec: &recorder{}, failOn: -1}, nil
		}
		_, err := newPowerController(Config{
			Chip:     "gpiochip0",
			PowerKey: 5,
			Rails:    []int{9},
			Logger:   slog.New(slog.DiscardHandler),
		}, request)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "rail line 9") {
			t.Errorf("unexpected error message: %v", err)
		}
	})
}
