// Package gpio drives modem power through Linux GPIO character devices.
package gpio

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// Pulse timing for Quectel and SIMCom LTE parts.
const (
	DefaultOnPulse  = 750 * time.Millisecond
	DefaultSettle   = 2 * time.Second
	DefaultOffPulse = 3500 * time.Millisecond
	DefaultOffWait  = 12 * time.Second
)

// Line is the output line behaviour the controller needs. *gpiocdev.Line
// satisfies it.
type Line interface {
	SetValue(value int) error
	Close() error
}

// Config selects the lines driving the modem.
type Config struct {
	// Chip is the GPIO chip name, e.g. "gpiochip0".
	Chip string
	// PowerKey is the line offset wired to the modem PWRKEY input.
	PowerKey int
	// Rails are line offsets enabling supplies (LNA, LDO, LTE) before the
	// power key is pulsed. They are switched off after power-down.
	Rails []int

	OnPulse  time.Duration
	Settle   time.Duration
	OffPulse time.Duration
	OffWait  time.Duration

	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.OnPulse == 0 {
		c.OnPulse = DefaultOnPulse
	}
	if c.Settle == 0 {
		c.Settle = DefaultSettle
	}
	if c.OffPulse == 0 {
		c.OffPulse = DefaultOffPulse
	}
	if c.OffWait == 0 {
		c.OffWait = DefaultOffWait
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type requestFunc func(chip string, offset int, consumer string) (Line, error)

func requestLine(chip string, offset int, consumer string) (Line, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(consumer),
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// PowerController switches the modem supplies and pulses its power key.
// It implements modem.Power.
type PowerController struct {
	cfg    Config
	logger *slog.Logger
	key    Line
	rails  []Line
	sleep  func(time.Duration)
}

// NewPowerController requests the configured lines as outputs, initially low.
func NewPowerController(cfg Config) (*PowerController, error) {
	return newPowerController(cfg, requestLine)
}

func newPowerController(cfg Config, request requestFunc) (*PowerController, error) {
	if cfg.Chip == "" {
		return nil, errors.New("gpio chip is required")
	}
	cfg.setDefaults()

	pc := &PowerController{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "gpio"),
		sleep:  time.Sleep,
	}

	key, err := request(cfg.Chip, cfg.PowerKey, "mgsm-pwrkey")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to request power key line %d", cfg.PowerKey)
	}
	pc.key = key

	for _, offset := range cfg.Rails {
		l, err := request(cfg.Chip, offset, "mgsm-rail")
		if err != nil {
			pc.Close()
			return nil, errors.Wrapf(err, "failed to request rail line %d", offset)
		}
		pc.rails = append(pc.rails, l)
	}

	pc.logger.Info("power controller initialized", "chip", cfg.Chip, "pwrkey", cfg.PowerKey, "rails", cfg.Rails)
	return pc, nil
}

// PowerOn enables the rails, pulses the power key and waits for the modem
// to boot far enough to listen on its UART.
func (pc *PowerController) PowerOn() error {
	if pc.key == nil {
		return errors.New("gpio not initialized")
	}

	if err := pc.setRails(1); err != nil {
		return err
	}
	pc.logger.Debug("power on pulse", "duration", pc.cfg.OnPulse)
	if err := pc.pulse(pc.cfg.OnPulse); err != nil {
		return errors.Wrap(err, "power on")
	}
	pc.sleep(pc.cfg.Settle)
	return nil
}

// PowerOff pulses the power key for the shutdown duration, waits for the
// modem to power down and then drops the rails.
func (pc *PowerController) PowerOff() error {
	if pc.key == nil {
		return errors.New("gpio not initialized")
	}

	pc.logger.Debug("power off pulse", "duration", pc.cfg.OffPulse)
	if err := pc.pulse(pc.cfg.OffPulse); err != nil {
		return errors.Wrap(err, "power off")
	}
	pc.sleep(pc.cfg.OffWait)
	return pc.setRails(0)
}

// Cycle powers the modem off and on again.
func (pc *PowerController) Cycle() error {
	if err := pc.PowerOff(); err != nil {
		return errors.Wrap(err, "power cycle failed during power off")
	}
	if err := pc.PowerOn(); err != nil {
		return errors.Wrap(err, "power cycle failed during power on")
	}
	return nil
}

// Close releases all lines.
func (pc *PowerController) Close() error {
	var first error
	for _, l := range append([]Line{pc.key}, pc.rails...) {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "failed to release line")
		}
	}
	pc.key = nil
	pc.rails = nil
	return first
}

func (pc *PowerController) pulse(d time.Duration) error {
	if err := pc.key.SetValue(1); err != nil {
		return errors.Wrap(err, "failed to set power key high")
	}
	pc.sleep(d)
	if err := pc.key.SetValue(0); err != nil {
		return errors.Wrap(err, "failed to set power key low")
	}
	return nil
}

func (pc *PowerController) setRails(v int) error {
	for i, l := range pc.rails {
		if err := l.SetValue(v); err != nil {
			return errors.Wrapf(err, "failed to set rail line %d", pc.cfg.Rails[i])
		}
	}
	return nil
}
