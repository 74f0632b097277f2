package modem

import (
	"log/slog"
	"time"
)

// RSSIMode selects how signal strength is queried and decoded.
type RSSIMode int

const (
	// RSSICSQ reads AT+CSQ and maps the index 0..31 onto -113..-51 dBm.
	RSSICSQ RSSIMode = iota
	// RSSICESQ reads AT+CESQ and prefers RSRP, then RSCP, then RXLEV.
	RSSICESQ
)

func (m RSSIMode) String() string {
	if m == RSSICESQ {
		return "cesq"
	}
	return "csq"
}

// MuxVariant selects the AT+CMUX dialect of the modem family.
type MuxVariant int

const (
	MuxGeneric MuxVariant = iota
	MuxQuectel
	MuxSIMCom
)

func (v MuxVariant) String() string {
	switch v {
	case MuxQuectel:
		return "quectel"
	case MuxSIMCom:
		return "simcom"
	}
	return "generic"
}

// Logical addresses of the multiplexed channels.
const (
	DLCIControl = 0
	DLCIPPP     = 1
	DLCIAT      = 2
)

type Config struct {
	Dialer Dialer
	Power  Power
	Link   Link
	Mux    Mux
	Logger *slog.Logger

	APN string
	// ManualOperator is a numeric MCC/MNC. Empty selects automatic mode.
	ManualOperator string

	FactoryReset       bool
	QuerySIMNumbers    bool
	CellInfo           bool
	StrictRegistration bool

	RSSIMode RSSIMode
	// RSSICeiling is the exclusive upper bound for an acceptable reading.
	RSSICeiling int
	RSSIRetries int

	MuxEnabled bool
	MuxVariant MuxVariant
	MuxMRU     int
	// MuxSrvPort assigns DLCIs with AT+CMUXSRVPORT on SIMCom parts.
	MuxSrvPort bool

	ATTimeout    time.Duration
	SetupTimeout time.Duration
	// LockCeiling bounds how long Stop waits for an in-flight command.
	LockCeiling time.Duration

	RetryDelay      time.Duration
	RegisterDelay   time.Duration
	RegisterTimeout time.Duration
	AttachDelay     time.Duration
	AttachTimeout   time.Duration
	RSSIDelay       time.Duration
	PollPeriod      time.Duration

	LinkDownTimeout   time.Duration
	FactoryResetDelay time.Duration
	MuxSettleDelay    time.Duration

	MaxLineLen int
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	if c.APN == "" {
		return ErrNoAPN
	}
	if c.MuxEnabled && c.Mux == nil {
		return ErrNoMux
	}
	if c.LockCeiling <= c.ATTimeout || c.LockCeiling <= c.SetupTimeout {
		return ErrBadTimeouts
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Power == nil {
		c.Power = nopPower{}
	}
	if c.Link == nil {
		c.Link = nopLink{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.RSSICeiling == 0 && c.RSSIMode == RSSICSQ {
		c.RSSICeiling = -51
	}
	if c.RSSIRetries == 0 {
		c.RSSIRetries = 10
	}
	if c.MuxMRU == 0 {
		c.MuxMRU = 127
	}
	if c.ATTimeout == 0 {
		c.ATTimeout = 8 * time.Second
	}
	if c.SetupTimeout == 0 {
		c.SetupTimeout = 6 * time.Second
	}
	if c.LockCeiling == 0 {
		c.LockCeiling = 10 * time.Second
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.RegisterDelay == 0 {
		c.RegisterDelay = time.Second
	}
	if c.RegisterTimeout == 0 {
		c.RegisterTimeout = 10 * time.Second
	}
	if c.AttachDelay == 0 {
		c.AttachDelay = time.Second
	}
	if c.AttachTimeout == 0 {
		c.AttachTimeout = 30 * time.Second
	}
	if c.RSSIDelay == 0 {
		c.RSSIDelay = 2 * time.Second
	}
	if c.PollPeriod == 0 {
		c.PollPeriod = 30 * time.Second
	}
	if c.LinkDownTimeout == 0 {
		c.LinkDownTimeout = 30 * time.Second
	}
	if c.FactoryResetDelay == 0 {
		c.FactoryResetDelay = time.Second
	}
	if c.MuxSettleDelay == 0 {
		c.MuxSettleDelay = time.Second
	}
	if c.MaxLineLen == 0 {
		c.MaxLineLen = 256
	}
}

// ConfigBuilder assembles a Config. Build applies defaults before
// validating, so only the settings that differ need to be given.
type ConfigBuilder struct {
	c Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.c.Dialer = d
	return b
}

func (b *ConfigBuilder) WithPower(p Power) *ConfigBuilder {
	b.c.Power = p
	return b
}

func (b *ConfigBuilder) WithLink(l Link) *ConfigBuilder {
	b.c.Link = l
	return b
}

// WithMux enables multiplexing over m using the given CMUX dialect.
func (b *ConfigBuilder) WithMux(m Mux, variant MuxVariant) *ConfigBuilder {
	b.c.Mux = m
	b.c.MuxEnabled = true
	b.c.MuxVariant = variant
	return b
}

func (b *ConfigBuilder) WithMuxSrvPort(on bool) *ConfigBuilder {
	b.c.MuxSrvPort = on
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.c.Logger = l
	return b
}

func (b *ConfigBuilder) WithAPN(apn string) *ConfigBuilder {
	b.c.APN = apn
	return b
}

func (b *ConfigBuilder) WithManualOperator(op string) *ConfigBuilder {
	b.c.ManualOperator = op
	return b
}

func (b *ConfigBuilder) WithFactoryReset(on bool) *ConfigBuilder {
	b.c.FactoryReset = on
	return b
}

func (b *ConfigBuilder) WithSIMNumbers(on bool) *ConfigBuilder {
	b.c.QuerySIMNumbers = on
	return b
}

func (b *ConfigBuilder) WithCellInfo(on bool) *ConfigBuilder {
	b.c.CellInfo = on
	return b
}

func (b *ConfigBuilder) WithStrictRegistration(on bool) *ConfigBuilder {
	b.c.StrictRegistration = on
	return b
}

// WithRSSI selects the decoding mode and its acceptance ceiling. A zero
// ceiling in CSQ mode means the default of -51 dBm.
func (b *ConfigBuilder) WithRSSI(mode RSSIMode, ceiling int) *ConfigBuilder {
	b.c.RSSIMode = mode
	b.c.RSSICeiling = ceiling
	return b
}

func (b *ConfigBuilder) WithRSSIRetries(n int) *ConfigBuilder {
	b.c.RSSIRetries = n
	return b
}

// WithTimeouts sets the per-command timeouts and the ceiling Stop waits
// for an in-flight command.
func (b *ConfigBuilder) WithTimeouts(at, setup, lockCeiling time.Duration) *ConfigBuilder {
	b.c.ATTimeout = at
	b.c.SetupTimeout = setup
	b.c.LockCeiling = lockCeiling
	return b
}

// WithDelays sets the backoff between retries of the generic, attach and
// RSSI steps.
func (b *ConfigBuilder) WithDelays(retry, attach, rssi time.Duration) *ConfigBuilder {
	b.c.RetryDelay = retry
	b.c.AttachDelay = attach
	b.c.RSSIDelay = rssi
	return b
}

func (b *ConfigBuilder) WithRegistration(delay, budget time.Duration) *ConfigBuilder {
	b.c.RegisterDelay = delay
	b.c.RegisterTimeout = budget
	return b
}

func (b *ConfigBuilder) WithAttachTimeout(budget time.Duration) *ConfigBuilder {
	b.c.AttachTimeout = budget
	return b
}

func (b *ConfigBuilder) WithPollPeriod(d time.Duration) *ConfigBuilder {
	b.c.PollPeriod = d
	return b
}

func (b *ConfigBuilder) WithSettleDelays(factoryReset, mux time.Duration) *ConfigBuilder {
	b.c.FactoryResetDelay = factoryReset
	b.c.MuxSettleDelay = mux
	return b
}

func (b *ConfigBuilder) WithLinkDownTimeout(d time.Duration) *ConfigBuilder {
	b.c.LinkDownTimeout = d
	return b
}

func (b *ConfigBuilder) WithMaxLineLen(n int) *ConfigBuilder {
	b.c.MaxLineLen = n
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	c := b.c
	c.setDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
