package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"i4.energy/across/mgsm/modem"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// Trace logs every byte exchanged with the modem at debug level
	Trace bool

	// APN is the access point name of the PDP context
	APN string
	// Operator forces manual selection of a numeric operator (e.g. "26201")
	Operator string
	// FactoryReset sends AT&F before every setup round
	FactoryReset bool
	// SIMNumbers adds the IMSI to the identity query
	SIMNumbers bool
	// CellInfo queries location and operator with every signal readout
	CellInfo bool
	// StrictRegistration holds bring-up until the modem reports registration
	StrictRegistration bool
	// RSSIMode selects the signal query, "csq" or "cesq"
	RSSIMode string

	// Mux enables CMUX with the given modem family: "", "generic", "quectel" or "simcom"
	Mux string
	// MuxDir holds the gsmtty device nodes
	MuxDir string

	// GPIOChip enables GPIO power control on the named chip (e.g. "gpiochip0")
	GPIOChip string
	// PowerKey is the line offset of the modem PWRKEY input
	PowerKey int
	// Rails are the line offsets of the supply enables
	Rails []int

	// LinkUp, LinkEnable, LinkDisable and LinkDown are the hook commands
	// driving the PPP link (e.g. "pon mgsm", "poff mgsm")
	LinkUp      string
	LinkEnable  string
	LinkDisable string
	LinkDown    string

	// Autostart begins bring-up as soon as the daemon runs
	Autostart bool
	// CORS allows cross-origin requests to the status API
	CORS bool
	// PollPeriod is the signal poll interval on a multiplexed link
	PollPeriod time.Duration
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.RSSIMode = "csq"
		c.MuxDir = "/dev"
		c.Autostart = true
		c.PollPeriod = 30 * time.Second
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		for name, dst := range map[string]*string{
			"BIND_ADDRESS": &c.BindAddress,
			"SERIAL_PORT":  &c.SerialPort,
			"LOG_LEVEL":    &c.LogLevel,
			"APN":          &c.APN,
			"OPERATOR":     &c.Operator,
			"RSSI_MODE":    &c.RSSIMode,
			"MUX":          &c.Mux,
			"MUX_DIR":      &c.MuxDir,
			"GPIO_CHIP":    &c.GPIOChip,
			"LINK_UP":      &c.LinkUp,
			"LINK_ENABLE":  &c.LinkEnable,
			"LINK_DISABLE": &c.LinkDisable,
			"LINK_DOWN":    &c.LinkDown,
		} {
			if v := os.Getenv(name); v != "" {
				*dst = v
			}
		}

		for name, dst := range map[string]*bool{
			"TRACE":               &c.Trace,
			"FACTORY_RESET":       &c.FactoryReset,
			"SIM_NUMBERS":         &c.SIMNumbers,
			"CELL_INFO":           &c.CellInfo,
			"STRICT_REGISTRATION": &c.StrictRegistration,
			"AUTOSTART":           &c.Autostart,
			"CORS":                &c.CORS,
		} {
			if v := os.Getenv(name); v != "" {
				if b, err := strconv.ParseBool(v); err == nil {
					*dst = b
				}
			}
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if key := os.Getenv("POWER_KEY"); key != "" {
			if k, err := strconv.Atoi(key); err == nil {
				c.PowerKey = k
			}
		}

		if rails := os.Getenv("RAILS"); rails != "" {
			c.Rails = parseOffsets(rails)
		}

		if poll := os.Getenv("POLL_PERIOD"); poll != "" {
			if d, err := time.ParseDuration(poll); err == nil {
				c.PollPeriod = d
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			v := f.Value.String()
			switch f.Name {
			case "bind-address":
				c.BindAddress = v
			case "serial-port":
				c.SerialPort = v
			case "baud-rate":
				if b, err := strconv.Atoi(v); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = v
			case "trace":
				c.Trace = v == "true"
			case "apn":
				c.APN = v
			case "operator":
				c.Operator = v
			case "factory-reset":
				c.FactoryReset = v == "true"
			case "sim-numbers":
				c.SIMNumbers = v == "true"
			case "cell-info":
				c.CellInfo = v == "true"
			case "strict-registration":
				c.StrictRegistration = v == "true"
			case "rssi-mode":
				c.RSSIMode = v
			case "mux":
				c.Mux = v
			case "mux-dir":
				c.MuxDir = v
			case "gpio-chip":
				c.GPIOChip = v
			case "power-key":
				if k, err := strconv.Atoi(v); err == nil {
					c.PowerKey = k
				}
			case "rails":
				c.Rails = parseOffsets(v)
			case "link-up":
				c.LinkUp = v
			case "link-enable":
				c.LinkEnable = v
			case "link-disable":
				c.LinkDisable = v
			case "link-down":
				c.LinkDown = v
			case "autostart":
				c.Autostart = v == "true"
			case "cors":
				c.CORS = v == "true"
			case "poll-period":
				if d, err := time.ParseDuration(v); err == nil {
					c.PollPeriod = d
				}
			}
		})
		return nil
	}
}

// parseOffsets reads a comma separated list of line offsets, skipping
// anything that is not a number.
func parseOffsets(s string) []int {
	var out []int
	for _, f := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(f)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// muxVariant maps the configured modem family onto the CMUX dialect.
func muxVariant(name string) (modem.MuxVariant, error) {
	switch strings.ToLower(name) {
	case "generic":
		return modem.MuxGeneric, nil
	case "quectel":
		return modem.MuxQuectel, nil
	case "simcom":
		return modem.MuxSIMCom, nil
	}
	return 0, fmt.Errorf("unknown mux variant %q", name)
}

// rssiMode maps the configured signal query name.
func rssiMode(name string) (modem.RSSIMode, error) {
	switch strings.ToLower(name) {
	case "", "csq":
		return modem.RSSICSQ, nil
	case "cesq":
		return modem.RSSICESQ, nil
	}
	return 0, fmt.Errorf("unknown rssi mode %q", name)
}
