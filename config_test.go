package main

import (
	"flag"
	"reflect"
	"testing"
	"time"

	"i4.energy/across/mgsm/modem"
)

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig(WithDefaults())
	if err != nil {
		t.Fatal(err)
	}
	if c.SerialPort != "/dev/ttyUSB0" || c.BaudRate != 115200 || c.RSSIMode != "csq" || !c.Autostart {
		t.Errorf("unexpected defaults %+v", c)
	}
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERIAL_PORT", "/dev/ttyS1")
	t.Setenv("APN", "iot.example")
	t.Setenv("MUX", "quectel")
	t.Setenv("CELL_INFO", "true")
	t.Setenv("AUTOSTART", "false")
	t.Setenv("BAUD_RATE", "not-a-number")
	t.Setenv("RAILS", "7, 8,x")
	t.Setenv("POLL_PERIOD", "10s")

	c, err := LoadConfig(WithDefaults(), WithEnv())
	if err != nil {
		t.Fatal(err)
	}
	if c.SerialPort != "/dev/ttyS1" || c.APN != "iot.example" || c.Mux != "quectel" {
		t.Errorf("unexpected config %+v", c)
	}
	if !c.CellInfo || c.Autostart {
		t.Errorf("unexpected flags %+v", c)
	}
	if c.BaudRate != 115200 {
		t.Errorf("invalid baud rate must keep default, got %d", c.BaudRate)
	}
	if !reflect.DeepEqual(c.Rails, []int{7, 8}) {
		t.Errorf("unexpected rails %v", c.Rails)
	}
	if c.PollPeriod != 10*time.Second {
		t.Errorf("unexpected poll period %v", c.PollPeriod)
	}
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("APN", "from-env")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("apn", "", "")
	fs.String("serial-port", "/dev/ttyUSB0", "")
	fs.Bool("strict-registration", false, "")
	fs.Int("power-key", 0, "")
	if err := fs.Parse([]string{"-apn", "from-flag", "-strict-registration", "-power-key", "5"}); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(fs))
	if err != nil {
		t.Fatal(err)
	}
	if c.APN != "from-flag" || !c.StrictRegistration || c.PowerKey != 5 {
		t.Errorf("unexpected config %+v", c)
	}
	// Unset flags leave earlier values alone.
	if c.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("unexpected serial port %q", c.SerialPort)
	}
}

func TestMuxVariant(t *testing.T) {
	tests := []struct {
		name    string
		want    modem.MuxVariant
		wantErr bool
	}{
		{"generic", modem.MuxGeneric, false},
		{"Quectel", modem.MuxQuectel, false},
		{"simcom", modem.MuxSIMCom, false},
		{"telit", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := muxVariant(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRSSIMode(t *testing.T) {
	if m, err := rssiMode(""); err != nil || m != modem.RSSICSQ {
		t.Errorf("expected csq, got %v (%v)", m, err)
	}
	if m, err := rssiMode("cesq"); err != nil || m != modem.RSSICESQ {
		t.Errorf("expected cesq, got %v (%v)", m, err)
	}
	if _, err := rssiMode("rscp"); err == nil {
		t.Error("expected error")
	}
}
