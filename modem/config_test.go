package modem_test

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"i4.energy/across/mgsm/modem"
)

func TestConfig(t *testing.T) {
	t.Run("ErrNoDialer when no dialer provided", func(t *testing.T) {
		_, err := modem.NewConfigBuilder().WithAPN("internet").Build()

		if err != modem.ErrNoDialer {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("ErrNoAPN when no APN provided", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		_, err := modem.NewConfigBuilder().
			WithDialer(modem.NewMockDialer(ctrl)).
			Build()

		if err != modem.ErrNoAPN {
			t.Errorf("expected ErrNoAPN, got: %v", err)
		}
	})

	t.Run("ErrNoMux when mux enabled without collaborator", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		_, err := modem.NewConfigBuilder().
			WithDialer(modem.NewMockDialer(ctrl)).
			WithAPN("internet").
			WithMux(nil, modem.MuxQuectel).
			Build()

		if err != modem.ErrNoMux {
			t.Errorf("expected ErrNoMux, got: %v", err)
		}
	})

	t.Run("ErrBadTimeouts when lock ceiling too short", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		_, err := modem.NewConfigBuilder().
			WithDialer(modem.NewMockDialer(ctrl)).
			WithAPN("internet").
			WithTimeouts(8*time.Second, 6*time.Second, 7*time.Second).
			Build()

		if !errors.Is(err, modem.ErrBadTimeouts) {
			t.Errorf("expected ErrBadTimeouts, got: %v", err)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c, err := modem.NewConfigBuilder().
			WithDialer(modem.NewMockDialer(ctrl)).
			WithAPN("internet").
			Build()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if c.ATTimeout != 8*time.Second || c.SetupTimeout != 6*time.Second || c.LockCeiling != 10*time.Second {
			t.Errorf("unexpected timeouts: %v %v %v", c.ATTimeout, c.SetupTimeout, c.LockCeiling)
		}
		if c.RSSICeiling != -51 {
			t.Errorf("expected CSQ ceiling -51, got %d", c.RSSICeiling)
		}
		if c.RSSIRetries != 10 {
			t.Errorf("expected 10 RSSI retries, got %d", c.RSSIRetries)
		}
		if c.Power == nil || c.Link == nil || c.Logger == nil {
			t.Error("expected no-op collaborators and default logger")
		}
	})

	t.Run("CESQ keeps zero ceiling", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c, err := modem.NewConfigBuilder().
			WithDialer(modem.NewMockDialer(ctrl)).
			WithAPN("internet").
			WithRSSI(modem.RSSICESQ, 0).
			Build()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.RSSICeiling != 0 {
			t.Errorf("expected ceiling 0, got %d", c.RSSICeiling)
		}
	})
}
