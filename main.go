package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"i4.energy/across/mgsm/gpio"
	"i4.energy/across/mgsm/gsmtty"
	"i4.energy/across/mgsm/modem"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Bool("trace", false, "Log all modem traffic at debug level")
	flag.String("apn", "", "Access point name of the PDP context")
	flag.String("operator", "", "Numeric operator for manual selection")
	flag.Bool("factory-reset", false, "Factory reset the modem before setup")
	flag.Bool("sim-numbers", false, "Query the IMSI with the modem identity")
	flag.Bool("cell-info", false, "Query cell location with every signal readout")
	flag.Bool("strict-registration", false, "Wait for network registration before attaching")
	flag.String("rssi-mode", "csq", "Signal query (csq, cesq)")
	flag.String("mux", "", "Enable CMUX for a modem family (generic, quectel, simcom)")
	flag.String("mux-dir", "/dev", "Directory holding the gsmtty device nodes")
	flag.String("gpio-chip", "", "GPIO chip for modem power control")
	flag.Int("power-key", 0, "GPIO line offset of the modem PWRKEY")
	flag.String("rails", "", "Comma separated GPIO line offsets of the supply enables")
	flag.String("link-up", "", "Command starting the PPP link")
	flag.String("link-enable", "", "Command re-enabling the PPP link")
	flag.String("link-disable", "", "Command disabling the PPP link")
	flag.String("link-down", "", "Command run once the PPP link is down")
	flag.Bool("autostart", true, "Start bring-up immediately")
	flag.Bool("cors", false, "Allow cross-origin requests to the API")
	flag.Duration("poll-period", 30*time.Second, "Signal poll interval on a multiplexed link")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	dialer := modem.SerialDialer{
		PortName: config.SerialPort,
		BaudRate: config.BaudRate,
	}
	if config.Trace {
		dialer.Trace = slog.NewLogLogger(logger.With("component", "trace").Handler(), slog.LevelDebug)
	}

	mode, err := rssiMode(config.RSSIMode)
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	builder := modem.NewConfigBuilder().
		WithDialer(dialer).
		WithLogger(logger).
		WithAPN(config.APN).
		WithManualOperator(config.Operator).
		WithFactoryReset(config.FactoryReset).
		WithSIMNumbers(config.SIMNumbers).
		WithCellInfo(config.CellInfo).
		WithStrictRegistration(config.StrictRegistration).
		WithRSSI(mode, 0).
		WithPollPeriod(config.PollPeriod).
		WithLink(&HookLink{
			Up:      config.LinkUp,
			Enable:  config.LinkEnable,
			Disable: config.LinkDisable,
			Down:    config.LinkDown,
			Logger:  logger.With("component", "link"),
		})

	if config.Mux != "" {
		variant, err := muxVariant(config.Mux)
		if err != nil {
			logger.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}
		builder.WithMux(gsmtty.New(gsmtty.Config{
			Dir:    config.MuxDir,
			Trace:  dialer.Trace,
			Logger: logger,
		}), variant).WithMuxSrvPort(variant == modem.MuxSIMCom)
	}

	if config.GPIOChip != "" {
		power, err := gpio.NewPowerController(gpio.Config{
			Chip:     config.GPIOChip,
			PowerKey: config.PowerKey,
			Rails:    config.Rails,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("Failed to set up power control", "error", err)
			os.Exit(1)
		}
		defer power.Close()
		builder.WithPower(power)
	}

	modemConfig, err := builder.Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	session, err := modem.New(context.Background(), modemConfig)
	if err != nil {
		logger.Error("Failed to create modem session", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := session.Loop(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Modem loop stopped", "error", err)
		}
	}()

	if config.Autostart {
		if err := session.Start(); err != nil {
			logger.Error("Failed to start modem", "error", err)
		}
	}

	var handler http.Handler = &Server{
		Logger:  logger.With("component", "server"),
		Session: session,
	}
	if config.CORS {
		handler = cors.AllowAll().Handler(handler)
	}
	httpServer := &http.Server{
		Addr:    config.BindAddress,
		Handler: handler,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Stopping modem")
	if err := session.Stop(ctx); err != nil && !errors.Is(err, modem.ErrAlreadyStopped) {
		logger.Error("Failed to stop modem", "error", err)
	}
	if err := session.Close(); err != nil {
		logger.Error("Failed to close modem", "error", err)
	}

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}
