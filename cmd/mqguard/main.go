// Command mqguard is the diagnostic supervisor's CLI front-end: it parses
// flags, loads the configuration file, wires brokers, guards and reporters
// together, and runs until a shutdown signal arrives. Grounded in the
// teacher's cmd/gateway/main.go (flag parsing, zap setup, signal-driven
// graceful shutdown).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mqguard/internal/applog"
	"mqguard/internal/broker"
	"mqguard/internal/config"
	"mqguard/internal/metrics"
	"mqguard/internal/registry"
	"mqguard/internal/reporting"
	"mqguard/internal/streaming"
)

const version = "0.1.0"

func main() {
	var (
		configPath string
		verbose    bool
		showVer    bool
	)
	flag.StringVar(&configPath, "c", "/etc/mqguard.conf", "path to configuration file")
	flag.StringVar(&configPath, "config", "/etc/mqguard.conf", "path to configuration file")
	flag.BoolVar(&verbose, "v", false, "enable verbose (debug) logging")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose (debug) logging")
	flag.BoolVar(&showVer, "version", false, "print version and exit")
	flag.Parse()

	if showVer {
		fmt.Println("mqguard " + version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := applog.New("info", verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("mqguard exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	metricsRegistry := metrics.New(prometheus.DefaultRegisterer)

	mgr := reporting.NewReportingManager(logger)
	reg := registry.NewDeviceRegistry(mgr)
	reg.SetMetrics(metricsRegistry)

	for _, d := range cfg.Devices {
		reg.AddGuardedDevice(d.Name, d.Guard)
	}

	brokerInfos := make([]streaming.BrokerInfo, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		brokerInfos = append(brokerInfos, streaming.BrokerInfo{Name: b.Name, Host: b.Host, Port: b.Port})
	}

	var metricsHandlerAddr string
	for _, spec := range cfg.Reporters {
		switch spec.Type {
		case "print":
			mgr.AddReporter(reporting.NewPrintReporter())
		case "log":
			mgr.AddReporter(reporting.NewLogReporter(spec.LogFile))
		case "socket":
			addr := fmt.Sprintf("%s:%d", spec.ListenAddress, spec.ListenPort)
			mgr.AddReporter(streaming.NewSocketReporter(addr, brokerInfos, logger, metricsRegistry))
		case "websocket":
			addr := fmt.Sprintf("%s:%d", spec.ListenAddress, spec.ListenPort)
			mgr.AddReporter(streaming.NewWebSocketReporter(addr, brokerInfos, logger, metricsRegistry))
		case "metrics":
			metricsHandlerAddr = fmt.Sprintf("%s:%d", spec.ListenAddress, spec.ListenPort)
		}
	}

	mgr.InjectDeviceRegistry(reg)
	mgr.Start()
	defer mgr.Stop()

	if metricsHandlerAddr != "" {
		go serveMetrics(metricsHandlerAddr, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, shutting down gracefully")
		cancel()
	}()

	go reg.Run()
	defer reg.Stop()

	checker := registry.NewPeriodicChecker(reg, 0)
	checker.Start()
	defer checker.Stop()

	clients := make([]broker.Client, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		client, err := broker.New(b, logger)
		if err != nil {
			return err
		}
		clients = append(clients, client)
	}
	for _, client := range clients {
		c := client
		go func() {
			if err := c.Run(ctx, reg.OnMessage); err != nil {
				logger.Error("broker subscriber exited", zap.String("broker", c.Name()), zap.Error(err))
			}
		}()
	}

	logger.Info("mqguard started",
		zap.Int("brokers", len(cfg.Brokers)),
		zap.Int("devices", len(cfg.Devices)),
		zap.Int("reporters", len(cfg.Reporters)))

	<-ctx.Done()
	logger.Info("mqguard shutdown complete")
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint failed", zap.String("addr", addr), zap.Error(err))
	}
}
