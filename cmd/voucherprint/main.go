// Command voucherprint runs the voucher receipt printing service: an
// authenticated REST API in front of the ESC/POS pipeline, with print
// history, webhook fan-out and multi-transport printer discovery.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/pretyflaco/voucherprint/internal/api"
	"github.com/pretyflaco/voucherprint/internal/api/middleware"
	"github.com/pretyflaco/voucherprint/internal/config"
	"github.com/pretyflaco/voucherprint/internal/history"
	"github.com/pretyflaco/voucherprint/internal/printing"
	"github.com/pretyflaco/voucherprint/internal/receipt"
	"github.com/pretyflaco/voucherprint/internal/transport"
	"github.com/pretyflaco/voucherprint/internal/voucher"
	"github.com/pretyflaco/voucherprint/internal/webhook"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		printPath  = flag.String("print", "", "print the voucher JSON file and exit")
	)
	flag.Parse()

	viper.SetEnvPrefix("VOUCHERPRINT")
	viper.AutomaticEnv()
	viper.SetDefault("CONFIG", "./config.yaml")

	path := *configPath
	if path == "" {
		path = viper.GetString("CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if port := viper.GetInt("PORT"); port != 0 {
		cfg.Server.Port = port
	}
	if level := viper.GetString("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	if err := run(cfg, logger, *printPath); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func run(cfg *config.Config, logger *slog.Logger, printPath string) error {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	composer := receipt.NewComposer(logger)
	if cfg.Printing.LogoPath != "" {
		if err := composer.PreloadLogo(cfg.Printing.LogoPath); err != nil {
			logger.Warn("logo preload failed, printing without it",
				"path", cfg.Printing.LogoPath, "error", err)
		}
	}

	manager := newManager(cfg.Transports, logger)
	svc := printing.NewService(composer, manager, printing.Config{
		RetryDelay:    cfg.Printing.RetryDelay,
		InterJobDelay: cfg.Printing.InterJobDelay,
		MaxRetries:    cfg.Printing.MaxRetries,
	}, logger)

	if printPath != "" {
		return printOnce(svc, cfg, printPath)
	}

	recorder := history.NewRecorder(store, logger)
	detach := recorder.Attach(svc)
	defer detach()

	pruner := history.NewPruner(store, cfg.History.RetentionDays, cfg.History.PruneInterval, logger)
	pruner.Start()
	defer pruner.Stop()

	sender := webhook.NewSender(store, webhook.Config{
		RetryCount:  cfg.Webhooks.RetryCount,
		RetryDelay:  cfg.Webhooks.RetryDelay,
		Timeout:     cfg.Webhooks.Timeout,
		WorkerCount: cfg.Webhooks.WorkerCount,
		QueueSize:   cfg.Webhooks.QueueSize,
	}, logger)
	sender.Start()
	defer sender.Stop()
	defer sender.Attach(svc)()

	auth, err := middleware.NewAuthMiddleware(store)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Service: svc,
		Manager: manager,
		Store:   store,
		Sender:  sender,
		Auth:    auth,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "platform", manager.Platform().OS)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newManager builds the transport stack from config. Every adapter is
// registered; the manager's availability probes decide which ones can
// actually be used on this host.
func newManager(cfg config.TransportsConfig, logger *slog.Logger) *transport.Manager {
	platform := pinnedPlatform(cfg.Platform)

	adapters := []transport.Adapter{
		transport.NewDeepLinkAdapter(transport.DeepLinkConfig{
			Scheme:          cfg.DeepLink.Scheme,
			AppStoreURL:     cfg.DeepLink.AppStoreURL,
			AlwaysAvailable: cfg.DeepLink.AlwaysAvailable,
		}, platform, logger),
		transport.NewSerialAdapter(transport.SerialConfig{
			Port:         cfg.Serial.Port,
			BaudRate:     cfg.Serial.BaudRate,
			ExtraVendors: cfg.Serial.ExtraVendors,
		}, logger),
		transport.NewUSBAdapter(transport.USBConfig{
			VendorID:  cfg.USB.VendorID,
			ProductID: cfg.USB.ProductID,
		}, logger),
		transport.NewNetworkAdapter(transport.NetworkConfig{
			Host:         cfg.Network.Host,
			Port:         cfg.Network.Port,
			DialTimeout:  cfg.Network.DialTimeout,
			WriteTimeout: cfg.Network.WriteTimeout,
		}, logger),
		transport.NewBluetoothAdapter(transport.BluetoothConfig{
			DeviceName:  cfg.Bluetooth.DeviceName,
			ChunkSize:   cfg.Bluetooth.ChunkSize,
			ScanTimeout: cfg.Bluetooth.ScanTimeout,
		}, logger),
		transport.NewDocumentAdapter(transport.DocumentConfig{
			Command:  cfg.Document.Command,
			SpoolDir: cfg.Document.SpoolDir,
		}, logger),
	}

	return transport.NewManagerForPlatform(platform, logger, adapters...)
}

func pinnedPlatform(pin string) transport.Platform {
	switch pin {
	case "mobile":
		return transport.Platform{OS: runtime.GOOS, Arch: runtime.GOARCH, Mobile: true}
	case "headless":
		return transport.Platform{OS: runtime.GOOS, Arch: runtime.GOARCH, Headless: true}
	case "desktop":
		return transport.Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
	default:
		return transport.DetectPlatform()
	}
}

// printOnce handles the -print flag: one voucher from a JSON file,
// straight to the best available transport, no server.
func printOnce(svc *printing.Service, cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read voucher file: %w", err)
	}
	var v voucher.Voucher
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("parse voucher file: %w", err)
	}

	opts := receipt.Options{
		PaperWidth: cfg.Printing.PaperWidth,
		HeaderText: cfg.Printing.HeaderText,
		FooterText: cfg.Printing.FooterText,
		ShowLogo:   cfg.Printing.LogoPath != "",
	}
	res := svc.PrintVoucher(context.Background(), v, opts)
	if !res.Success {
		return fmt.Errorf("print failed: %s", res.Error)
	}
	fmt.Printf("printed %s via %s\n", res.JobID, res.Adapter)
	return nil
}
