package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/open-teleop/rover/domain/audio"
	"github.com/open-teleop/rover/domain/command"
	"github.com/open-teleop/rover/domain/diagnostic"
	"github.com/open-teleop/rover/domain/drive"
	"github.com/open-teleop/rover/domain/network"
	"github.com/open-teleop/rover/domain/ota"
	"github.com/open-teleop/rover/domain/teleop"
	"github.com/open-teleop/rover/pkg/api"
	"github.com/open-teleop/rover/pkg/config"
	"github.com/open-teleop/rover/pkg/dfplayer"
	"github.com/open-teleop/rover/pkg/journal"
	customlog "github.com/open-teleop/rover/pkg/log"
	"github.com/open-teleop/rover/pkg/motordriver"
	"github.com/open-teleop/rover/pkg/processing"
	"github.com/open-teleop/rover/pkg/zeromq"
	"github.com/open-teleop/rover/services"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configDir := flag.String("config-dir", "./config", "Directory containing "+config.BootstrapFileName)
	flag.Parse()

	cfg, err := config.LoadBootstrapConfig(*configDir)
	if err != nil {
		stdlog.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	logger, err := customlog.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.LogPath, customlog.Rotation{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		stdlog.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}

	logger.Infof("Rover %s starting (config version %s, firmware %s)", cfg.RobotID, cfg.Version, cfg.OTA.FirmwareVersion)

	if err := run(cfg, filepath.Join(*configDir, config.BootstrapFileName), logger); err != nil {
		logger.Fatalf("Rover stopped: %v", err)
	}
	logger.Infof("Rover exited properly")
}

func run(cfg *config.Config, configPath string, logger customlog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drive. Nothing is served until the motor driver is up.
	actuator, closeActuator, err := newActuator(cfg.Drive)
	if err != nil {
		return fmt.Errorf("motor driver: %w", err)
	}
	defer closeActuator()

	ctrl := drive.NewController(actuator, logger)
	if err := ctrl.Begin(); err != nil {
		return err
	}
	ctrl.SetSpeed(cfg.Drive.DefaultSpeed)
	logger.Infof("Drive ready (%s driver, base speed %d)", cfg.Drive.Driver, ctrl.CurrentSpeed())

	// Journal
	var journalStore *journal.Journal
	if cfg.Journal.Path != "" {
		journalStore, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer journalStore.Close()
		logger.Infof("Journal opened at %s", cfg.Journal.Path)
	}

	// Control loop
	hub := api.NewHub()
	routerOpts := command.Options{StopRepeatPause: cfg.Drive.StopRepeatPause}
	if journalStore != nil {
		routerOpts.Journal = journalStore
	}
	router := command.NewRouter(ctrl, hub, logger, routerOpts)

	loop := processing.NewEventLoop("control", cfg.Processing.QueueSize, logger)
	loop.SetHandler(router.Handle)

	// Network
	netManager := network.NewManager(network.NewHostRadio(cfg.Network.Interface, logger), cfg.Network, logger)
	if err := netManager.Begin(ctx); err != nil {
		logger.Errorf("Network link not established: %v", err)
	} else {
		logger.Infof("Network up (%s) at %s", netManager.Mode(), netManager.Address())
	}

	// Audio
	var player audio.Player
	if cfg.Audio.Enabled {
		p, err := dfplayer.Open(cfg.Audio.SerialPort, cfg.Audio.BaudRate)
		if err != nil {
			logger.Warnf("Sound module unavailable: %v", err)
		} else {
			defer p.Close()
			player = p
		}
	}
	audioService := audio.NewAudioService(player, cfg.Audio, logger)
	if err := audioService.Begin(); err != nil {
		logger.Warnf("Audio disabled: %v", err)
	}

	// OTA
	var otaService *ota.OTAService
	if cfg.OTA.Enabled {
		otaService, err = ota.NewOTAService(cfg.OTA, otaCallbacks(loop, journalStore, logger), logger)
		if err != nil {
			return err
		}
	}

	// Diagnostics
	sources := diagnostic.Sources{
		Connections: hub,
		Network:     netManager,
		Loop:        loop,
	}
	if otaService != nil {
		sources.Firmware = otaService
		sources.Update = func() interface{} { return otaService.Status() }
	}
	diagnostics := diagnostic.NewDiagnosticService(cfg.RobotID, sources)

	// Configuration
	configService, err := services.NewRoverConfigService(configPath, cfg, logger)
	if err != nil {
		return err
	}

	// Telemetry
	var publisher processing.StatePublisher
	if cfg.Telemetry.Enabled {
		zmqService, err := zeromq.NewZeroMQService(cfg.Telemetry, logger)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		configPublisher := zeromq.RegisterHandlers(zmqService,
			func() interface{} { return diagnostics.GetStatus() },
			func() interface{} { return configService.GetCurrentConfig().Redacted() },
		)
		configService.SetPublisher(configPublisher)
		publisher = zeromq.NewDriveStatePublisher(zmqService, logger)

		if err := zmqService.Start(); err != nil {
			return err
		}
		defer zmqService.Stop()
	}

	resultHandler := processing.NewLoggingResultHandler(logger, ctrl.State, publisher, diagnostics)
	loop.SetResultHandler(resultHandler.CreateHandlerFunc())
	loop.Start()

	// HTTP
	control := api.ControlWebSocketHandler(hub, loop, logger)

	app := api.NewApp("Rover", cfg.Server)
	api.RegisterRoutes(app, api.Services{
		Teleop:      teleop.NewTeleopService(loop, logger),
		Diagnostics: diagnostics,
		Audio:       audioService,
		OTA:         otaService,
		Config:      configService,
		Network:     netManager,
		Journal:     journalReader(journalStore),
		Control:     control,
		StaticDir:   cfg.Server.StaticDir,
	}, logger)

	wsApp := api.NewApp("Rover control", cfg.Server)
	api.RegisterControlApp(wsApp, control)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + strconv.Itoa(cfg.Server.HTTPPort)
		logger.Infof("HTTP server starting on %s", addr)
		return app.Listen(addr)
	})
	g.Go(func() error {
		addr := ":" + strconv.Itoa(cfg.Server.WebSocketPort)
		logger.Infof("WebSocket server starting on %s", addr)
		return wsApp.Listen(addr)
	})
	g.Go(func() error {
		return netManager.Supervise(gctx, cfg.Network.CheckInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("Shutting down servers...")
		shutdown(app, logger)
		shutdown(wsApp, logger)
		return nil
	})

	err = g.Wait()

	// Servers are down, so no new events arrive. Halt, drain and stop.
	if haltErr := loop.Process(context.Background(), processing.NewEvent(processing.EventHalt, "", []byte("shutdown"))); haltErr != nil {
		logger.Warnf("Shutdown halt not applied: %v", haltErr)
	}
	loop.Stop()
	ctrl.Stop()
	logger.Infof("Drive stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newActuator(cfg config.DriveConfig) (drive.Actuator, func(), error) {
	switch cfg.Driver {
	case config.DriverSerial:
		d, err := motordriver.Open(cfg.SerialPort, cfg.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		return d, func() { d.Close() }, nil
	default:
		return drive.NewSimulatedActuator(), func() {}, nil
	}
}

// otaCallbacks halts the drive through the control loop before an image is
// written and journals the update's progress
func otaCallbacks(loop *processing.EventLoop, j *journal.Journal, logger customlog.Logger) ota.Callbacks {
	record := func(kind, detail string) {
		if j == nil {
			return
		}
		if err := j.Record(kind, "", detail); err != nil {
			logger.Warnf("Failed to journal %s: %v", kind, err)
		}
	}
	return ota.Callbacks{
		OnStart: func(ctx context.Context, version string) error {
			record("ota_start", version)
			return loop.Process(ctx, processing.NewEvent(processing.EventHalt, "", []byte("firmware update")))
		},
		OnError: func(err error) {
			record("ota_error", err.Error())
		},
		OnEnd: func(version string) {
			record("ota_end", version)
		},
	}
}

// journalReader avoids handing the routes a typed nil
func journalReader(j *journal.Journal) api.JournalReader {
	if j == nil {
		return nil
	}
	return j
}

func shutdown(app *fiber.App, logger customlog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
}
