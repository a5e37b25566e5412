package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/open-teleop/rover/domain/audio"
	"github.com/open-teleop/rover/domain/diagnostic"
	"github.com/open-teleop/rover/domain/ota"
	"github.com/open-teleop/rover/domain/teleop"
	"github.com/open-teleop/rover/pkg/config"
	"github.com/open-teleop/rover/pkg/journal"
	customlog "github.com/open-teleop/rover/pkg/log"
	"github.com/open-teleop/rover/services"
)

const defaultJournalLimit = 50

// AddressReporter reports the rover's address on the wireless link
type AddressReporter interface {
	Address() string
	Mode() string
}

// JournalReader lists recent journal entries
type JournalReader interface {
	Recent(n int) ([]journal.Entry, error)
	RecentOfKind(kind string, n int) ([]journal.Entry, error)
}

// Services groups the handlers mounted on the HTTP server. Optional services
// may be nil; their routes are then not registered.
type Services struct {
	Teleop      *teleop.TeleopService
	Diagnostics *diagnostic.DiagnosticService
	Audio       *audio.AudioService
	OTA         *ota.OTAService
	Config      services.RoverConfigService
	Network     AddressReporter
	Journal     JournalReader
	Control     func(*websocket.Conn)
	StaticDir   string
}

// NewApp creates a fiber app with the rover's error handling and middleware
func NewApp(name string, cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		ErrorHandler:          ErrorHandler,
		ReadTimeout:           cfg.ReadTimeout,
		BodyLimit:             cfg.MaxUploadMB << 20,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	return app
}

// RegisterRoutes mounts every endpoint on the main HTTP app
func RegisterRoutes(app *fiber.App, svc Services, log customlog.Logger) {
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			// The control routes are hot; keep them out of the access log
			return c.Path() == "/control" || c.Path() == "/ws"
		},
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/index.html")
	})

	if svc.Teleop != nil {
		app.Get("/control", svc.Teleop.CommandHandler)
	}

	if svc.Control != nil {
		app.Use("/ws", UpgradeRequired)
		app.Get("/ws", websocket.New(svc.Control))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(HealthResponse{Status: "healthy"})
	})

	api := app.Group("/api")

	if svc.Network != nil {
		api.Get("/ip", func(c *fiber.Ctx) error {
			return c.JSON(IPResponse{IP: svc.Network.Address(), Mode: svc.Network.Mode()})
		})
	}

	if svc.Diagnostics != nil {
		api.Get("/diagnostics", svc.Diagnostics.GetMetricsHandler)
	}

	if svc.Journal != nil {
		api.Get("/journal", journalHandler(svc.Journal))
	}

	if svc.Audio != nil {
		// Registered before :role so "stop" is not taken for a role
		api.Post("/audio/stop", svc.Audio.StopHandler)
		api.Post("/audio/:role", svc.Audio.PlayHandler)
	}

	if svc.OTA != nil {
		otaGroup := api.Group("/ota")
		otaGroup.Post("/token", svc.OTA.TokenHandler)
		otaGroup.Post("/update", svc.OTA.UpdateHandler)
		otaGroup.Get("/status", svc.OTA.StatusHandler)
	}

	if svc.Config != nil {
		RegisterConfigRoutes(app, svc.Config, log)
	}

	if svc.StaticDir != "" {
		app.Static("/", svc.StaticDir)
	}

	app.Use(NotFoundHandler)
}

// RegisterControlApp mounts the control websocket at "/" on the dedicated
// websocket port
func RegisterControlApp(app *fiber.App, control func(*websocket.Conn)) {
	app.Use("/", UpgradeRequired)
	app.Get("/", websocket.New(control))
}

func journalHandler(j JournalReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultJournalLimit)
		if limit <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
		}

		var (
			entries []journal.Entry
			err     error
		)
		if kind := c.Query("kind"); kind != "" {
			entries, err = j.RecentOfKind(kind, limit)
		} else {
			entries, err = j.Recent(limit)
		}
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		return c.JSON(JournalResponse{Entries: entries})
	}
}

// NotFoundHandler describes the unmatched request as plain text
func NotFoundHandler(c *fiber.Ctx) error {
	var b strings.Builder
	b.WriteString("File Not Found\n\n")
	fmt.Fprintf(&b, "URI: %s\n", c.Path())
	fmt.Fprintf(&b, "Method: %s\n", c.Method())

	args := c.Context().QueryArgs()
	fmt.Fprintf(&b, "Arguments: %d\n", args.Len())
	args.VisitAll(func(key, value []byte) {
		fmt.Fprintf(&b, " %s: %s\n", key, value)
	})

	return c.Status(fiber.StatusNotFound).SendString(b.String())
}

// ErrorHandler renders errors as {"error": msg}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
