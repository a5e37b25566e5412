package teleop

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/open-teleop/rover/domain/command"
	customlog "github.com/open-teleop/rover/pkg/log"
	"github.com/open-teleop/rover/pkg/processing"
)

const (
	commandParam   = "cmd"
	commandTimeout = 2 * time.Second
)

// EventProcessor applies an event and reports the handler's verdict
type EventProcessor interface {
	Process(ctx context.Context, ev *processing.Event) error
}

// TeleopService handles the request-style command surface
type TeleopService struct {
	loop   EventProcessor
	logger customlog.Logger
}

// NewTeleopService creates a new teleop service instance
func NewTeleopService(loop EventProcessor, logger customlog.Logger) *TeleopService {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &TeleopService{
		loop:   loop,
		logger: logger.WithField("component", "teleop"),
	}
}

// CommandHandler serves GET /control?cmd=<tag>. It answers with a plain-text
// "OK" once the command has been applied and "Bad Request" when the tag is
// missing or not understood.
func (s *TeleopService) CommandHandler(c *fiber.Ctx) error {
	if !c.Context().QueryArgs().Has(commandParam) {
		s.logger.Debugf("Control request without %s parameter from %s", commandParam, c.IP())
		return c.Status(fiber.StatusBadRequest).SendString("Bad Request")
	}

	tag := c.Query(commandParam)
	err := s.SendCommand(c.UserContext(), tag)
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).SendString("OK")
	case errors.Is(err, command.ErrMalformed), errors.Is(err, command.ErrUnknownCommand):
		s.logger.Debugf("Rejected control tag %q: %v", tag, err)
		return c.Status(fiber.StatusBadRequest).SendString("Bad Request")
	default:
		s.logger.Errorf("Failed to apply control tag %q: %v", tag, err)
		return c.Status(fiber.StatusServiceUnavailable).SendString("Service Unavailable")
	}
}

// SendCommand submits a request-style tag to the control loop and waits for
// it to be applied.
func (s *TeleopService) SendCommand(ctx context.Context, tag string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return s.loop.Process(ctx, processing.NewEvent(processing.EventRequest, "", []byte(tag)))
}
