package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	customlog "github.com/open-teleop/rover/pkg/log"
	"github.com/open-teleop/rover/services"
)

const yamlContentType = "application/x-yaml"

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.RoverConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.RoverConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(router fiber.Router, configService services.RoverConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	apiGroup := router.Group("/api/v1/config")
	apiGroup.Get("/rover", h.handleGetRoverConfig)
	apiGroup.Put("/rover", h.handleUpdateRoverConfig)

	h.logger.Infof("Registered rover configuration API endpoints under /api/v1/config")
}

// handleGetRoverConfig returns the saved configuration as YAML, secrets masked
func (h *ConfigHandler) handleGetRoverConfig(c *fiber.Ctx) error {
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to render rover config YAML: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to retrieve configuration: %v", err))
	}

	c.Set(fiber.HeaderContentType, yamlContentType)
	return c.Send(yamlData)
}

// handleUpdateRoverConfig validates and saves a new configuration document
func (h *ConfigHandler) handleUpdateRoverConfig(c *fiber.Ctx) error {
	switch ct := c.Get(fiber.HeaderContentType); ct {
	case "", yamlContentType, "application/yaml", "text/yaml", fiber.MIMETextPlain:
	default:
		h.logger.Warnf("Config update with unexpected Content-Type %q, parsing as YAML", ct)
	}

	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Request body cannot be empty.")
	}

	if err := h.configService.UpdateConfig(body); err != nil {
		if errors.Is(err, services.ErrInvalidConfig) {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Configuration update failed: %v", err))
		}
		h.logger.Errorf("Failed to update rover configuration: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Internal server error during configuration update: %v", err))
	}

	return c.JSON(fiber.Map{
		"message": "Rover configuration saved. Changes apply after restart.",
	})
}
