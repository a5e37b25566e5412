package ota

import (
	"bytes"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// HeaderFirmwareVersion carries the version of an uploaded image
const HeaderFirmwareVersion = "X-Firmware-Version"

type tokenRequest struct {
	Password string `json:"password"`
}

// TokenHandler serves POST /api/ota/token
func (s *OTAService) TokenHandler(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	token, expires, err := s.IssueToken(req.Password)
	if err != nil {
		return otaError(err)
	}
	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": expires,
	})
}

// UpdateHandler serves POST /api/ota/update. The body is the raw image.
func (s *OTAService) UpdateHandler(c *fiber.Ctx) error {
	auth := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}
	if err := s.VerifyToken(token); err != nil {
		return otaError(err)
	}

	version := c.Get(HeaderFirmwareVersion)
	if version == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing "+HeaderFirmwareVersion+" header")
	}
	force := c.QueryBool("force", false)

	body := c.Body()
	if err := s.Apply(c.UserContext(), version, force, bytes.NewReader(body), int64(len(body))); err != nil {
		return otaError(err)
	}
	return c.JSON(s.Status())
}

// StatusHandler serves GET /api/ota/status
func (s *OTAService) StatusHandler(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

func otaError(err error) error {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrVersionRejected):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrUpdateInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrImageTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
