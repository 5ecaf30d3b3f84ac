package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"field-capture-ingest/internal/deviceconfig/domain"
	"field-capture-ingest/internal/platform/httperr"
)

// Service is the device configuration API the handler needs.
type Service interface {
	Create(ctx context.Context, d *domain.DeviceConfiguration) (*domain.DeviceConfiguration, bool, error)
	Get(ctx context.Context, id string) (*domain.DeviceConfiguration, error)
	List(ctx context.Context) ([]*domain.DeviceConfiguration, error)
}

// Handler serves /device-configurations.
type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/device-configurations", h.Create)
	r.Get("/device-configurations", h.List)
	r.Get("/device-configurations/:device_configuration_id", h.Get)
}

type createRequest struct {
	ID               string     `json:"id" validate:"required,uuid"`
	DeviceIdentifier string     `json:"device_identifier" validate:"required"`
	Brand            string     `json:"brand" validate:"required"`
	Model            string     `json:"model" validate:"required"`
	Device           string     `json:"device" validate:"required"`
	Serial           string     `json:"serial"`
	Hardware         string     `json:"hardware" validate:"required"`
	Manufacturer     string     `json:"manufacturer" validate:"required"`
	AppBuild         string     `json:"app_build" validate:"required"`
	AppVersion       string     `json:"app_version" validate:"required"`
	OSVersion        string     `json:"os_version" validate:"required"`
	SDKVersion       string     `json:"sdk_version" validate:"required"`
	LoggedAt         *time.Time `json:"logged_at" validate:"required"`
}

type response struct {
	ID               string    `json:"id"`
	DeviceIdentifier string    `json:"device_identifier"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	Device           string    `json:"device"`
	Serial           string    `json:"serial"`
	Hardware         string    `json:"hardware"`
	Manufacturer     string    `json:"manufacturer"`
	AppBuild         string    `json:"app_build"`
	AppVersion       string    `json:"app_version"`
	OSVersion        string    `json:"os_version"`
	SDKVersion       string    `json:"sdk_version"`
	LoggedAt         time.Time `json:"logged_at"`
	CreatedAt        time.Time `json:"created_at"`
}

func toResponse(d *domain.DeviceConfiguration) response {
	return response{
		ID:               d.ID,
		DeviceIdentifier: d.DeviceIdentifier,
		Brand:            d.Brand,
		Model:            d.Model,
		Device:           d.Device,
		Serial:           d.Serial,
		Hardware:         d.Hardware,
		Manufacturer:     d.Manufacturer,
		AppBuild:         d.AppBuild,
		AppVersion:       d.AppVersion,
		OSVersion:        d.OSVersion,
		SDKVersion:       d.SDKVersion,
		LoggedAt:         d.LoggedAt,
		CreatedAt:        d.CreatedAt,
	}
}

// Create registers a device configuration: 201 when new, 200 with the stored record otherwise.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := httperr.ParseBody(c, &req); err != nil {
		return err
	}
	stored, created, err := h.svc.Create(c.UserContext(), &domain.DeviceConfiguration{
		ID:               req.ID,
		DeviceIdentifier: req.DeviceIdentifier,
		Brand:            req.Brand,
		Model:            req.Model,
		Device:           req.Device,
		Serial:           req.Serial,
		Hardware:         req.Hardware,
		Manufacturer:     req.Manufacturer,
		AppBuild:         req.AppBuild,
		AppVersion:       req.AppVersion,
		OSVersion:        req.OSVersion,
		SDKVersion:       req.SDKVersion,
		LoggedAt:         *req.LoggedAt,
	})
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(toResponse(stored))
}

// List returns every registered configuration as a JSON array.
func (h *Handler) List(c *fiber.Ctx) error {
	all, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]response, len(all))
	for i, d := range all {
		out[i] = toResponse(d)
	}
	return c.JSON(out)
}

// Get returns one configuration, or an empty object when the id is unknown.
func (h *Handler) Get(c *fiber.Ctx) error {
	id := utils.CopyString(c.Params("device_configuration_id"))
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q must be a valid GUID", httperr.ErrValidation, "device_configuration_id")
	}
	d, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if d == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(toResponse(d))
}
