// Package handler serves the raw capture HTTP API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"field-capture-ingest/internal/capture/domain"
	"field-capture-ingest/internal/capture/service"
	"field-capture-ingest/internal/platform/httperr"
)

// Service is the ingestion API the handler needs.
type Service interface {
	Submit(ctx context.Context, sub *domain.Submission) (*service.Result, error)
	List(ctx context.Context, f service.ListFilter) ([]*domain.Capture, error)
}

// Handler serves POST and GET /raw-captures.
type Handler struct {
	svc Service
	log *zap.Logger
}

// NewHandler returns a Handler. log may be nil.
func NewHandler(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Register mounts the routes on r.
func (h *Handler) Register(r fiber.Router) {
	r.Post("/raw-captures", h.Create)
	r.Get("/raw-captures", h.List)
}

type extraAttribute struct {
	Key   string  `json:"key" validate:"required"`
	Value *string `json:"value" validate:"required"`
}

type createRequest struct {
	ID              string           `json:"id" validate:"required,uuid"`
	SessionID       string           `json:"session_id" validate:"required,uuid"`
	Lat             *float64         `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon             *float64         `json:"lon" validate:"required,gte=-180,lte=180"`
	ImageURL        string           `json:"image_url" validate:"required,uri"`
	GPSAccuracy     *int             `json:"gps_accuracy" validate:"required"`
	AbsStepCount    *int             `json:"abs_step_count" validate:"required"`
	DeltaStepCount  *int             `json:"delta_step_count" validate:"required"`
	RotationMatrix  []int            `json:"rotation_matrix" validate:"required"`
	Note            *string          `json:"note"`
	ExtraAttributes []extraAttribute `json:"extra_attributes" validate:"omitempty,dive"`
	CaptureTakenAt  *time.Time       `json:"capture_taken_at" validate:"required"`
}

func (r *createRequest) submission() *domain.Submission {
	sub := &domain.Submission{
		ID:             r.ID,
		SessionID:      r.SessionID,
		ImageURL:       r.ImageURL,
		Lat:            *r.Lat,
		Lon:            *r.Lon,
		GPSAccuracy:    *r.GPSAccuracy,
		AbsStepCount:   *r.AbsStepCount,
		DeltaStepCount: *r.DeltaStepCount,
		RotationMatrix: r.RotationMatrix,
		CapturedAt:     *r.CaptureTakenAt,
	}
	if r.Note != nil {
		sub.Note = *r.Note
	}
	for _, a := range r.ExtraAttributes {
		sub.ExtraAttributes = append(sub.ExtraAttributes, domain.ExtraAttribute{Key: a.Key, Value: *a.Value})
	}
	return sub
}

type attributeResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type captureResponse struct {
	ID              string              `json:"id"`
	ReferenceID     int64               `json:"reference_id"`
	SessionID       string              `json:"session_id"`
	ImageURL        string              `json:"image_url"`
	Lat             float64             `json:"lat"`
	Lon             float64             `json:"lon"`
	GPSAccuracy     int                 `json:"gps_accuracy"`
	AbsStepCount    int                 `json:"abs_step_count"`
	DeltaStepCount  int                 `json:"delta_step_count"`
	RotationMatrix  []int               `json:"rotation_matrix"`
	Note            string              `json:"note"`
	ExtraAttributes []attributeResponse `json:"extra_attributes"`
	CapturedAt      time.Time           `json:"captured_at"`
	CreatedAt       time.Time           `json:"created_at"`
}

func toResponse(c *domain.Capture) captureResponse {
	attrs := make([]attributeResponse, len(c.ExtraAttributes))
	for i, a := range c.ExtraAttributes {
		attrs[i] = attributeResponse{Key: a.Key, Value: a.Value}
	}
	matrix := c.RotationMatrix
	if matrix == nil {
		matrix = []int{}
	}
	return captureResponse{
		ID:              c.ID,
		ReferenceID:     c.ReferenceID,
		SessionID:       c.SessionID,
		ImageURL:        c.ImageURL,
		Lat:             c.Lat,
		Lon:             c.Lon,
		GPSAccuracy:     c.GPSAccuracy,
		AbsStepCount:    c.AbsStepCount,
		DeltaStepCount:  c.DeltaStepCount,
		RotationMatrix:  matrix,
		Note:            c.Note,
		ExtraAttributes: attrs,
		CapturedAt:      c.CapturedAt,
		CreatedAt:       c.CreatedAt,
	}
}

// Create ingests one capture: 201 when stored now, 200 when the id was already ingested.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := httperr.ParseBody(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Submit(c.UserContext(), req.submission())
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			return httperr.Wrap(fiber.StatusConflict, fmt.Sprintf("capture %s is being created by another request, retry", req.ID), err)
		}
		return err
	}
	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(toResponse(res.Capture))
}

type listQuery struct {
	SessionID   string `query:"session_id" json:"session_id" validate:"omitempty,uuid"`
	ReferenceID int64  `query:"reference_id" json:"reference_id" validate:"gte=0"`
	Limit       int    `query:"limit" json:"limit" validate:"gte=0"`
	Offset      int    `query:"offset" json:"offset" validate:"gte=0"`
}

type listResponse struct {
	RawCaptures []captureResponse `json:"raw_captures"`
}

// List returns stored captures filtered by session_id and reference_id, paged by limit and offset.
func (h *Handler) List(c *fiber.Ctx) error {
	var q listQuery
	if err := c.QueryParser(&q); err != nil {
		return fmt.Errorf("%w: malformed query: %w", httperr.ErrValidation, err)
	}
	if err := httperr.Validate(q); err != nil {
		return err
	}
	captures, err := h.svc.List(c.UserContext(), service.ListFilter{
		SessionID:   utils.CopyString(q.SessionID),
		ReferenceID: q.ReferenceID,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if err != nil {
		return err
	}
	out := listResponse{RawCaptures: make([]captureResponse, len(captures))}
	for i, rc := range captures {
		out.RawCaptures[i] = toResponse(rc)
	}
	return c.JSON(out)
}
