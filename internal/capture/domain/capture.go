package domain

import (
	"encoding/json"
	"time"
)

// ExtraAttribute is a client-supplied key/value pair attached to a capture.
type ExtraAttribute struct {
	Key   string
	Value string
}

// Submission is a validated capture submission from a mobile client.
type Submission struct {
	ID              string
	SessionID       string
	ImageURL        string
	Lat             float64
	Lon             float64
	GPSAccuracy     int
	AbsStepCount    int
	DeltaStepCount  int
	RotationMatrix  []int
	Note            string
	ExtraAttributes []ExtraAttribute
	CapturedAt      time.Time
}

// Capture is the primary record of one field observation. ID is supplied by the client and is the
// idempotency key for retried submissions.
type Capture struct {
	ID              string
	ReferenceID     int64
	SessionID       string
	ImageURL        string
	Lat             float64
	Lon             float64
	GPSAccuracy     int
	AbsStepCount    int
	DeltaStepCount  int
	RotationMatrix  []int
	Note            string
	ExtraAttributes []ExtraAttribute
	CapturedAt      time.Time
	CreatedAt       time.Time
}

// BuildCapture returns the Capture for sub referencing the legacy entity referenceID.
func BuildCapture(referenceID int64, sub *Submission, now time.Time) *Capture {
	return &Capture{
		ID:              sub.ID,
		ReferenceID:     referenceID,
		SessionID:       sub.SessionID,
		ImageURL:        sub.ImageURL,
		Lat:             sub.Lat,
		Lon:             sub.Lon,
		GPSAccuracy:     sub.GPSAccuracy,
		AbsStepCount:    sub.AbsStepCount,
		DeltaStepCount:  sub.DeltaStepCount,
		RotationMatrix:  append([]int(nil), sub.RotationMatrix...),
		Note:            sub.Note,
		ExtraAttributes: append([]ExtraAttribute(nil), sub.ExtraAttributes...),
		CapturedAt:      sub.CapturedAt.UTC(),
		CreatedAt:       now.UTC(),
	}
}

// EventTypeCreated is the domain event type raised when a capture is stored.
const EventTypeCreated = "raw_capture.created"

type attributePayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type capturePayload struct {
	ID              string             `json:"id"`
	ReferenceID     int64              `json:"reference_id"`
	SessionID       string             `json:"session_id,omitempty"`
	ImageURL        string             `json:"image_url,omitempty"`
	Lat             float64            `json:"lat"`
	Lon             float64            `json:"lon"`
	GPSAccuracy     int                `json:"gps_accuracy"`
	AbsStepCount    int                `json:"abs_step_count"`
	DeltaStepCount  int                `json:"delta_step_count"`
	RotationMatrix  []int              `json:"rotation_matrix"`
	Note            string             `json:"note,omitempty"`
	ExtraAttributes []attributePayload `json:"extra_attributes"`
	CapturedAt      time.Time          `json:"captured_at"`
	CreatedAt       time.Time          `json:"created_at"`
}

// EventPayload returns the JSON snapshot published for c. The top-level "id" is the capture id;
// domain events are looked up by it.
func (c *Capture) EventPayload() (json.RawMessage, error) {
	attrs := make([]attributePayload, len(c.ExtraAttributes))
	for i, a := range c.ExtraAttributes {
		attrs[i] = attributePayload{Key: a.Key, Value: a.Value}
	}
	matrix := c.RotationMatrix
	if matrix == nil {
		matrix = []int{}
	}
	return json.Marshal(capturePayload{
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
	})
}
