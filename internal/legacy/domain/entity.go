package domain

import (
	"strconv"
	"strings"
	"time"

	capturedomain "field-capture-ingest/internal/capture/domain"
	sessiondomain "field-capture-ingest/internal/sourcesession/domain"
)

// Entity is the legacy-store record derived from a new capture. ID is assigned by the legacy store.
type Entity struct {
	ID               int64
	UUID             string
	SessionID        string
	DeviceIdentifier string
	GrowerAccountID  string
	OrganizationID   string
	ImageURL         string
	Lat              float64
	Lon              float64
	GPSAccuracy      int
	Note             string
	TimeCreated      time.Time
	TimeUpdated      time.Time
}

// Attribute is one ordered key/value pair attached to an Entity.
type Attribute struct {
	EntityID int64
	Position int
	Key      string
	Value    string
}

// Input merges everything the legacy entity is derived from. Source may be nil when the capture
// references no known session.
type Input struct {
	Capture    *capturedomain.Submission
	Source     *sessiondomain.Session
	Attributes []capturedomain.ExtraAttribute
}

// Build derives the legacy entity and its ordered attributes from in. It performs no I/O.
//
// Capture fields win over source-session fields: the entity's UUID, session id, and creation
// time come from the capture even when the source session carries its own id and timestamp.
// The source session only contributes fields the capture does not have.
func Build(in Input, now time.Time) (*Entity, []Attribute) {
	sub := in.Capture
	e := &Entity{
		UUID:        sub.ID,
		SessionID:   sub.SessionID,
		ImageURL:    sub.ImageURL,
		Lat:         sub.Lat,
		Lon:         sub.Lon,
		GPSAccuracy: sub.GPSAccuracy,
		Note:        sub.Note,
		TimeCreated: sub.CapturedAt.UTC(),
		TimeUpdated: now.UTC(),
	}
	if src := in.Source; src != nil {
		if e.SessionID == "" {
			e.SessionID = src.ID
		}
		e.DeviceIdentifier = src.DeviceConfigurationID
		e.GrowerAccountID = src.GrowerAccountID
		e.OrganizationID = src.OrganizationID
	}

	attrs := []Attribute{
		{Key: "abs_step_count", Value: strconv.Itoa(sub.AbsStepCount)},
		{Key: "delta_step_count", Value: strconv.Itoa(sub.DeltaStepCount)},
		{Key: "rotation_matrix", Value: joinInts(sub.RotationMatrix)},
	}
	for _, a := range in.Attributes {
		attrs = append(attrs, Attribute{Key: a.Key, Value: a.Value})
	}
	for i := range attrs {
		attrs[i].Position = i
	}
	return e, attrs
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
