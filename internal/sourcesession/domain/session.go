package domain

import "time"

// Session is a pre-existing field session a capture may belong to. It is read-only to the
// ingestion workflow and supplies supplementary fields for the legacy entity.
type Session struct {
	ID                    string
	DeviceConfigurationID string
	GrowerAccountID       string
	OrganizationID        string
	CreatedAt             time.Time
}
