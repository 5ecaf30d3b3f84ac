package domain

import "time"

// DeviceConfiguration describes the hardware and app build a capture device reported.
// ID is supplied by the device and makes registration idempotent.
type DeviceConfiguration struct {
	ID               string
	DeviceIdentifier string
	Brand            string
	Model            string
	Device           string
	Serial           string
	Hardware         string
	Manufacturer     string
	AppBuild         string
	AppVersion       string
	OSVersion        string
	SDKVersion       string
	LoggedAt         time.Time
	CreatedAt        time.Time
}
