package models

import "github.com/breatheroute/aqdash/internal/airquality"

// LevelResponse is the classification of one PM2.5 reading.
type LevelResponse struct {
	PM25 float64 `json:"pm25"`
	airquality.Level
}

// StationLevel is a station's latest PM2.5 reading and category.
type StationLevel struct {
	StationID  string           `json:"stationId"`
	Name       string           `json:"name"`
	PM25       float64          `json:"pm25"`
	Level      airquality.Level `json:"level"`
	MeasuredAt Timestamp        `json:"measuredAt"`
	Measured   string           `json:"measured"`
	Age        string           `json:"age"`
}

// StationLevels lists station levels with the snapshot time.
type StationLevels struct {
	Items     []StationLevel `json:"items"`
	FetchedAt *Timestamp     `json:"fetchedAt,omitempty"`
}

// FormattedValue is the output of a format endpoint.
type FormattedValue struct {
	Input     int64  `json:"input"`
	Formatted string `json:"formatted"`
}

// NotificationRequest asks the server to show a banner on the dashboard.
type NotificationRequest struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Raw     bool   `json:"raw,omitempty"`
}

// Notification is a banner that was shown.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Raw       bool      `json:"raw"`
	ShownAt   Timestamp `json:"shownAt"`
	ExpiresAt Timestamp `json:"expiresAt"`
	Active    bool      `json:"active"`
}

// NotificationList is the recent notification history.
type NotificationList struct {
	Items []Notification `json:"items"`
}
