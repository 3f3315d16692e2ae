package dto

import "time"

type StartSessionRequest struct {
	OrderID string `json:"order_id"`
}

type LocationPingRequest struct {
	Lat            *float64   `json:"lat"`
	Lng            *float64   `json:"lng"`
	AccuracyM      *float64   `json:"accuracy_m,omitempty"`
	SpeedKmh       *float64   `json:"speed_kmh,omitempty"`
	HeadingDegrees *float64   `json:"heading_degrees,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}
