package models

type AlertsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type StatusResponse struct {
	StreamConnected bool   `json:"stream_connected"`
	Session         string `json:"session"`
	Baselines       int    `json:"baselines"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}
