package models

// Health is the liveness and readiness body.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus is the detailed status body.
type SystemStatus struct {
	Status                 HealthStatus     `json:"status"`
	Time                   Timestamp        `json:"time"`
	Version                string           `json:"version"`
	BuildTime              string           `json:"buildTime"`
	Providers              []ProviderStatus `json:"providers"`
	Cache                  CacheStatus      `json:"cache"`
	Refresh                *RefreshStatus   `json:"refresh,omitempty"`
	ActiveDegradationFlags []string         `json:"activeDegradationFlags,omitempty"`
}

// ProviderStatus describes one upstream provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       string       `json:"message,omitempty"`
}

// CacheStatus describes the air-quality snapshot cache.
type CacheStatus struct {
	HasSnapshot  bool       `json:"hasSnapshot"`
	FetchedAt    *Timestamp `json:"fetchedAt,omitempty"`
	Age          string     `json:"age,omitempty"`
	StationCount int        `json:"stationCount"`
}

// RefreshStatus describes the background refresh job.
type RefreshStatus struct {
	Runs                int64      `json:"runs"`
	Failures            int64      `json:"failures"`
	ConsecutiveFailures int64      `json:"consecutiveFailures"`
	LastRunAt           *Timestamp `json:"lastRunAt,omitempty"`
	LastSuccessAt       *Timestamp `json:"lastSuccessAt,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
}
