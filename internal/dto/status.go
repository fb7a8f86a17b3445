package dto

type StatusDTO struct {
	App     AppStatusDTO     `json:"app"`
	Storage StorageStatusDTO `json:"storage"`
	Events  EventsStatusDTO  `json:"events"`
}

type AppStatusDTO struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	StartedAt  string `json:"started_at"`
	UptimeSec  int64  `json:"uptime_sec"`
	SafeMode   bool   `json:"safe_mode"`
	Timezone   string `json:"timezone"`
	ConfigPath string `json:"config_path,omitempty"`
}

type StorageStatusDTO struct {
	Driver         string `json:"driver"`
	DBPath         string `json:"db_path,omitempty"`
	SchemaVersion  int    `json:"schema_version"`
	SafeModeReason string `json:"safe_mode_reason,omitempty"`
}

type EventsStatusDTO struct {
	Subscribers int `json:"subscribers"`
}
