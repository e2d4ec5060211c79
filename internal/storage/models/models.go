package models

import "time"

// SettingsRevision is one saved version of the console settings.
type SettingsRevision struct {
	ID        int
	Payload   string
	CreatedAt time.Time
}

// ConnectionTest records the outcome of a settings "test connection" run.
type ConnectionTest struct {
	ID         int
	Service    string
	Success    bool
	Detail     string
	DurationMS int
	CreatedAt  time.Time
}
