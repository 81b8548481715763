package models

import "time"

// Status is the coarse health of a component.
type Status string

const (
	StatusOK       Status = "OK"
	StatusDegraded Status = "DEGRADED"
	StatusFail     Status = "FAIL"
)

func (s Status) severity() int {
	switch s {
	case StatusOK:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns the less healthy of s and o.
func (s Status) Worse(o Status) Status {
	if o.severity() > s.severity() {
		return o
	}
	return s
}

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status    Status            `json:"status"`
	Version   string            `json:"version,omitempty"`
	BuildTime string            `json:"buildTime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	Time      time.Time         `json:"time"`
}

// SystemStatus is the admin view of every dependency.
type SystemStatus struct {
	Status                 Status       `json:"status"`
	Time                   time.Time    `json:"time"`
	Subsystems             []Dependency `json:"subsystems"`
	Providers              []Dependency `json:"providers"`
	ActiveDegradationFlags []string     `json:"activeDegradationFlags"`
}

// Dependency describes a backing store or an outbound provider. Circuit
// fields are only set for providers.
type Dependency struct {
	Name                string     `json:"name"`
	Status              Status     `json:"status"`
	Circuit             string     `json:"circuit,omitempty"`
	ConsecutiveFailures uint32     `json:"consecutiveFailures,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	Detail              string     `json:"detail,omitempty"`
}
