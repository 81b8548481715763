// Package handler provides HTTP handlers for the HitchPath API.
package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
	"github.com/hitchpath/hitchpath/internal/featureflags"
	"github.com/hitchpath/hitchpath/internal/provider/resilience"
)

const readyTimeout = 2 * time.Second

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DegradationFlags lists features that are currently switched off.
type DegradationFlags interface {
	ChatbotDisabled(ctx context.Context) bool
	ResumeAIDisabled(ctx context.Context) bool
}

// OpsConfig wires an OpsHandler. Every dependency is optional.
type OpsConfig struct {
	Version   string
	BuildTime string
	Database  Pinger
	Registry  *resilience.Registry
	Flags     DegradationFlags
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /ops/health. It never touches dependencies.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.StatusOK,
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
		Time:      time.Now().UTC(),
	})
}

// ReadinessCheck handles GET /ops/ready. It fails while the database is
// unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	db := h.database(r.Context())
	health := models.Health{
		Status: db.Status,
		Checks: map[string]string{db.Name: string(db.Status)},
		Time:   time.Now().UTC(),
	}
	code := http.StatusOK
	if db.Status != models.StatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /ops/status for admins.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:                 models.StatusOK,
		Time:                   time.Now().UTC(),
		Subsystems:             []models.Dependency{h.database(r.Context())},
		Providers:              h.providers(),
		ActiveDegradationFlags: h.degradations(r.Context()),
	}
	for _, d := range slices.Concat(status.Subsystems, status.Providers) {
		status.Status = status.Status.Worse(d.Status)
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) database(ctx context.Context) models.Dependency {
	d := models.Dependency{Name: "postgres", Status: models.StatusOK}
	if h.cfg.Database == nil {
		return d
	}
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := h.cfg.Database.Ping(ctx); err != nil {
		d.Status = models.StatusFail
		d.Detail = err.Error()
	}
	return d
}

func (h *OpsHandler) providers() []models.Dependency {
	if h.cfg.Registry == nil {
		return []models.Dependency{}
	}
	snaps := h.cfg.Registry.Snapshots()
	out := make([]models.Dependency, 0, len(snaps))
	for _, s := range snaps {
		d := models.Dependency{
			Name:                s.Name,
			Status:              models.StatusOK,
			Circuit:             s.State.String(),
			ConsecutiveFailures: s.Counts.ConsecutiveFailures,
			LastSuccessAt:       timePtr(s.LastSuccess),
			LastFailureAt:       timePtr(s.LastFailure),
			Detail:              s.LastError,
		}
		switch {
		case s.Open():
			d.Status = models.StatusFail
		case s.Probing():
			d.Status = models.StatusDegraded
		}
		out = append(out, d)
	}
	return out
}

func (h *OpsHandler) degradations(ctx context.Context) []string {
	active := []string{}
	if h.cfg.Flags == nil {
		return active
	}
	if h.cfg.Flags.ChatbotDisabled(ctx) {
		active = append(active, featureflags.FlagDisableChatbot)
	}
	if h.cfg.Flags.ResumeAIDisabled(ctx) {
		active = append(active, featureflags.FlagDisableResumeAI)
	}
	return active
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
