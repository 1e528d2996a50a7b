package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is an optional dependency the probes check, e.g. redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LedgerStatus is what the probes ask the ledger store.
type LedgerStatus interface {
	Pinger
	CountAccounts(ctx context.Context) (int, error)
	// SchemaVersion reports the applied migration, 0 when the store has none.
	SchemaVersion(ctx context.Context) (version uint, dirty bool, err error)
}

type HealthHandler struct {
	ledger     LedgerStatus
	deps       map[string]Pinger
	wantSchema uint
	startTime  time.Time
	version    string
}

// NewHealthHandler builds the probes. wantSchema is the migration the binary
// ships with; 0 skips the schema check (memory backend).
func NewHealthHandler(version string, ledger LedgerStatus, wantSchema uint, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		ledger:     ledger,
		deps:       deps,
		wantSchema: wantSchema,
		startTime:  time.Now(),
		version:    version,
	}
}

type LedgerHealth struct {
	Status        string `json:"status"`
	SchemaVersion uint   `json:"schema_version"`
	SchemaWanted  uint   `json:"schema_wanted,omitempty"`
	Accounts      int    `json:"accounts"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Ledger    LedgerHealth      `json:"ledger"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// checkLedger pings the store and verifies its schema is the one this
// binary writes. A dirty or older schema is not ready.
func (h *HealthHandler) checkLedger(ctx context.Context) (LedgerHealth, error) {
	lh := LedgerHealth{Status: "unhealthy", SchemaWanted: h.wantSchema}
	if err := h.ledger.Ping(ctx); err != nil {
		return lh, err
	}

	v, dirty, err := h.ledger.SchemaVersion(ctx)
	if err != nil {
		return lh, err
	}
	lh.SchemaVersion = v
	switch {
	case dirty:
		return lh, fmt.Errorf("schema version %d is dirty", v)
	case h.wantSchema > 0 && v < h.wantSchema:
		return lh, fmt.Errorf("schema version %d, want %d", v, h.wantSchema)
	}

	if lh.Accounts, err = h.ledger.CountAccounts(ctx); err != nil {
		return lh, err
	}
	lh.Status = "healthy"
	return lh, nil
}

// Liveness returns simple alive status (for k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness reports the ledger and every dependency (for k8s readiness probe)
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	lh, err := h.checkLedger(ctx)
	if err != nil {
		checks["ledger"] = "unhealthy: " + err.Error()
		ready = false
	} else {
		checks["ledger"] = "healthy"
	}

	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			// redis is optional, everything that uses it fails open
			checks[name] = "degraded: " + err.Error()
		} else {
			checks[name] = "healthy"
		}
	}

	status, code := "healthy", http.StatusOK
	if !ready {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Ledger:    lh,
		Checks:    checks,
	})
}

// Health is the short form: ok only when the ledger can take writes.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	lh, err := h.checkLedger(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"version":        h.version,
		"schema_version": lh.SchemaVersion,
	})
}
