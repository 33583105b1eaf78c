package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// SetLogger injects the process-wide logger used for health-check
// diagnostics. Safe to call once at startup before serving traffic.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

func log() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Readiness lets the process composition root report whether dependent
// subsystems (the runtime's heartbeat/handler workers) are actually up,
// instead of Handler always claiming healthy regardless of node state.
type Readiness func() (ready bool, detail string)

var readiness atomic.Pointer[Readiness]

// SetReadiness installs a readiness probe consulted by Handler.
func SetReadiness(r Readiness) {
	readiness.Store(&r)
}

// Handler reports liveness/readiness as JSON.
func Handler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	detail := ""
	if rp := readiness.Load(); rp != nil {
		ready, d := (*rp)()
		detail = d
		if !ready {
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"detail":    detail,
		"timestamp": time.Now().UTC(),
	})

	log().Debug("health check served", zap.String("status", status))
}
