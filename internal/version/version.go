package version

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"
)

// Version, Commit and Date are overridden at build time via
// -ldflags "-X github.com/cogmesh/atomspace/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var logger atomic.Pointer[zap.Logger]

// SetLogger injects the process-wide logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

// GetVersion returns the build version.
func GetVersion() string { return Version }

// GetCommit returns the build commit hash.
func GetCommit() string { return Commit }

// GetDate returns the build date.
func GetDate() string { return Date }

// Handler reports build metadata as JSON.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	})
	if l := logger.Load(); l != nil {
		l.Debug("version check served")
	}
}
