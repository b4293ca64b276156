package monitoring

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Module bundles the health probes and the runtime statistics behind the
// admin summary. Prometheus collectors live in pkg/metrics and register with
// the default registry.
type Module struct {
	health    *HealthManager
	jobs      *jobStore
	startedAt time.Time
}

// NewModule constructs a monitoring module.
func NewModule() *Module {
	return &Module{
		health:    NewHealthManager(),
		jobs:      newJobStore(),
		startedAt: time.Now().UTC(),
	}
}

// Handler returns an http.Handler serving Prometheus metrics.
func (m *Module) Handler() http.Handler {
	return promhttp.Handler()
}

// Health exposes the health manager responsible for liveness and readiness probes.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

var globalModule atomic.Pointer[Module]

// SetModule configures the process-wide monitoring module used by instrumentation helpers.
func SetModule(module *Module) {
	if module == nil {
		return
	}
	globalModule.Store(module)
}

// CurrentModule returns the process-wide monitoring module, or nil when unset.
func CurrentModule() *Module {
	return globalModule.Load()
}
