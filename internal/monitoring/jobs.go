package monitoring

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spryntr/waitlist/pkg/metrics"
)

// Job results accepted by RecordMaintenanceRun.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Summary surfaces runtime state for the admin dashboard.
type Summary struct {
	GeneratedAt time.Time               `json:"generated_at"`
	StartedAt   time.Time               `json:"started_at"`
	Maintenance []MaintenanceJobSummary `json:"maintenance"`
}

// MaintenanceJobSummary describes the latest runs of one background job.
type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	TotalRuns           uint64        `json:"total_runs"`
}

type jobStore struct {
	mu   sync.Mutex
	jobs map[string]*MaintenanceJobSummary
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*MaintenanceJobSummary)}
}

func (s *jobStore) record(job, result, message string, duration time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[job]
	if !ok {
		entry = &MaintenanceJobSummary{Job: job}
		s.jobs[job] = entry
	}
	entry.LastStatus = result
	entry.LastRunAt = now
	entry.LastDuration = duration
	entry.LastError = message
	entry.TotalRuns++
	if result == ResultSuccess {
		entry.ConsecutiveFailures = 0
		entry.LastSuccessAt = now
	} else {
		entry.ConsecutiveFailures++
	}
}

func (s *jobStore) snapshot() []MaintenanceJobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MaintenanceJobSummary, 0, len(s.jobs))
	for _, entry := range s.jobs {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// RecordMaintenanceRun records the completion of a maintenance job in the
// Prometheus counters and, when a module is installed, in the summary.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	job = strings.TrimSpace(strings.ToLower(job))
	if job == "" {
		job = "unknown"
	}
	if result != ResultSuccess {
		result = ResultFailure
	}
	if duration < 0 {
		duration = 0
	}

	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()
	metrics.MaintenanceDuration.WithLabelValues(job).Observe(duration.Seconds())

	if module := CurrentModule(); module != nil {
		module.jobs.record(job, result, strings.TrimSpace(message), duration, time.Now().UTC())
	}
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	module := CurrentModule()
	if module == nil {
		return Summary{GeneratedAt: time.Now().UTC()}
	}
	return Summary{
		GeneratedAt: time.Now().UTC(),
		StartedAt:   module.startedAt,
		Maintenance: module.jobs.snapshot(),
	}
}
