package observability

import "context"

// HealthStatus is the health of a component or of the whole service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

// rank orders statuses from best to worst. Unknown statuses count as down.
func (s HealthStatus) rank() int {
	switch s {
	case HealthStatusUp:
		return 0
	case HealthStatusDegraded:
		return 1
	default:
		return 2
	}
}

// Health is one component's report.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthChecker reports the health of a component.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// ServiceHealth aggregates component reports. Its status is the worst
// component status.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Version    string       `json:"version,omitempty"`
	Status     HealthStatus `json:"status"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth returns an up service with no components.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
}

// AddComponent appends h and degrades the service status to match.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	if h.Status.rank() > sh.Status.rank() {
		sh.Status = h.Status
	}
}

// CheckAll asks every checker in order.
func (sh *ServiceHealth) CheckAll(ctx context.Context, checkers ...HealthChecker) *ServiceHealth {
	for _, c := range checkers {
		sh.AddComponent(c.CheckHealth(ctx))
	}
	return sh
}
