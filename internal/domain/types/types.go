// Package types contains read shapes shared by the service and its adapters.
package types

// Health status values.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Health is the readiness report served on /health.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Healthy reports whether Status is StatusHealthy.
func (h Health) Healthy() bool {
	return h.Status == StatusHealthy
}
