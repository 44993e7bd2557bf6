package module

import (
	"context"

	"storeuptime/internal/services/reports/domain"
	reportssvc "storeuptime/internal/services/reports/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptReportsPort struct{ svc reportssvc.Service }

// Trigger starts a new report run
func (a adaptReportsPort) Trigger(ctx context.Context, in domain.TriggerInput) (domain.TriggerOutput, error) {
	return a.svc.Trigger(ctx, in)
}

// Poll returns a report run's current status
func (a adaptReportsPort) Poll(ctx context.Context, reportID string) (domain.PollOutput, error) {
	return a.svc.Poll(ctx, reportID)
}
