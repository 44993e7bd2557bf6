package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Trigger(ctx context.Context, in TriggerInput) (TriggerOutput, error)
	Poll(ctx context.Context, reportID string) (PollOutput, error)
}
