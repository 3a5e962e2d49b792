package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// PlanSelection is the pricing choice a visitor made before signing in.
type PlanSelection struct {
	Plan          string `json:"plan"`
	BillingPeriod string `json:"billingPeriod"`
}

// PlanSelectionStore persists the pending pricing selection across the
// sign-in detour. TakePlanSelection is read-once: the record is deleted as
// it is returned, so a selection is consumed at most one time.
type PlanSelectionStore interface {
	PutPlanSelection(ctx context.Context, selection PlanSelection) error
	TakePlanSelection(ctx context.Context) (PlanSelection, error)
}

// TelemetryEvent is one operational event record.
type TelemetryEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Severity  string            `json:"severity"`
	Kind      string            `json:"kind"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// TelemetryStore appends operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}
