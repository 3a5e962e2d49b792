// Package telemetry records operational events from the client runtime:
// guard transitions, redirects, and failed fetches.
package telemetry

import (
	"context"
	"time"

	"github.com/scriptoria/webclient/internal/platform/requestctx"
	"github.com/scriptoria/webclient/internal/storage"
)

// Severity describes the telemetry severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Emitter records operational telemetry events.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records a telemetry event. It is a no-op when the store is nil. A
// viewer identity carried in ctx is stamped onto the event unless the caller
// already set one.
func (e *Emitter) Emit(ctx context.Context, severity Severity, kind string, fields map[string]string) error {
	if e == nil || e.store == nil {
		return nil
	}
	now := time.Now
	if e.clock != nil {
		now = e.clock
	}
	if viewer := requestctx.ViewerIDFromContext(ctx); viewer != "" {
		if _, ok := fields["viewer"]; !ok {
			stamped := make(map[string]string, len(fields)+1)
			for k, v := range fields {
				stamped[k] = v
			}
			stamped["viewer"] = viewer
			fields = stamped
		}
	}
	return e.store.AppendTelemetryEvent(ctx, storage.TelemetryEvent{
		Timestamp: now().UTC(),
		Severity:  string(severity),
		Kind:      kind,
		Fields:    fields,
	})
}
