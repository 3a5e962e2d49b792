package guard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/scriptoria/webclient/internal/checkout"
	"github.com/scriptoria/webclient/internal/platform/requestctx"
	"github.com/scriptoria/webclient/internal/session"
	"github.com/scriptoria/webclient/internal/storage"
	"github.com/scriptoria/webclient/internal/telemetry"
)

// RequireSessionConfig wires a RequireSession guard.
type RequireSessionConfig struct {
	Sessions  SessionSource
	Navigator Navigator
	// SignInURL is the redirect target when no viewer resolves.
	SignInURL string
	// Plans holds the pending pricing selection persisted across the
	// sign-in detour. Optional; without it (or Checkout) the pending-plan
	// path is disabled.
	Plans    storage.PlanSelectionStore
	Checkout *checkout.Builder
	// Telemetry records guard transitions. Optional.
	Telemetry *telemetry.Emitter
}

// RequireSession protects authenticated areas. While the session query is
// pending it renders nothing; with no viewer (or any error) it fails closed
// and redirects to sign-in; with a viewer it either consumes a pending plan
// selection and redirects to checkout, or renders its children.
type RequireSession struct {
	lifecycle
	cfg RequireSessionConfig
}

// NewRequireSession validates the wiring and returns an unmounted guard.
func NewRequireSession(cfg RequireSessionConfig) (*RequireSession, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session source is required")
	}
	if cfg.Navigator == nil {
		return nil, fmt.Errorf("navigator is required")
	}
	if strings.TrimSpace(cfg.SignInURL) == "" {
		return nil, fmt.Errorf("sign-in url is required")
	}
	return &RequireSession{cfg: cfg}, nil
}

// Mount starts the session query. Safe to call again after Unmount.
func (g *RequireSession) Mount(ctx context.Context) {
	if g == nil {
		return
	}
	gen, settled := g.beginMount()
	go func() {
		defer close(settled)
		record, err := g.cfg.Sessions.CurrentSession(ctx)
		g.resolve(ctx, gen, record, err)
	}()
}

// ShouldRenderChildren reports whether the protected subtree may render.
// It is false while pending and false forever once a redirect is issued,
// so protected content never flashes before navigation.
func (g *RequireSession) ShouldRenderChildren() bool {
	return g != nil && g.State() == StateViewerPresent
}

func (g *RequireSession) resolve(ctx context.Context, gen uint64, record *session.Record, err error) {
	if err != nil || record == nil {
		// Fail closed: transport failures and API errors are treated the
		// same as a signed-out visitor.
		if !g.transition(gen, StateRedirecting) {
			return
		}
		reason := "viewer-absent"
		if err != nil {
			reason = "session-error"
			log.Printf("session query failed, redirecting to sign-in: %v", err)
		}
		_ = g.cfg.Telemetry.Emit(ctx, telemetry.SeverityWarn, "guard.fail_closed", map[string]string{
			"reason": reason,
			"target": g.cfg.SignInURL,
		})
		g.cfg.Navigator.Navigate(g.cfg.SignInURL)
		return
	}

	if target, selection, ok := g.pendingCheckoutTarget(ctx, gen, record); ok {
		if !g.transition(gen, StateRedirecting) {
			// Unmounted while the selection was being consumed; put it
			// back so the next mount still honors it.
			if err := g.cfg.Plans.PutPlanSelection(ctx, selection); err != nil {
				log.Printf("restore pending plan selection: %v", err)
			}
			return
		}
		ctx = requestctx.WithViewerID(ctx, record.ID)
		_ = g.cfg.Telemetry.Emit(ctx, telemetry.SeverityInfo, "guard.checkout_redirect", map[string]string{
			"plan":   selection.Plan,
			"period": selection.BillingPeriod,
		})
		g.cfg.Navigator.Navigate(target)
		return
	}

	g.transition(gen, StateViewerPresent)
}

// pendingCheckoutTarget consumes the stored plan selection, exactly once,
// and converts it into a checkout URL. A selection that cannot be resolved
// into a URL is logged and dropped rather than blocking the viewer.
func (g *RequireSession) pendingCheckoutTarget(ctx context.Context, gen uint64, record *session.Record) (string, storage.PlanSelection, bool) {
	none := storage.PlanSelection{}
	if g.cfg.Plans == nil || g.cfg.Checkout == nil {
		return "", none, false
	}
	if !g.alive(gen) {
		return "", none, false
	}

	selection, err := g.cfg.Plans.TakePlanSelection(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("read pending plan selection: %v", err)
		}
		return "", none, false
	}

	plan, err := checkout.ParsePlan(selection.Plan)
	if err != nil {
		log.Printf("pending plan selection ignored: %v", err)
		return "", none, false
	}
	period, err := checkout.ParseBillingPeriod(selection.BillingPeriod)
	if err != nil {
		log.Printf("pending plan selection ignored: %v", err)
		return "", none, false
	}
	target, err := g.cfg.Checkout.URL(plan, period, record.ID, record.Email)
	if err != nil {
		log.Printf("build checkout url: %v", err)
		return "", none, false
	}
	return target, selection, true
}
