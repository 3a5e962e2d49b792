package guard

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/scriptoria/webclient/internal/session"
	"github.com/scriptoria/webclient/internal/telemetry"
)

// RedirectIfSessionConfig wires a RedirectIfSession guard.
type RedirectIfSessionConfig struct {
	Sessions  SessionSource
	Navigator Navigator
	// HomeURL is the redirect target when a viewer is already signed in.
	HomeURL string
	// Telemetry records guard transitions. Optional.
	Telemetry *telemetry.Emitter
}

// RedirectIfSession protects anonymous-only areas such as sign-in and
// sign-up. A resolved viewer is sent to the authenticated home; an absent
// viewer (or any error, treated as signed out) renders the children.
type RedirectIfSession struct {
	lifecycle
	cfg RedirectIfSessionConfig
}

// NewRedirectIfSession validates the wiring and returns an unmounted guard.
func NewRedirectIfSession(cfg RedirectIfSessionConfig) (*RedirectIfSession, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session source is required")
	}
	if cfg.Navigator == nil {
		return nil, fmt.Errorf("navigator is required")
	}
	if strings.TrimSpace(cfg.HomeURL) == "" {
		return nil, fmt.Errorf("home url is required")
	}
	return &RedirectIfSession{cfg: cfg}, nil
}

// Mount starts the session query. Safe to call again after Unmount.
func (g *RedirectIfSession) Mount(ctx context.Context) {
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

// ShouldRenderChildren reports whether the anonymous subtree may render.
func (g *RedirectIfSession) ShouldRenderChildren() bool {
	return g != nil && g.State() == StateViewerAbsent
}

func (g *RedirectIfSession) resolve(ctx context.Context, gen uint64, record *session.Record, err error) {
	if err != nil || record == nil {
		if err != nil {
			log.Printf("session query failed, treating visitor as signed out: %v", err)
		}
		g.transition(gen, StateViewerAbsent)
		return
	}

	if !g.transition(gen, StateRedirecting) {
		return
	}
	_ = g.cfg.Telemetry.Emit(ctx, telemetry.SeverityInfo, "guard.home_redirect", map[string]string{
		"viewer": record.ID,
	})
	g.cfg.Navigator.Navigate(g.cfg.HomeURL)
}
