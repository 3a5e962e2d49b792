package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scriptoria/webclient/internal/checkout"
	"github.com/scriptoria/webclient/internal/gql"
	"github.com/scriptoria/webclient/internal/session"
	"github.com/scriptoria/webclient/internal/storage"
)

type fakeSessions struct {
	record  *session.Record
	err     error
	release chan struct{} // when non-nil, CurrentSession blocks until closed
}

func (f *fakeSessions) CurrentSession(context.Context) (*session.Record, error) {
	if f.release != nil {
		<-f.release
	}
	return f.record, f.err
}

type fakeNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (f *fakeNavigator) Navigate(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
}

func (f *fakeNavigator) visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.targets...)
}

type fakePlans struct {
	mu        sync.Mutex
	selection *storage.PlanSelection
	takes     int
}

func (f *fakePlans) PutPlanSelection(_ context.Context, selection storage.PlanSelection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selection = &selection
	return nil
}

func (f *fakePlans) TakePlanSelection(context.Context) (storage.PlanSelection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.takes++
	if f.selection == nil {
		return storage.PlanSelection{}, storage.ErrNotFound
	}
	taken := *f.selection
	f.selection = nil
	return taken, nil
}

func testCheckout(t *testing.T) *checkout.Builder {
	t.Helper()
	builder, err := checkout.NewBuilder(checkout.URLs{
		StarterMonthly:  "https://pay.example.com/starter-monthly",
		StarterAnnual:   "https://pay.example.com/starter-annual",
		ProMonthly:      "https://pay.example.com/pro-monthly",
		ProAnnual:       "https://pay.example.com/pro-annual",
		AdvancedMonthly: "https://pay.example.com/advanced-monthly",
		AdvancedAnnual:  "https://pay.example.com/advanced-annual",
	})
	if err != nil {
		t.Fatalf("new checkout builder: %v", err)
	}
	return builder
}

func settle(t *testing.T, settled <-chan struct{}) {
	t.Helper()
	select {
	case <-settled:
	case <-time.After(2 * time.Second):
		t.Fatal("guard did not settle in time")
	}
}

func mountRequire(t *testing.T, g *RequireSession) <-chan struct{} {
	t.Helper()
	g.Mount(context.Background())
	return g.Done()
}

func mountRedirectIf(t *testing.T, g *RedirectIfSession) <-chan struct{} {
	t.Helper()
	g.Mount(context.Background())
	return g.Done()
}

func viewer() *session.Record {
	return &session.Record{ID: "U1", FullName: "Ada", Email: "e@x.com"}
}

func TestRequireSessionRendersNothingWhilePending(t *testing.T) {
	sessions := &fakeSessions{record: viewer(), release: make(chan struct{})}
	nav := &fakeNavigator{}
	g, err := NewRequireSession(RequireSessionConfig{Sessions: sessions, Navigator: nav, SignInURL: "/signin"})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	settled := mountRequire(t, g)
	if g.State() != StatePending {
		t.Fatalf("state = %v, want pending", g.State())
	}
	if g.ShouldRenderChildren() {
		t.Fatal("pending guard must not render children")
	}

	close(sessions.release)
	settle(t, settled)
}

func TestRequireSessionFailClosed(t *testing.T) {
	cases := []struct {
		name     string
		sessions *fakeSessions
	}{
		{"viewer absent", &fakeSessions{}},
		{"network failure", &fakeSessions{err: &gql.NetworkError{URL: "http://x", Err: errors.New("down")}}},
		{"api error", &fakeSessions{err: &gql.APIError{Entries: []gql.ErrorEntry{{Message: "boom"}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nav := &fakeNavigator{}
			g, err := NewRequireSession(RequireSessionConfig{Sessions: tc.sessions, Navigator: nav, SignInURL: "/signin"})
			if err != nil {
				t.Fatalf("new guard: %v", err)
			}

			settle(t, mountRequire(t, g))

			if g.State() != StateRedirecting {
				t.Fatalf("state = %v, want redirecting", g.State())
			}
			if g.ShouldRenderChildren() {
				t.Fatal("fail-closed guard must never render children")
			}
			if got := nav.visited(); len(got) != 1 || got[0] != "/signin" {
				t.Fatalf("navigation = %v, want [/signin]", got)
			}
		})
	}
}

func TestRequireSessionRendersChildrenForViewer(t *testing.T) {
	nav := &fakeNavigator{}
	g, err := NewRequireSession(RequireSessionConfig{Sessions: &fakeSessions{record: viewer()}, Navigator: nav, SignInURL: "/signin"})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	settle(t, mountRequire(t, g))

	if !g.ShouldRenderChildren() {
		t.Fatalf("state = %v, expected children to render", g.State())
	}
	if len(nav.visited()) != 0 {
		t.Fatalf("unexpected navigation: %v", nav.visited())
	}
}

func TestRequireSessionConsumesPendingPlanOnce(t *testing.T) {
	nav := &fakeNavigator{}
	plans := &fakePlans{selection: &storage.PlanSelection{Plan: "pro", BillingPeriod: "monthly"}}
	g, err := NewRequireSession(RequireSessionConfig{
		Sessions:  &fakeSessions{record: viewer()},
		Navigator: nav,
		SignInURL: "/signin",
		Plans:     plans,
		Checkout:  testCheckout(t),
	})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	settle(t, mountRequire(t, g))

	want := "https://pay.example.com/pro-monthly?client_reference_id=U1&prefilled_email=e%40x.com"
	if got := nav.visited(); len(got) != 1 || got[0] != want {
		t.Fatalf("navigation = %v, want [%s]", got, want)
	}
	if g.State() != StateRedirecting {
		t.Fatalf("state = %v, want redirecting", g.State())
	}
	if g.ShouldRenderChildren() {
		t.Fatal("checkout redirect must not render children")
	}
	if plans.selection != nil {
		t.Fatal("plan selection was not cleared")
	}

	// Second mount: the selection is gone, children render normally.
	settle(t, mountRequire(t, g))
	if !g.ShouldRenderChildren() {
		t.Fatalf("second mount state = %v, expected children", g.State())
	}
	if len(nav.visited()) != 1 {
		t.Fatalf("second mount must not navigate again: %v", nav.visited())
	}
}

func TestRequireSessionIgnoresMalformedPlanSelection(t *testing.T) {
	nav := &fakeNavigator{}
	plans := &fakePlans{selection: &storage.PlanSelection{Plan: "enterprise", BillingPeriod: "monthly"}}
	g, err := NewRequireSession(RequireSessionConfig{
		Sessions:  &fakeSessions{record: viewer()},
		Navigator: nav,
		SignInURL: "/signin",
		Plans:     plans,
		Checkout:  testCheckout(t),
	})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	settle(t, mountRequire(t, g))

	if !g.ShouldRenderChildren() {
		t.Fatalf("state = %v, expected children for malformed selection", g.State())
	}
	if len(nav.visited()) != 0 {
		t.Fatalf("unexpected navigation: %v", nav.visited())
	}
}

func TestRequireSessionUnmountDiscardsLateResponse(t *testing.T) {
	sessions := &fakeSessions{record: viewer(), release: make(chan struct{})}
	nav := &fakeNavigator{}
	plans := &fakePlans{selection: &storage.PlanSelection{Plan: "pro", BillingPeriod: "monthly"}}
	g, err := NewRequireSession(RequireSessionConfig{
		Sessions:  sessions,
		Navigator: nav,
		SignInURL: "/signin",
		Plans:     plans,
		Checkout:  testCheckout(t),
	})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	settled := mountRequire(t, g)
	g.Unmount()
	close(sessions.release)
	settle(t, settled)

	if got := nav.visited(); len(got) != 0 {
		t.Fatalf("unmounted guard navigated: %v", got)
	}
	if g.ShouldRenderChildren() {
		t.Fatal("unmounted guard must not render children")
	}
	if plans.selection == nil {
		t.Fatal("plan selection must survive an unmounted resolution")
	}
}

func TestRequireSessionUnmountBeforeErrorResolution(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("down"), release: make(chan struct{})}
	nav := &fakeNavigator{}
	g, err := NewRequireSession(RequireSessionConfig{Sessions: sessions, Navigator: nav, SignInURL: "/signin"})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	settled := mountRequire(t, g)
	g.Unmount()
	close(sessions.release)
	settle(t, settled)

	if len(nav.visited()) != 0 {
		t.Fatalf("unmounted guard navigated: %v", nav.visited())
	}
}

func TestRedirectIfSessionRedirectsViewer(t *testing.T) {
	nav := &fakeNavigator{}
	g, err := NewRedirectIfSession(RedirectIfSessionConfig{Sessions: &fakeSessions{record: viewer()}, Navigator: nav, HomeURL: "/app"})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	settle(t, mountRedirectIf(t, g))

	if g.ShouldRenderChildren() {
		t.Fatal("signed-in viewer must never see anonymous-only children")
	}
	if got := nav.visited(); len(got) != 1 || got[0] != "/app" {
		t.Fatalf("navigation = %v, want [/app]", got)
	}
}

func TestRedirectIfSessionRendersChildrenWhenSignedOut(t *testing.T) {
	cases := []struct {
		name     string
		sessions *fakeSessions
	}{
		{"viewer absent", &fakeSessions{}},
		{"session error", &fakeSessions{err: errors.New("down")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nav := &fakeNavigator{}
			g, err := NewRedirectIfSession(RedirectIfSessionConfig{Sessions: tc.sessions, Navigator: nav, HomeURL: "/app"})
			if err != nil {
				t.Fatalf("new guard: %v", err)
			}

			settle(t, mountRedirectIf(t, g))

			if !g.ShouldRenderChildren() {
				t.Fatalf("state = %v, expected children", g.State())
			}
			if len(nav.visited()) != 0 {
				t.Fatalf("unexpected navigation: %v", nav.visited())
			}
		})
	}
}

func TestRedirectIfSessionUnmountDiscardsLateResponse(t *testing.T) {
	sessions := &fakeSessions{record: viewer(), release: make(chan struct{})}
	nav := &fakeNavigator{}
	g, err := NewRedirectIfSession(RedirectIfSessionConfig{Sessions: sessions, Navigator: nav, HomeURL: "/app"})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	settled := mountRedirectIf(t, g)
	g.Unmount()
	close(sessions.release)
	settle(t, settled)

	if len(nav.visited()) != 0 {
		t.Fatalf("unmounted guard navigated: %v", nav.visited())
	}
}

func TestGuardConstructionValidation(t *testing.T) {
	nav := &fakeNavigator{}
	sessions := &fakeSessions{}

	if _, err := NewRequireSession(RequireSessionConfig{Navigator: nav, SignInURL: "/signin"}); err == nil {
		t.Fatal("missing session source must be rejected")
	}
	if _, err := NewRequireSession(RequireSessionConfig{Sessions: sessions, SignInURL: "/signin"}); err == nil {
		t.Fatal("missing navigator must be rejected")
	}
	if _, err := NewRequireSession(RequireSessionConfig{Sessions: sessions, Navigator: nav}); err == nil {
		t.Fatal("missing sign-in url must be rejected")
	}
	if _, err := NewRedirectIfSession(RedirectIfSessionConfig{Sessions: sessions, Navigator: nav}); err == nil {
		t.Fatal("missing home url must be rejected")
	}
}
