// Package whoami implements the whoami command: it mounts a RequireSession
// guard against a live API endpoint and reports how the guard settled. It is
// the smallest end-to-end exercise of the client pipeline, the session
// service, and the guard state machine.
package whoami

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/scriptoria/webclient/internal/checkout"
	"github.com/scriptoria/webclient/internal/client"
	"github.com/scriptoria/webclient/internal/guard"
	"github.com/scriptoria/webclient/internal/platform/config"
	"github.com/scriptoria/webclient/internal/platform/otel"
	"github.com/scriptoria/webclient/internal/platform/timeouts"
	"github.com/scriptoria/webclient/internal/session"
	"github.com/scriptoria/webclient/internal/storage/bbolt"
	"github.com/scriptoria/webclient/internal/telemetry"
)

const (
	defaultAPIBaseURL = "http://localhost:8080/graphql"
	defaultSignInURL  = "/signin"
	defaultStatePath  = "scriptoria-state.db"
)

// Config holds the whoami command configuration.
type Config struct {
	APIBaseURL string `env:"SCRIPTORIA_API_URL"`
	SignInURL  string `env:"SCRIPTORIA_SIGNIN_URL"`
	StatePath  string `env:"SCRIPTORIA_STATE_PATH"`
	// Cookie is the raw session cookie forwarded on every API request, in
	// name=value form. Empty means an anonymous visitor.
	Cookie string `env:"SCRIPTORIA_SESSION_COOKIE"`

	CheckoutStarterMonthly  string `env:"SCRIPTORIA_CHECKOUT_STARTER_MONTHLY"`
	CheckoutStarterAnnual   string `env:"SCRIPTORIA_CHECKOUT_STARTER_ANNUAL"`
	CheckoutProMonthly      string `env:"SCRIPTORIA_CHECKOUT_PRO_MONTHLY"`
	CheckoutProAnnual       string `env:"SCRIPTORIA_CHECKOUT_PRO_ANNUAL"`
	CheckoutAdvancedMonthly string `env:"SCRIPTORIA_CHECKOUT_ADVANCED_MONTHLY"`
	CheckoutAdvancedAnnual  string `env:"SCRIPTORIA_CHECKOUT_ADVANCED_ANNUAL"`
}

// ParseConfig loads configuration from the environment and applies flag
// overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.SignInURL == "" {
		cfg.SignInURL = defaultSignInURL
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath
	}

	fs.StringVar(&cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "GraphQL API endpoint")
	fs.StringVar(&cfg.SignInURL, "signin-url", cfg.SignInURL, "sign-in redirect target")
	fs.StringVar(&cfg.StatePath, "state-path", cfg.StatePath, "client state database path")
	fs.StringVar(&cfg.Cookie, "cookie", cfg.Cookie, "session cookie (name=value)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// checkoutBuilder assembles the checkout URL builder when all six pricing
// URLs are configured. With any missing the pending-plan redirect path is
// simply disabled.
func (c Config) checkoutBuilder() (*checkout.Builder, error) {
	urls := checkout.URLs{
		StarterMonthly:  c.CheckoutStarterMonthly,
		StarterAnnual:   c.CheckoutStarterAnnual,
		ProMonthly:      c.CheckoutProMonthly,
		ProAnnual:       c.CheckoutProAnnual,
		AdvancedMonthly: c.CheckoutAdvancedMonthly,
		AdvancedAnnual:  c.CheckoutAdvancedAnnual,
	}
	if urls == (checkout.URLs{}) {
		return nil, nil
	}
	return checkout.NewBuilder(urls)
}

// logNavigator prints redirect targets instead of changing location; the
// command has no browser to steer.
type logNavigator struct{}

func (logNavigator) Navigate(target string) {
	log.Printf("navigate: %s", target)
}

// Run mounts the guard and reports the settled state.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "scriptoria-whoami")
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("shutdown telemetry: %v", err)
		}
	}()

	store, err := bbolt.Open(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open client state: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close client state: %v", err)
		}
	}()

	cl, err := client.New(client.Config{
		APIBaseURL:      cfg.APIBaseURL,
		ForwardedCookie: cfg.Cookie,
	})
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}

	builder, err := cfg.checkoutBuilder()
	if err != nil {
		return fmt.Errorf("init checkout: %w", err)
	}

	sessions := session.NewService(cl)
	g, err := guard.NewRequireSession(guard.RequireSessionConfig{
		Sessions:  sessions,
		Navigator: logNavigator{},
		SignInURL: cfg.SignInURL,
		Plans:     store,
		Checkout:  builder,
		Telemetry: telemetry.NewEmitter(store),
	})
	if err != nil {
		return fmt.Errorf("init guard: %w", err)
	}

	g.Mount(ctx)
	select {
	case <-g.Done():
	case <-ctx.Done():
		g.Unmount()
		return ctx.Err()
	}

	fmt.Printf("guard: %s\n", g.State())
	if !g.ShouldRenderChildren() {
		return nil
	}

	record, err := sessions.CurrentSession(ctx)
	if err != nil {
		return fmt.Errorf("load viewer: %w", err)
	}
	if record == nil {
		fmt.Println("viewer: none")
		return nil
	}
	fmt.Printf("viewer: %s <%s>\n", record.FullName, record.Email)
	if record.HasActiveSubscription {
		fmt.Println("subscription: active")
	}
	return nil
}
