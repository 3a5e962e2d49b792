// Package checkout builds external payment checkout URLs from the viewer's
// plan and billing-period choice.
package checkout

import (
	"fmt"
	"net/url"
	"strings"
)

// Plan is a purchasable subscription tier.
type Plan string

const (
	PlanStarter  Plan = "starter"
	PlanPro      Plan = "pro"
	PlanAdvanced Plan = "advanced"
)

// BillingPeriod is the charge cadence.
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingAnnual  BillingPeriod = "annual"
)

// URLs holds the six externally hosted checkout page URLs, one per
// plan × billing-period combination.
type URLs struct {
	StarterMonthly  string
	StarterAnnual   string
	ProMonthly      string
	ProAnnual       string
	AdvancedMonthly string
	AdvancedAnnual  string
}

// Builder constructs checkout URLs bound to a fixed URL table.
type Builder struct {
	urls URLs
}

// NewBuilder validates the URL table and returns a builder.
func NewBuilder(urls URLs) (*Builder, error) {
	for name, raw := range map[string]string{
		"starter monthly":  urls.StarterMonthly,
		"starter annual":   urls.StarterAnnual,
		"pro monthly":      urls.ProMonthly,
		"pro annual":       urls.ProAnnual,
		"advanced monthly": urls.AdvancedMonthly,
		"advanced annual":  urls.AdvancedAnnual,
	} {
		if strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("%s checkout url is required", name)
		}
		if _, err := url.Parse(raw); err != nil {
			return nil, fmt.Errorf("parse %s checkout url: %w", name, err)
		}
	}
	return &Builder{urls: urls}, nil
}

// ParsePlan normalizes a stored plan value.
func ParsePlan(value string) (Plan, error) {
	switch Plan(strings.ToLower(strings.TrimSpace(value))) {
	case PlanStarter:
		return PlanStarter, nil
	case PlanPro:
		return PlanPro, nil
	case PlanAdvanced:
		return PlanAdvanced, nil
	default:
		return "", fmt.Errorf("unknown plan %q", value)
	}
}

// ParseBillingPeriod normalizes a stored billing-period value.
func ParseBillingPeriod(value string) (BillingPeriod, error) {
	switch BillingPeriod(strings.ToLower(strings.TrimSpace(value))) {
	case BillingMonthly:
		return BillingMonthly, nil
	case BillingAnnual:
		return BillingAnnual, nil
	default:
		return "", fmt.Errorf("unknown billing period %q", value)
	}
}

// URL returns the checkout URL for one plan and billing period, carrying
// the viewer id as client_reference_id and the viewer email as
// prefilled_email.
func (b *Builder) URL(plan Plan, period BillingPeriod, viewerID, email string) (string, error) {
	if b == nil {
		return "", fmt.Errorf("checkout builder is not configured")
	}
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return "", fmt.Errorf("viewer id is required")
	}

	base, err := b.base(plan, period)
	if err != nil {
		return "", err
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse checkout url: %w", err)
	}

	params := parsed.Query()
	params.Set("client_reference_id", viewerID)
	if email = strings.TrimSpace(email); email != "" {
		params.Set("prefilled_email", email)
	}
	parsed.RawQuery = params.Encode()
	return parsed.String(), nil
}

func (b *Builder) base(plan Plan, period BillingPeriod) (string, error) {
	switch plan {
	case PlanStarter:
		if period == BillingAnnual {
			return b.urls.StarterAnnual, nil
		}
		if period == BillingMonthly {
			return b.urls.StarterMonthly, nil
		}
	case PlanPro:
		if period == BillingAnnual {
			return b.urls.ProAnnual, nil
		}
		if period == BillingMonthly {
			return b.urls.ProMonthly, nil
		}
	case PlanAdvanced:
		if period == BillingAnnual {
			return b.urls.AdvancedAnnual, nil
		}
		if period == BillingMonthly {
			return b.urls.AdvancedMonthly, nil
		}
	}
	return "", fmt.Errorf("no checkout url for plan %q period %q", plan, period)
}
