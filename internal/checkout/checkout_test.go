package checkout

import (
	"net/url"
	"strings"
	"testing"
)

func testURLs() URLs {
	return URLs{
		StarterMonthly:  "https://pay.example.com/starter-monthly",
		StarterAnnual:   "https://pay.example.com/starter-annual",
		ProMonthly:      "https://pay.example.com/pro-monthly",
		ProAnnual:       "https://pay.example.com/pro-annual",
		AdvancedMonthly: "https://pay.example.com/advanced-monthly",
		AdvancedAnnual:  "https://pay.example.com/advanced-annual",
	}
}

func TestNewBuilderValidation(t *testing.T) {
	urls := testURLs()
	urls.ProAnnual = " "
	if _, err := NewBuilder(urls); err == nil {
		t.Fatal("missing url must be rejected")
	}
}

func TestURLCarriesViewerParameters(t *testing.T) {
	builder, err := NewBuilder(testURLs())
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	raw, err := builder.URL(PlanPro, BillingMonthly, "U1", "e@x.com")
	if err != nil {
		t.Fatalf("build url: %v", err)
	}
	if !strings.HasPrefix(raw, "https://pay.example.com/pro-monthly?") {
		t.Fatalf("unexpected base: %q", raw)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse built url: %v", err)
	}
	query := parsed.Query()
	if query.Get("client_reference_id") != "U1" {
		t.Fatalf("client_reference_id = %q", query.Get("client_reference_id"))
	}
	if query.Get("prefilled_email") != "e@x.com" {
		t.Fatalf("prefilled_email = %q", query.Get("prefilled_email"))
	}
	if !strings.Contains(raw, "prefilled_email=e%40x.com") {
		t.Fatalf("email must be escaped in %q", raw)
	}
}

func TestURLPerCombination(t *testing.T) {
	builder, err := NewBuilder(testURLs())
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	cases := []struct {
		plan   Plan
		period BillingPeriod
		want   string
	}{
		{PlanStarter, BillingMonthly, "starter-monthly"},
		{PlanStarter, BillingAnnual, "starter-annual"},
		{PlanPro, BillingMonthly, "pro-monthly"},
		{PlanPro, BillingAnnual, "pro-annual"},
		{PlanAdvanced, BillingMonthly, "advanced-monthly"},
		{PlanAdvanced, BillingAnnual, "advanced-annual"},
	}
	for _, tc := range cases {
		t.Run(string(tc.plan)+"/"+string(tc.period), func(t *testing.T) {
			raw, err := builder.URL(tc.plan, tc.period, "U1", "e@x.com")
			if err != nil {
				t.Fatalf("build url: %v", err)
			}
			if !strings.Contains(raw, tc.want) {
				t.Fatalf("url %q does not target %q", raw, tc.want)
			}
		})
	}
}

func TestURLRejectsUnknownCombination(t *testing.T) {
	builder, err := NewBuilder(testURLs())
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if _, err := builder.URL("enterprise", BillingMonthly, "U1", "e@x.com"); err == nil {
		t.Fatal("unknown plan must be rejected")
	}
	if _, err := builder.URL(PlanPro, "weekly", "U1", "e@x.com"); err == nil {
		t.Fatal("unknown period must be rejected")
	}
	if _, err := builder.URL(PlanPro, BillingMonthly, " ", "e@x.com"); err == nil {
		t.Fatal("missing viewer id must be rejected")
	}
}

func TestParsers(t *testing.T) {
	if plan, err := ParsePlan(" Pro "); err != nil || plan != PlanPro {
		t.Fatalf("ParsePlan = %q, %v", plan, err)
	}
	if _, err := ParsePlan("free"); err == nil {
		t.Fatal("unknown plan must not parse")
	}
	if period, err := ParseBillingPeriod("ANNUAL"); err != nil || period != BillingAnnual {
		t.Fatalf("ParseBillingPeriod = %q, %v", period, err)
	}
	if _, err := ParseBillingPeriod("weekly"); err == nil {
		t.Fatal("unknown period must not parse")
	}
}
