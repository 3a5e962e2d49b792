package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scriptoria/webclient/internal/gql"
)

const tracerName = "scriptoria.webclient"

// FetchConfig configures the terminal network stage.
type FetchConfig struct {
	// URL is the single query/mutation endpoint.
	URL string
	// Client performs the round trips. Its cookie jar carries the HTTP-only
	// session cookie across requests.
	Client *http.Client
	// ForwardedCookie seeds the Cookie header for a server render pass.
	// It is sent verbatim and never persisted.
	ForwardedCookie string
}

type wirePayload struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Fetch returns the terminal handler performing the HTTP call. Transport
// failures and non-2xx statuses surface as NetworkError; a well-formed
// response with an errors array surfaces as APIError alongside the decoded
// response.
func Fetch(cfg FetchConfig) Handler {
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return func(ctx context.Context, req *gql.Request) (*gql.Response, error) {
		if req == nil {
			return nil, fmt.Errorf("request is required")
		}
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("endpoint url is required")
		}

		kind := "query"
		if req.Document.Kind == gql.KindMutation {
			kind = "mutation"
		}
		ctx, span := otel.Tracer(tracerName).Start(ctx, "gql."+kind,
			trace.WithAttributes(
				attribute.String("gql.operation", req.Document.Name),
			))
		defer span.End()

		body, err := json.Marshal(wirePayload{
			OperationName: req.Document.Name,
			Query:         req.Document.Text,
			Variables:     req.Variables,
		})
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build http request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		if cookie := strings.TrimSpace(cfg.ForwardedCookie); cookie != "" {
			httpReq.Header.Set("Cookie", cookie)
		}

		httpResp, err := httpClient.Do(httpReq)
		if err != nil {
			netErr := &gql.NetworkError{URL: cfg.URL, Err: err}
			span.RecordError(netErr)
			span.SetStatus(codes.Error, "transport failure")
			return nil, netErr
		}
		defer func() { _ = httpResp.Body.Close() }()

		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			netErr := &gql.NetworkError{URL: cfg.URL, Err: fmt.Errorf("unexpected status %d", httpResp.StatusCode)}
			span.RecordError(netErr)
			span.SetStatus(codes.Error, "unexpected status")
			return nil, netErr
		}

		var resp gql.Response
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			netErr := &gql.NetworkError{URL: cfg.URL, Err: fmt.Errorf("decode response: %w", err)}
			span.RecordError(netErr)
			span.SetStatus(codes.Error, "malformed response")
			return nil, netErr
		}
		if len(resp.Errors) > 0 {
			apiErr := &gql.APIError{Entries: resp.Errors}
			span.RecordError(apiErr)
			span.SetStatus(codes.Error, "api error")
			return &resp, apiErr
		}
		return &resp, nil
	}
}
