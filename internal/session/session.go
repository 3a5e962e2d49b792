// Package session defines the viewer identity operations: the well-known
// session query that is the unit of truth for "is anyone signed in", and
// the email confirmation mutation.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scriptoria/webclient/internal/gql"
)

// Record is the signed-in viewer as reported by the session query.
type Record struct {
	ID                    string `json:"id"`
	FullName              string `json:"fullName"`
	Email                 string `json:"email"`
	IsSocialLogin         bool   `json:"isSocialLogin"`
	HasActiveSubscription bool   `json:"hasActiveSubscription"`
}

var sessionDocument = gql.Document{
	Name: "me",
	Text: `query me {
  me {
    __typename
    id
    fullName
    email
    isSocialLogin
    hasActiveSubscription
  }
}`,
	Kind: gql.KindQuery,
}

var confirmEmailDocument = gql.Document{
	Name: "confirmEmail",
	Text: `mutation confirmEmail($hash: String!) {
  confirmEmail(hash: $hash) {
    __typename
    id
  }
}`,
	Kind: gql.KindMutation,
}

// Executor is the slice of the client facade session operations need.
type Executor interface {
	Query(ctx context.Context, req *gql.Request) (*gql.Response, error)
	Mutate(ctx context.Context, req *gql.Request) (*gql.Response, error)
}

// Service issues session operations through the exchange pipeline.
type Service struct {
	executor Executor
}

// NewService builds a session service on top of a client.
func NewService(executor Executor) *Service {
	return &Service{executor: executor}
}

// CurrentSession fetches the viewer with a network-only policy: a stale
// cache entry must never decide an access question. A nil record with a nil
// error means nobody is signed in, which is a valid negative result rather
// than a failure.
func (s *Service) CurrentSession(ctx context.Context) (*Record, error) {
	if s == nil || s.executor == nil {
		return nil, fmt.Errorf("session service is not configured")
	}
	resp, err := s.executor.Query(ctx, &gql.Request{
		Document: sessionDocument,
		Policy:   gql.NetworkOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	var payload struct {
		Me *Record `json:"me"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return payload.Me, nil
}

// ConfirmEmail redeems an email confirmation hash and returns the confirmed
// viewer id. Failures surface to the caller only; the cache is untouched on
// error.
func (s *Service) ConfirmEmail(ctx context.Context, hash string) (string, error) {
	if s == nil || s.executor == nil {
		return "", fmt.Errorf("session service is not configured")
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return "", fmt.Errorf("confirmation hash is required")
	}

	resp, err := s.executor.Mutate(ctx, &gql.Request{
		Document:  confirmEmailDocument,
		Variables: map[string]any{"hash": hash},
	})
	if err != nil {
		return "", fmt.Errorf("confirm email: %w", err)
	}

	var payload struct {
		ConfirmEmail *struct {
			ID string `json:"id"`
		} `json:"confirmEmail"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return "", fmt.Errorf("decode confirmation: %w", err)
	}
	if payload.ConfirmEmail == nil || strings.TrimSpace(payload.ConfirmEmail.ID) == "" {
		return "", fmt.Errorf("confirmation returned no viewer id")
	}
	return payload.ConfirmEmail.ID, nil
}
