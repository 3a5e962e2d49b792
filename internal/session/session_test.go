package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/scriptoria/webclient/internal/gql"
)

type fakeExecutor struct {
	queryResp  *gql.Response
	queryErr   error
	mutateResp *gql.Response
	mutateErr  error

	lastQuery  *gql.Request
	lastMutate *gql.Request
}

func (f *fakeExecutor) Query(_ context.Context, req *gql.Request) (*gql.Response, error) {
	f.lastQuery = req
	return f.queryResp, f.queryErr
}

func (f *fakeExecutor) Mutate(_ context.Context, req *gql.Request) (*gql.Response, error) {
	f.lastMutate = req
	return f.mutateResp, f.mutateErr
}

func TestCurrentSessionViewerPresent(t *testing.T) {
	executor := &fakeExecutor{queryResp: &gql.Response{
		Data: json.RawMessage(`{"me":{"__typename":"User","id":"U1","fullName":"Ada","email":"e@x.com","isSocialLogin":true,"hasActiveSubscription":false}}`),
	}}
	service := NewService(executor)

	record, err := service.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if record == nil || record.ID != "U1" || record.Email != "e@x.com" || !record.IsSocialLogin {
		t.Fatalf("unexpected record: %+v", record)
	}
	if executor.lastQuery.Policy != gql.NetworkOnly {
		t.Fatal("session query must use the network-only policy")
	}
}

func TestCurrentSessionViewerAbsent(t *testing.T) {
	executor := &fakeExecutor{queryResp: &gql.Response{Data: json.RawMessage(`{"me":null}`)}}
	service := NewService(executor)

	record, err := service.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if record != nil {
		t.Fatalf("expected no viewer, got %+v", record)
	}
}

func TestCurrentSessionPropagatesErrors(t *testing.T) {
	wantErr := &gql.NetworkError{URL: "http://x", Err: errors.New("down")}
	executor := &fakeExecutor{queryErr: wantErr}
	service := NewService(executor)

	_, err := service.CurrentSession(context.Background())
	if !gql.IsNetworkError(err) {
		t.Fatalf("expected wrapped network error, got %v", err)
	}
}

func TestConfirmEmail(t *testing.T) {
	executor := &fakeExecutor{mutateResp: &gql.Response{Data: json.RawMessage(`{"confirmEmail":{"__typename":"User","id":"U1"}}`)}}
	service := NewService(executor)

	id, err := service.ConfirmEmail(context.Background(), "h4sh")
	if err != nil {
		t.Fatalf("confirm email: %v", err)
	}
	if id != "U1" {
		t.Fatalf("confirmed id = %q, want U1", id)
	}
	if executor.lastMutate.Variables["hash"] != "h4sh" {
		t.Fatalf("hash variable missing: %+v", executor.lastMutate.Variables)
	}
}

func TestConfirmEmailValidation(t *testing.T) {
	service := NewService(&fakeExecutor{})

	if _, err := service.ConfirmEmail(context.Background(), "  "); err == nil {
		t.Fatal("blank hash must be rejected")
	}
}

func TestConfirmEmailFailure(t *testing.T) {
	executor := &fakeExecutor{mutateErr: &gql.APIError{Entries: []gql.ErrorEntry{{Message: "invalid hash"}}}}
	service := NewService(executor)

	if _, err := service.ConfirmEmail(context.Background(), "h4sh"); !gql.IsAPIError(err) {
		t.Fatalf("expected api error, got %v", err)
	}
}
