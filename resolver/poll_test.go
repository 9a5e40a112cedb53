package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"matchgate/backend"
	"matchgate/fault"
)

func TestWaitForReady(t *testing.T) {
	active := backend.ServerDetails{FQDN: "game-7.example.net", Ports: []backend.Port{{Name: "game", Number: 7777}}}
	tests := []struct {
		name      string
		states    []backend.ServerState
		attempts  int
		wantPolls int
		wantKind  fault.Kind
		want      backend.Endpoint
	}{
		{
			name:      "active on third poll",
			states:    []backend.ServerState{backend.StateProvisioning, backend.StateProvisioning, backend.StateActive},
			attempts:  10,
			wantPolls: 3,
			want:      backend.Endpoint{FQDN: "game-7.example.net", Ports: []backend.Port{{Name: "game", Number: 7777}}},
		},
		{
			name:      "terminating fails immediately",
			states:    []backend.ServerState{backend.StateTerminating, backend.StateActive},
			attempts:  10,
			wantPolls: 1,
			wantKind:  fault.Timeout,
		},
		{
			name:      "budget exhausted exactly",
			states:    []backend.ServerState{backend.StateProvisioning, backend.StateStandingBy, backend.StateProvisioning, backend.StateProvisioning},
			attempts:  4,
			wantPolls: 4,
			wantKind:  fault.Timeout,
		},
		{
			name:      "standing by then active",
			states:    []backend.ServerState{backend.StateStandingBy, backend.StateActive},
			attempts:  2,
			wantPolls: 2,
			want:      backend.Endpoint{FQDN: "game-7.example.net", Ports: []backend.Port{{Name: "game", Number: 7777}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{pollStates: tt.states, activeDetails: active}
			r := newTestResolver(client, Config{PollAttempts: tt.attempts}, time.Now())

			got, err := r.WaitForReady(context.Background(), uuid.New())
			if client.pollCalls != tt.wantPolls {
				t.Errorf("poll count mismatch\n got=%#v\nwant=%#v", client.pollCalls, tt.wantPolls)
			}
			if tt.wantKind != "" {
				if !fault.Is(err, tt.wantKind) {
					t.Errorf("fault kind mismatch\n got=%#v\nwant=%#v", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("WaitForReady() error: %#v", err)
			}
			if got.FQDN != tt.want.FQDN || len(got.Ports) != len(tt.want.Ports) {
				t.Errorf("endpoint mismatch\n got=%#v\nwant=%#v", got, tt.want)
			}
		})
	}
}

func TestWaitForReady_BackendErrorIsFatal(t *testing.T) {
	client := &mockClient{detailsErr: fault.New(fault.Backend, "details broke")}
	r := newTestResolver(client, Config{PollAttempts: 10}, time.Now())

	_, err := r.WaitForReady(context.Background(), uuid.New())
	if !fault.Is(err, fault.Backend) {
		t.Errorf("expected Backend fault, got %#v", err)
	}
	if got := client.countCalls("GetMatchServerDetails"); got != 1 {
		t.Errorf("backend error should not be retried\n got=%#v polls\nwant=1", got)
	}
}

func TestWaitForReady_CancellationAbandonsPolling(t *testing.T) {
	client := &mockClient{pollStates: []backend.ServerState{
		backend.StateProvisioning, backend.StateProvisioning, backend.StateProvisioning,
	}}
	r := newTestResolver(client, Config{PollAttempts: 3}, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel() // client disconnects mid-wait
		return ctx.Err()
	}

	_, err := r.WaitForReady(ctx, uuid.New())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation to surface, got %#v", err)
	}
	// Cancellation must not masquerade as an exhausted budget.
	if fault.Is(err, fault.Timeout) {
		t.Errorf("cancellation classified as Timeout: %#v", err)
	}
	if client.pollCalls != 1 {
		t.Errorf("polling continued after cancellation\n got=%#v polls\nwant=1", client.pollCalls)
	}
}

func TestSleepWithContext(t *testing.T) {
	tests := []struct {
		name    string
		cancel  bool
		wantErr bool
	}{
		{name: "elapses", cancel: false, wantErr: false},
		{name: "canceled", cancel: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			if tt.cancel {
				cancel()
			} else {
				defer cancel()
			}
			err := sleepWithContext(ctx, time.Millisecond)
			if (err != nil) != tt.wantErr {
				t.Errorf("sleepWithContext() error mismatch\n got=%#v\nwantErr=%#v", err, tt.wantErr)
			}
		})
	}
}
