package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"matchgate/fault"
)

func TestEnsureValid_CachesUntilExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	tests := []struct {
		name       string
		cached     Credential
		wantIssued int
	}{
		{name: "empty cache refreshes", cached: Credential{}, wantIssued: 1},
		{name: "expired refreshes", cached: Credential{Token: "old", Expires: now.Add(-time.Minute)}, wantIssued: 1},
		{name: "expiring now refreshes", cached: Credential{Token: "old", Expires: now}, wantIssued: 1},
		{name: "valid is reused", cached: Credential{Token: "old", Expires: now.Add(time.Hour)}, wantIssued: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var issued int
			m := NewTokenManager(func(ctx context.Context) (Credential, error) {
				issued++
				return Credential{Token: "fresh", Expires: now.Add(time.Hour)}, nil
			})
			m.now = func() time.Time { return now }
			m.cred = tt.cached

			cred, err := m.EnsureValid(context.Background())
			if err != nil {
				t.Fatalf("EnsureValid() error: %#v", err)
			}
			if issued != tt.wantIssued {
				t.Errorf("issue count mismatch\n got=%#v\nwant=%#v", issued, tt.wantIssued)
			}
			if tt.wantIssued == 0 && cred.Token != "old" {
				t.Errorf("expected cached credential, got %#v", cred)
			}
			if tt.wantIssued == 1 && cred.Token != "fresh" {
				t.Errorf("expected refreshed credential, got %#v", cred)
			}
		})
	}
}

func TestEnsureValid_SingleRefreshUnderConcurrency(t *testing.T) {
	var issued atomic.Int32
	m := NewTokenManager(func(ctx context.Context) (Credential, error) {
		issued.Add(1)
		time.Sleep(10 * time.Millisecond) // widen the race window
		return Credential{Token: "shared", Expires: time.Now().Add(time.Hour)}, nil
	})

	const callers = 32
	creds := make([]Credential, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cred, err := m.EnsureValid(context.Background())
			if err != nil {
				t.Errorf("EnsureValid() error: %#v", err)
				return
			}
			creds[i] = cred
		}(i)
	}
	wg.Wait()

	if got := issued.Load(); got != 1 {
		t.Errorf("IssueToken call count mismatch\n got=%#v\nwant=%#v", got, 1)
	}
	for i, c := range creds {
		if c.Token != "shared" {
			t.Errorf("caller %d observed %#v, want shared credential", i, c)
		}
	}
}

func TestEnsureValid_IssueFailureIsAuthFault(t *testing.T) {
	m := NewTokenManager(func(ctx context.Context) (Credential, error) {
		return Credential{}, errors.New("backend said no")
	})
	_, err := m.EnsureValid(context.Background())
	if !fault.Is(err, fault.Auth) {
		t.Errorf("expected AuthFailure fault, got %#v", err)
	}
}
