package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

type fakeSTS struct {
	account string
	err     error
	calls   int
}

func (f *fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput,
	...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

func TestResolveAccountID_Cached(t *testing.T) {
	api := &fakeSTS{account: "123456789012"}
	r := NewResolverWithAPI(api)
	profile := costs.Profile{Name: "prod"}

	id, err := r.ResolveAccountID(context.Background(), profile)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id != "123456789012" {
		t.Errorf("Unexpected account id: %s", id)
	}

	// Second call hits the cache
	if _, err := r.ResolveAccountID(context.Background(), profile); err != nil {
		t.Fatal(err)
	}
	if api.calls != 1 {
		t.Errorf("Expected 1 STS call, got %d", api.calls)
	}
}

func TestResolveAccountID_FailureNotCached(t *testing.T) {
	api := &fakeSTS{err: errors.New("no credentials")}
	r := NewResolverWithAPI(api)
	profile := costs.Profile{Name: "prod"}

	if _, err := r.ResolveAccountID(context.Background(), profile); err == nil {
		t.Fatal("Expected error")
	}

	// A later call retries rather than caching the failure
	api.err = nil
	api.account = "123456789012"
	id, err := r.ResolveAccountID(context.Background(), profile)
	if err != nil || id != "123456789012" {
		t.Errorf("Expected recovery after failure, got id=%q err=%v", id, err)
	}
}
