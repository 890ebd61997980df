package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// STSAPI is the slice of the STS client the resolver uses.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, input *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Resolver maps profiles to their AWS account id, caching results.
type Resolver struct {
	mu     sync.Mutex
	cache  map[string]string
	newAPI func(ctx context.Context, profile costs.Profile) (STSAPI, error)
}

// NewResolver creates a resolver backed by real STS clients.
func NewResolver() *Resolver {
	return &Resolver{
		cache:  make(map[string]string),
		newAPI: newSTSClient,
	}
}

// NewResolverWithAPI creates a resolver that uses api for every profile.
// Intended for tests.
func NewResolverWithAPI(api STSAPI) *Resolver {
	return &Resolver{
		cache: make(map[string]string),
		newAPI: func(context.Context, costs.Profile) (STSAPI, error) {
			return api, nil
		},
	}
}

func newSTSClient(ctx context.Context, profile costs.Profile) (STSAPI, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if profile.Name != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile.Name))
	}
	if profile.Region != "" {
		opts = append(opts, awsconfig.WithRegion(profile.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for profile %q: %w", profile.Name, err)
	}
	return sts.NewFromConfig(cfg), nil
}

// ResolveAccountID returns the account id for a profile, consulting the
// cache first.
func (r *Resolver) ResolveAccountID(ctx context.Context, profile costs.Profile) (string, error) {
	r.mu.Lock()
	if id, ok := r.cache[profile.Name]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	api, err := r.newAPI(ctx, profile)
	if err != nil {
		return "", err
	}
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("caller identity lookup failed for profile %q: %w", profile.Name, err)
	}
	if out.Account == nil || *out.Account == "" {
		return "", errors.New("caller identity returned no account id")
	}

	r.mu.Lock()
	r.cache[profile.Name] = *out.Account
	r.mu.Unlock()
	return *out.Account, nil
}
