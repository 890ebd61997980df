package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"

	"github.com/toml0006/AWSCostMonitor-sub001/pkg/costs"
)

// CostExplorerAPI is the slice of the Cost Explorer client the fetcher uses.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, input *costexplorer.GetCostAndUsageInput,
		optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Fetcher fetches month-to-date costs from Cost Explorer. One underlying
// client is built lazily per profile, since each profile carries its own
// credentials.
type Fetcher struct {
	mu      sync.Mutex
	clients map[string]CostExplorerAPI
	newAPI  func(ctx context.Context, profile costs.Profile) (CostExplorerAPI, error)
	logger  *slog.Logger
}

// NewFetcher creates a fetcher backed by real Cost Explorer clients.
func NewFetcher() *Fetcher {
	return &Fetcher{
		clients: make(map[string]CostExplorerAPI),
		newAPI:  newCostExplorerClient,
		logger:  slog.Default().With("component", "billing.fetcher"),
	}
}

// NewFetcherWithAPI creates a fetcher that uses api for every profile.
// Intended for tests.
func NewFetcherWithAPI(api CostExplorerAPI) *Fetcher {
	return &Fetcher{
		clients: make(map[string]CostExplorerAPI),
		newAPI: func(context.Context, costs.Profile) (CostExplorerAPI, error) {
			return api, nil
		},
		logger: slog.Default().With("component", "billing.fetcher"),
	}
}

func newCostExplorerClient(ctx context.Context, profile costs.Profile) (CostExplorerAPI, error) {
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
	return costexplorer.NewFromConfig(cfg), nil
}

func (f *Fetcher) apiFor(ctx context.Context, profile costs.Profile) (CostExplorerAPI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if api, ok := f.clients[profile.Name]; ok {
		return api, nil
	}
	api, err := f.newAPI(ctx, profile)
	if err != nil {
		return nil, err
	}
	f.clients[profile.Name] = api
	return api, nil
}

// FetchMonthToDate fetches per-service and per-day costs for the range.
func (f *Fetcher) FetchMonthToDate(ctx context.Context, profile costs.Profile, r costs.DateRange) (costs.MonthToDate, error) {
	api, err := f.apiFor(ctx, profile)
	if err != nil {
		return costs.MonthToDate{}, err
	}

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(r.Start.Format("2006-01-02")),
			End:   aws.String(r.End.Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{
				Type: cetypes.GroupDefinitionTypeDimension,
				Key:  aws.String("SERVICE"),
			},
		},
	}

	serviceTotals := make(map[string]decimal.Decimal)
	dailyTotals := make(map[time.Time]decimal.Decimal)
	currency := ""

	for {
		out, err := api.GetCostAndUsage(ctx, input)
		if err != nil {
			return costs.MonthToDate{}, fmt.Errorf("cost explorer query failed for profile %q: %w", profile.Name, err)
		}

		for _, period := range out.ResultsByTime {
			day, ok := parseDay(period.TimePeriod)
			for _, group := range period.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				metric, found := group.Metrics["UnblendedCost"]
				if !found || metric.Amount == nil {
					continue
				}
				amount, err := decimal.NewFromString(*metric.Amount)
				if err != nil {
					f.logger.Warn("skipping unparseable cost amount",
						"profile", profile.Name, "service", group.Keys[0], "amount", *metric.Amount)
					continue
				}
				if currency == "" && metric.Unit != nil {
					currency = *metric.Unit
				}
				service := group.Keys[0]
				serviceTotals[service] = serviceTotals[service].Add(amount)
				if ok {
					dailyTotals[day] = dailyTotals[day].Add(amount)
				}
			}
		}

		if out.NextPageToken == nil || *out.NextPageToken == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	if currency == "" {
		currency = "USD"
	}

	result := costs.MonthToDate{Currency: currency}
	for name, amount := range serviceTotals {
		result.Services = append(result.Services, costs.ServiceCost{
			ServiceName: name, Amount: amount, Currency: currency,
		})
	}
	sort.Slice(result.Services, func(i, j int) bool {
		if !result.Services[i].Amount.Equal(result.Services[j].Amount) {
			return result.Services[i].Amount.GreaterThan(result.Services[j].Amount)
		}
		return result.Services[i].ServiceName < result.Services[j].ServiceName
	})
	for day, amount := range dailyTotals {
		result.Daily = append(result.Daily, costs.DailyCost{
			Date: day, Amount: amount, Currency: currency,
		})
	}
	sort.Slice(result.Daily, func(i, j int) bool {
		return result.Daily[i].Date.Before(result.Daily[j].Date)
	})

	return result, nil
}

func parseDay(interval *cetypes.DateInterval) (time.Time, bool) {
	if interval == nil || interval.Start == nil {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", *interval.Start)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
