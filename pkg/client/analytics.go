package client

import (
	"context"
	"net/http"
	"net/url"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

type AnalyticsService struct {
	client *Client
}

func (c *Client) Analytics() *AnalyticsService {
	return &AnalyticsService{client: c}
}

// Get returns the report for period, DefaultAnalyticsPeriod when empty.
func (a *AnalyticsService) Get(ctx context.Context, period string) (*v1.Analytics, error) {
	if period == "" {
		period = v1.DefaultAnalyticsPeriod
	}
	query := url.Values{}
	query.Set("period", period)
	var report v1.Analytics
	if err := a.client.do(ctx, "analytics", http.MethodGet, "/officer/analytics", query, nil, &report); err != nil {
		return nil, err
	}
	if report.Period == "" {
		report.Period = period
	}
	return &report, nil
}
