package client

import (
	"context"
	"net/http"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

type DashboardService struct {
	client *Client
}

func (c *Client) Dashboard() *DashboardService {
	return &DashboardService{client: c}
}

func (d *DashboardService) Get(ctx context.Context) (*v1.DashboardStats, error) {
	var stats v1.DashboardStats
	if err := d.client.do(ctx, "dashboard", http.MethodGet, "/officer/dashboard", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
