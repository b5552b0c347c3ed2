// client/overview.go
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/skyward-amo/portal-shell/model"
)

// OverviewClient fetches the billing/usage overview that drives the shell's
// badge row.
type OverviewClient struct {
	baseURL string
	http    *http.Client
}

func NewOverviewClient(baseURL string) *OverviewClient {
	return &OverviewClient{baseURL: baseURL, http: newHTTPClient()}
}

func (c *OverviewClient) Fetch(ctx context.Context, tenantID string) (*model.OverviewSummary, error) {
	url := fmt.Sprintf("%s/v1/tenants/%s/overview", c.baseURL, tenantID)
	var summary model.OverviewSummary
	if err := getJSON(ctx, c.http, url, tenantID, "", &summary); err != nil {
		return nil, fmt.Errorf("failed to fetch overview: %w", err)
	}
	return &summary, nil
}
