// client/subscription.go
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/skyward-amo/portal-shell/model"
)

// SubscriptionClient fetches the tenant's subscription snapshot from the
// billing backend.
type SubscriptionClient struct {
	baseURL string
	http    *http.Client
}

func NewSubscriptionClient(baseURL string) *SubscriptionClient {
	return &SubscriptionClient{baseURL: baseURL, http: newHTTPClient()}
}

func (c *SubscriptionClient) Fetch(ctx context.Context, tenantID, subjectID string) (*model.SubscriptionSnapshot, error) {
	url := fmt.Sprintf("%s/v1/tenants/%s/subscription", c.baseURL, tenantID)
	var snapshot model.SubscriptionSnapshot
	if err := getJSON(ctx, c.http, url, tenantID, subjectID, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subscription snapshot: %w", err)
	}
	return &snapshot, nil
}
