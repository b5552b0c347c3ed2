// client/notifications.go
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/skyward-amo/portal-shell/model"
)

// TrainingClient fetches unread training notifications. This is the only
// source that feeds the numeric unread badge.
type TrainingClient struct {
	baseURL string
	http    *http.Client
}

func NewTrainingClient(baseURL string) *TrainingClient {
	return &TrainingClient{baseURL: baseURL, http: newHTTPClient()}
}

func (c *TrainingClient) FetchUnread(ctx context.Context, tenantID, subjectID string, limit int) ([]model.NotificationItem, error) {
	url := fmt.Sprintf("%s/v1/notifications?unread=true&limit=%d", c.baseURL, limit)
	var items []model.NotificationItem
	if err := getJSON(ctx, c.http, url, tenantID, subjectID, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Source = model.SourceTraining
	}
	return items, nil
}

// QMSClient fetches quality-management notifications.
type QMSClient struct {
	baseURL string
	http    *http.Client
}

func NewQMSClient(baseURL string) *QMSClient {
	return &QMSClient{baseURL: baseURL, http: newHTTPClient()}
}

func (c *QMSClient) FetchNotifications(ctx context.Context, tenantID, subjectID string) ([]model.NotificationItem, error) {
	url := fmt.Sprintf("%s/v1/qms/notifications", c.baseURL)
	var items []model.NotificationItem
	if err := getJSON(ctx, c.http, url, tenantID, subjectID, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Source = model.SourceQMS
	}
	return items, nil
}

// DocumentClient fetches document alerts.
type DocumentClient struct {
	baseURL string
	http    *http.Client
}

func NewDocumentClient(baseURL string) *DocumentClient {
	return &DocumentClient{baseURL: baseURL, http: newHTTPClient()}
}

func (c *DocumentClient) FetchAlerts(ctx context.Context, tenantID, subjectID string) ([]model.NotificationItem, error) {
	url := fmt.Sprintf("%s/v1/documents/alerts", c.baseURL)
	var items []model.NotificationItem
	if err := getJSON(ctx, c.http, url, tenantID, subjectID, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Source = model.SourceDocuments
	}
	return items, nil
}
