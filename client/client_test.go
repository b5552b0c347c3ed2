package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-amo/portal-shell/client"
	"github.com/skyward-amo/portal-shell/model"
)

func TestTrainingClientFetchUnread(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/notifications", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("unread"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "amo-1", r.Header.Get("X-Tenant-ID"))
		assert.Equal(t, "tech-1", r.Header.Get("X-Subject-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"n1","title":"Course due"},{"id":"n2","title":"Recert"}]`))
	}))
	defer srv.Close()

	c := client.NewTrainingClient(srv.URL)
	items, err := c.FetchUnread(context.Background(), "amo-1", "tech-1", 50)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "n1", items[0].ID)
	assert.Equal(t, model.SourceTraining, items[0].Source, "source is stamped client-side")
}

func TestQMSClientForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := client.NewQMSClient(srv.URL)
	_, err := c.FetchNotifications(context.Background(), "amo-1", "tech-1")
	require.Error(t, err)
	assert.True(t, client.IsForbidden(err))

	var se *client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestIsForbiddenOnlyMatches403(t *testing.T) {
	assert.False(t, client.IsForbidden(nil))
	assert.False(t, client.IsForbidden(&client.StatusError{Code: http.StatusUnauthorized}))
	assert.False(t, client.IsForbidden(context.Canceled))
	assert.True(t, client.IsForbidden(&client.StatusError{Code: http.StatusForbidden}))
}

func TestSubscriptionClientRejectsInvalidSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tenants/amo-1/subscription", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"isReadOnly":false,"status":"bogus"}`))
	}))
	defer srv.Close()

	c := client.NewSubscriptionClient(srv.URL)
	_, err := c.Fetch(context.Background(), "amo-1", "tech-1")
	assert.ErrorContains(t, err, "invalid subscription snapshot")
}

func TestSubscriptionClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"isReadOnly":true,"status":"past_due"}`))
	}))
	defer srv.Close()

	c := client.NewSubscriptionClient(srv.URL)
	snapshot, err := c.Fetch(context.Background(), "amo-1", "tech-1")
	require.NoError(t, err)
	assert.True(t, snapshot.IsReadOnly)
	assert.Equal(t, model.SubscriptionPastDue, snapshot.Status)
}

func TestOverviewClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := client.NewOverviewClient(srv.URL)
	_, err := c.Fetch(context.Background(), "amo-1")
	require.Error(t, err)
	assert.False(t, client.IsForbidden(err))
}
