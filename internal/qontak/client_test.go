package qontak

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL: srv.URL,
		Token:   token,
		Filter:  "alltask",
		PerPage: 1000,
		Timeout: 2 * time.Second,
	}, zerolog.Nop())
}

func TestFetchTasks(t *testing.T) {
	var gotAuth, gotAccept, gotPath string
	var gotQuery map[string][]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"response": [
			{"id": 1, "crm_task_status_id": 4, "additional_fields": [{"name": "A", "value": "1"}]},
			{"id": "2", "name": "Visit", "additional_fields": null}
		], "meta": {"page": 1}}`))
	}, "secret-token")

	page, err := client.FetchTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Zero(t, page.Skipped)
	records := page.Records

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, TasksPath, gotPath)
	assert.Equal(t, []string{"alltask"}, gotQuery["filter"])
	assert.Equal(t, []string{"1"}, gotQuery["page"])
	assert.Equal(t, []string{"1000"}, gotQuery["per_page"])

	assert.Equal(t, "1", records[0].ID.Value)
	assert.Equal(t, "4", records[0].CrmTaskStatusID.Value)
	require.Len(t, records[0].AdditionalFields, 1)
	assert.Equal(t, "A", records[0].AdditionalFields[0].Name)

	assert.Equal(t, "2", records[1].ID.Value)
	assert.Empty(t, records[1].AdditionalFields)
	assert.JSONEq(t, `"Visit"`, string(records[1].Other["name"]))
}

func TestFetchTasksEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response": []}`))
	}, "")

	page, err := client.FetchTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, page.Records)
}

func TestFetchTasksSkipsNonObjectElements(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response": [null, {"id": 1}, 2, "task", [], {"id": 2}]}`))
	}, "")

	page, err := client.FetchTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, 4, page.Skipped)
	assert.Equal(t, "1", page.Records[0].ID.Value)
	assert.Equal(t, "2", page.Records[1].ID.Value)
}

func TestFetchTasksFailures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantErr     error
	}{
		{
			name:        "server error",
			status:      http.StatusInternalServerError,
			contentType: "application/json",
			body:        `{"error": "boom"}`,
			wantErr:     ErrUnexpectedStatus,
		},
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			contentType: "application/json",
			body:        `{"error": "token expired"}`,
			wantErr:     ErrUnexpectedStatus,
		},
		{
			name:        "html login page",
			status:      http.StatusOK,
			contentType: "text/html",
			body:        `<html></html>`,
			wantErr:     ErrUnexpectedContentType,
		},
		{
			name:        "broken json",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"response": [`,
			wantErr:     ErrInvalidPayload,
		},
		{
			name:        "no response key",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"data": []}`,
			wantErr:     ErrMissingResponse,
		},
		{
			name:        "response is not an array",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"response": {"id": 1}}`,
			wantErr:     ErrMissingResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, "token")

			page, err := client.FetchTasks(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Nil(t, page.Records)
		})
	}
}

func TestFetchTasksContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchTasks(ctx)
	require.Error(t, err)
}
