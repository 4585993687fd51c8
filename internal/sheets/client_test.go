package sheets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheetsAPI records requests and serves canned Sheets API responses.
type fakeSheetsAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	getBody  string
	status   int
}

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func (f *fakeSheetsAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		f.mu.Unlock()

		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "boom"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet && f.getBody != "" {
			_, _ = w.Write([]byte(f.getBody))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
}

func newTestClient(t *testing.T, fake *fakeSheetsAPI, cacheTTL time.Duration) *Client {
	t.Helper()
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithoutAuthentication())
	require.NoError(t, err)

	return &Client{
		service: srv,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		config: Config{
			SpreadsheetID:  "sheet1",
			DefinitionsTab: "Definitions",
			CacheTTL:       cacheTTL,
			RetryAttempts:  1,
			RetryDelay:     time.Millisecond,
		},
	}
}

func TestAddExpense(t *testing.T) {
	fake := &fakeSheetsAPI{}
	client := newTestClient(t, fake, 0)

	err := client.AddExpense(context.Background(), "Dec 24", "2024-12-06T00:00:00Z",
		"FairPrice", "Groceries", mustDecimal(t, "30.5"), "Amex", "Justin")
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Contains(t, req.Path, "/v4/spreadsheets/sheet1/values/'Dec 24'!A:G:append")

	var payload struct {
		Values [][]any `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(req.Body), &payload))
	require.Len(t, payload.Values, 1)
	row := payload.Values[0]
	require.Len(t, row, 7)
	assert.Equal(t, "12/6/24", row[1])
	assert.Equal(t, "FairPrice", row[2])
}

func TestAddExpenseAPIFailure(t *testing.T) {
	fake := &fakeSheetsAPI{status: http.StatusInternalServerError}
	client := newTestClient(t, fake, 0)

	err := client.AddExpense(context.Background(), "Dec 24", "2024-12-06T00:00:00Z",
		"FairPrice", "Groceries", mustDecimal(t, "30.5"), "Amex", "Justin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Dec 24")
}

func TestDefinitionsCaching(t *testing.T) {
	fake := &fakeSheetsAPI{
		getBody: `{"majorDimension": "COLUMNS", "values": [["Categories", "Dining"], ["Cards", "Cash"], ["Persons", "Justin"]]}`,
	}
	client := newTestClient(t, fake, time.Minute)

	defs, err := client.Definitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Dining"}, defs.Categories)
	assert.Equal(t, []string{"Cash"}, defs.Cards)

	// Second read within the TTL is served from cache.
	_, err = client.Definitions(context.Background())
	require.NoError(t, err)
	assert.Len(t, fake.requests, 1)

	// Invalidation forces a refresh.
	client.InvalidateDefinitions()
	_, err = client.Definitions(context.Background())
	require.NoError(t, err)
	assert.Len(t, fake.requests, 2)
}
