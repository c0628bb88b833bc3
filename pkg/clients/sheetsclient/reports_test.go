package sheetsclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeSheets records the calls made against a minimal Sheets API
type fakeSheets struct {
	mu       sync.Mutex
	tabs     []string
	calls    []string
	written  [][]interface{}
	createOK bool
}

func (f *fakeSheets) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && !strings.Contains(path, "/values/"):
		sheets := make([]map[string]any, len(f.tabs))
		for i, t := range f.tabs {
			sheets[i] = map[string]any{"properties": map[string]any{"title": t}}
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		f.createOK = true
		io.WriteString(w, `{"replies":[{"addSheet":{"properties":{"sheetId":7}}}]}`)
	case strings.HasSuffix(path, ":clear"):
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.written = body.Values
		io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected call", http.StatusNotFound)
	}
}

func newFakeClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	client, err := NewClientWithOptions(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return client
}

func TestReportTabTitle(t *testing.T) {
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Shifts Mon Mar 10 2025 - Sun Mar 16 2025", ReportTabTitle(from, to))
}

func TestPublishReport_CreatesMissingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Other"}}
	client := newFakeClient(t, fake)

	report := &PublishedReport{
		From:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
		Values: [][]string{{"Employee", "Date"}, {"Ada", "2025-03-10"}},
	}

	tab, err := client.PublishReport(context.Background(), "sheet123", "", report)
	require.NoError(t, err)
	assert.Equal(t, "Shifts Mon Mar 10 2025 - Sun Mar 16 2025", tab)
	assert.True(t, fake.createOK)

	require.Len(t, fake.written, 2)
	assert.Equal(t, []interface{}{"Ada", "2025-03-10"}, fake.written[1])
}

func TestPublishReport_OverwritesExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Weekly"}}
	client := newFakeClient(t, fake)

	tab, err := client.PublishReport(context.Background(), "sheet123", "Weekly", &PublishedReport{
		Values: [][]string{{"Employee"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Weekly", tab)
	assert.False(t, fake.createOK, "existing tab is reused")

	var cleared bool
	for _, c := range fake.calls {
		if strings.HasSuffix(c, ":clear") {
			cleared = true
		}
	}
	assert.True(t, cleared)
	assert.Equal(t, [][]interface{}{{"Employee"}}, fake.written)
}

func TestToSheetValues(t *testing.T) {
	values := toSheetValues([][]string{{"a", "b"}, {}})
	assert.Equal(t, [][]interface{}{{"a", "b"}, {}}, values)
}
