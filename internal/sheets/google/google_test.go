package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"budget/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets keeps one tab in memory and answers the three value endpoints we use.
type fakeSheets struct {
	mu      sync.Mutex
	values  [][]any
	updates int
	clears  []string
	fail    bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		http.Error(w, `{"error":{"code":503,"message":"backend error"}}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"majorDimension": "ROWS", "values": f.values})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updates++
		// Overwrite the top rows, keep anything below like the real API.
		for i, row := range vr.Values {
			if i < len(f.values) {
				f.values[i] = row
			} else {
				f.values = append(f.values, row)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(vr.Values)})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.clears = append(f.clears, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	default:
		http.NotFound(w, r)
	}
}

// truncate applies the pending clear of the trailing rows.
func (f *fakeSheets) truncate(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) > n {
		f.values = f.values[:n]
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "")
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewWithService_DefaultSheetName(t *testing.T) {
	c := NewWithService(nil, " id ", "")
	if c.sheet != "Transactions" || c.spreadsheetID != "id" {
		t.Fatalf("unexpected client: %+v", c)
	}
}

func TestClient_NilService(t *testing.T) {
	c := NewWithService(nil, "id", "Tx")
	if _, err := c.ReadAll(context.Background()); err == nil {
		t.Fatal("expected error without service")
	}
	if err := c.WriteAll(context.Background(), nil); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestClient_WriteThenRead(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	txs := []core.Transaction{
		{ID: 1, Date: core.NewDate(2024, 3, 1), Description: "Salaire", Amount: core.Money{Cents: 200000}, Category: "Revenus", Account: "CIC", Type: core.TypeIncome},
		{ID: 2, Date: core.NewDate(2024, 3, 2), Description: "Courses", Amount: core.Money{Cents: -5000}, Category: "Alimentaire", Account: "CIC", Type: core.TypeExpense},
	}
	if err := c.WriteAll(ctx, txs); err != nil {
		t.Fatalf("write: %v", err)
	}
	if fake.updates != 1 || len(fake.clears) != 1 {
		t.Fatalf("expected one update and one clear, got %d/%d", fake.updates, len(fake.clears))
	}

	got, err := c.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0] != txs[1] || got[1] != txs[0] {
		t.Fatalf("unexpected rows: %+v", got)
	}

	// Shrinking rewrites the top rows; the clear removes the rest.
	if err := c.WriteAll(ctx, txs[:1]); err != nil {
		t.Fatalf("write: %v", err)
	}
	fake.truncate(2)
	got, err = c.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0] != txs[0] {
		t.Fatalf("unexpected rows after shrink: %+v", got)
	}
}

func TestClient_Unavailable(t *testing.T) {
	fake := &fakeSheets{fail: true}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if _, err := c.ReadAll(ctx); !core.IsUnavailable(err) {
		t.Fatalf("expected unavailable on read, got %v", err)
	}
	if err := c.WriteAll(ctx, nil); !core.IsUnavailable(err) {
		t.Fatalf("expected unavailable on write, got %v", err)
	}
	if err := c.Ping(ctx); !core.IsUnavailable(err) {
		t.Fatalf("expected unavailable on ping, got %v", err)
	}
}
