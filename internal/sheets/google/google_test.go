package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"budget/internal/core"
	ports "budget/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets v4 values API the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	values   map[string][][]any // keyed by sheet name
	appended [][]any
	options  string
	render   string
	fail     bool
	appends  int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
		return
	}
	path := r.URL.Path
	sheet := ""
	for name := range f.values {
		if strings.Contains(path, "'"+name+"'") {
			sheet = name
		}
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &vr)
		f.appends++
		f.appended = append(f.appended, vr.Values...)
		f.values[sheet] = append(f.values[sheet], vr.Values...)
		f.options = r.URL.Query().Get("valueInputOption") + "/" + r.URL.Query().Get("insertDataOption")
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodGet && strings.HasSuffix(path, "A1:E1"):
		vals := f.values[sheet]
		if len(vals) > 0 {
			vals = vals[:1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": vals})
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		f.render = r.URL.Query().Get("valueRenderOption") + "/" + r.URL.Query().Get("dateTimeRenderOption")
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.values[sheet]})
	case r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-id"}`))
	default:
		http.NotFound(w, r)
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
	return NewWithService(svc, Options{SpreadsheetID: "sheet-id"})
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultSheetNames(t *testing.T) {
	c := NewWithService(nil, Options{SpreadsheetID: "id", BillsSheet: " Recurring Bills "})
	if c.SheetName(core.TransactionsTable) != "Transactions" {
		t.Errorf("unexpected transactions sheet %q", c.SheetName(core.TransactionsTable))
	}
	if c.SheetName(core.BillsTable) != "Recurring Bills" {
		t.Errorf("unexpected bills sheet %q", c.SheetName(core.BillsTable))
	}
}

func TestClient_LoadMapsHeader(t *testing.T) {
	fake := &fakeSheets{values: map[string][][]any{
		"Transactions": {
			{"Date", "Type", "Amount", "Category", "Notes"},
			{45444, "Income", 2000, "Salary"},
		},
		"Bills": {},
	}}
	c := newTestClient(t, fake)

	rows, err := c.Load(context.Background(), core.TransactionsTable)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 || rows[0][core.ColCategory] != "Salary" || rows[0][core.ColDate] != "2024-06-01" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if fake.render != "UNFORMATTED_VALUE/SERIAL_NUMBER" {
		t.Fatalf("unexpected render options %q", fake.render)
	}

	_, err = c.Load(context.Background(), core.BillsTable)
	if !errors.Is(err, ports.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for empty sheet, got %v", err)
	}
}

func TestClient_LoadUnreachable(t *testing.T) {
	fake := &fakeSheets{values: map[string][][]any{"Transactions": nil}, fail: true}
	c := newTestClient(t, fake)

	_, err := c.Load(context.Background(), core.TransactionsTable)
	if !errors.Is(err, ports.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_AppendSingleCall(t *testing.T) {
	fake := &fakeSheets{values: map[string][][]any{
		"Bills": {{"Name", "Amount", "Due Day", "Recurring", "Category"}},
	}}
	c := newTestClient(t, fake)

	rows := core.ToRows([]core.Bill{
		{Name: "Rent", Amount: core.Money{Cents: 120000}, DueDay: 1, Recurring: core.Monthly, Category: "Housing"},
		{Name: "Internet", Amount: core.Money{Cents: 6000}, DueDay: 20, Recurring: core.Monthly, Category: "Utilities"},
	})
	if err := c.Append(context.Background(), core.BillsTable, rows); err != nil {
		t.Fatalf("append: %v", err)
	}
	if fake.appends != 1 {
		t.Fatalf("expected 1 append call, got %d", fake.appends)
	}
	if fake.options != "USER_ENTERED/INSERT_ROWS" {
		t.Fatalf("unexpected options %q", fake.options)
	}
	if len(fake.appended) != 2 || fake.appended[1][0] != "Internet" || fake.appended[0][2] != "1" {
		t.Fatalf("unexpected appended values %v", fake.appended)
	}
}

func TestClient_AppendWritesHeaderToEmptySheet(t *testing.T) {
	fake := &fakeSheets{values: map[string][][]any{"Transactions": nil}}
	c := newTestClient(t, fake)

	rows := []core.Row{core.TransactionToRow(core.Transaction{
		Date: core.NewDate(2024, 6, 1), Type: core.Income, Amount: core.Money{Cents: 200000}, Category: "Salary",
	})}
	if err := c.Append(context.Background(), core.TransactionsTable, rows); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(fake.appended) != 2 || fake.appended[0][0] != "Date" || fake.appended[1][2] != "2000.00" {
		t.Fatalf("unexpected appended values %v", fake.appended)
	}

	loaded, err := c.Load(context.Background(), core.TransactionsTable)
	if err != nil || len(loaded) != 1 {
		t.Fatalf("expected 1 row after append, got %v (err=%v)", loaded, err)
	}
}

func TestClient_Ping(t *testing.T) {
	c := newTestClient(t, &fakeSheets{values: map[string][][]any{}})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.Load(context.Background(), core.TransactionsTable); err == nil {
		t.Fatal("expected error with nil service")
	}
	if err := c.Append(context.Background(), core.TransactionsTable, []core.Row{{}}); err == nil {
		t.Fatal("expected error with nil service")
	}
}
