package scan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"rowbridge/cli/internal/credential"
	"rowbridge/cli/internal/pushdown"
	"rowbridge/cli/internal/schema"
	"rowbridge/cli/internal/wraperr"
	"rowbridge/cli/internal/wrapper"
)

func airtableColumns() []schema.Column {
	return []schema.Column{
		{Name: "id", Type: schema.TypeText},
		{Name: "Name", Type: schema.TypeText},
		{Name: "Amount", Type: schema.TypeBigint},
	}
}

func airtableConfig(t *testing.T, baseURL string) Config {
	t.Helper()
	w, err := wrapper.New("airtable")
	if err != nil {
		t.Fatalf("New(airtable): %v", err)
	}
	return Config{
		ServerName: "grid",
		Wrapper:    w,
		ServerOpts: map[string]string{"api_url": baseURL, "api_key": "patTest"},
		TableOpts:  map[string]string{"base_id": "appX", "table_id": "tblY"},
		Columns:    airtableColumns(),
		Resolver:   credential.NewResolver(nil, credential.NewCache()),
	}
}

func stripeConfig(t *testing.T, baseURL, object string) Config {
	t.Helper()
	w, err := wrapper.New("stripe")
	if err != nil {
		t.Fatalf("New(stripe): %v", err)
	}
	return Config{
		ServerName: "payments",
		Wrapper:    w,
		ServerOpts: map[string]string{"api_url": baseURL, "api_key": "sk_test_x"},
		TableOpts:  map[string]string{"object": object},
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeText},
			{Name: "amount", Type: schema.TypeBigint},
		},
		Resolver: credential.NewResolver(nil, credential.NewCache()),
	}
}

func drain(t *testing.T, it *Iterator) [][]any {
	t.Helper()
	var rows [][]any
	for it.Next() {
		row, err := it.Values()
		if err != nil {
			t.Fatalf("Values: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestScanYieldsAllPagesInOrder(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Query().Get("offset") {
		case "":
			w.Write([]byte(`{"records": [
				{"id": "recA", "createdTime": "2024-01-15T10:00:00.000Z", "fields": {"Name": "A", "Amount": 10}},
				{"id": "recB", "createdTime": "2024-01-15T11:00:00.000Z", "fields": {"Name": "B", "Amount": 20}}
			], "offset": "cur1"}`))
		case "cur1":
			w.Write([]byte(`{"records": [
				{"id": "recC", "createdTime": "2024-01-15T12:00:00.000Z", "fields": {"Name": "C", "Amount": 30}}
			]}`))
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	it, err := Begin(context.Background(), airtableConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	if got := requests.Load(); got != 0 {
		t.Fatalf("Begin issued %d requests, want 0", got)
	}
	if it.State() != StateIdle {
		t.Fatalf("state after Begin = %v, want %v", it.State(), StateIdle)
	}

	rows := drain(t, it)
	if err := it.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if it.State() != StateDone {
		t.Fatalf("state = %v, want %v", it.State(), StateDone)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i, want := range []string{"recA", "recB", "recC"} {
		if rows[i][0] != want {
			t.Errorf("row %d id = %v, want %q", i, rows[i][0], want)
		}
	}
	if rows[2][2] != int64(30) {
		t.Errorf("row 2 Amount = %v (%T), want int64 30", rows[2][2], rows[2][2])
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("scan issued %d requests, want 2", got)
	}
}

func TestScanTrailingCursorThenEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "" {
			w.Write([]byte(`{"records": [
				{"id": "recA", "createdTime": "2024-01-15T10:00:00Z", "fields": {"Name": "A", "Amount": 1}}
			], "offset": "tail"}`))
			return
		}
		w.Write([]byte(`{"records": []}`))
	}))
	defer srv.Close()

	it, err := Begin(context.Background(), airtableConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	rows := drain(t, it)
	if err := it.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if it.State() != StateDone {
		t.Errorf("state = %v, want %v", it.State(), StateDone)
	}
}

func TestScanCoercionFailureFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records": [
			{"id": "recA", "createdTime": "2024-01-15T10:00:00Z", "fields": {"Name": "A", "Amount": 1}},
			{"id": "recB", "createdTime": "2024-01-15T11:00:00Z", "fields": {"Name": "B", "Amount": "not a number"}}
		]}`))
	}))
	defer srv.Close()

	it, err := Begin(context.Background(), airtableConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	rows := drain(t, it)
	if len(rows) != 1 {
		t.Fatalf("got %d rows before failure, want 1", len(rows))
	}
	if it.State() != StateFailed {
		t.Fatalf("state = %v, want %v", it.State(), StateFailed)
	}
	if kind, ok := wraperr.KindOf(it.Err()); !ok || kind != wraperr.TypeCoercion {
		t.Fatalf("Err kind = %v, want %v", kind, wraperr.TypeCoercion)
	}
	if it.Next() {
		t.Error("Next returned true after failure")
	}
}

func TestScanRemainderFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("Name") {
			t.Error("equality predicate leaked into request parameters")
		}
		w.Write([]byte(`{"records": [
			{"id": "recA", "createdTime": "2024-01-15T10:00:00Z", "fields": {"Name": "A", "Amount": 1}},
			{"id": "recB", "createdTime": "2024-01-15T11:00:00Z", "fields": {"Name": "B", "Amount": 2}},
			{"id": "recC", "createdTime": "2024-01-15T12:00:00Z", "fields": {"Name": "B", "Amount": 3}}
		]}`))
	}))
	defer srv.Close()

	cfg := airtableConfig(t, srv.URL)
	cfg.Quals = []pushdown.Qual{{Column: "Name", Op: pushdown.OpEq, Values: []string{"B"}}}

	it, err := Begin(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	rows := drain(t, it)
	if err := it.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != "recB" || rows[1][0] != "recC" {
		t.Errorf("filtered ids = %v, %v; want recB, recC", rows[0][0], rows[1][0])
	}
}

func TestScanLimitStopsEarly(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"records": [
			{"id": "recA", "createdTime": "2024-01-15T10:00:00Z", "fields": {"Name": "A", "Amount": 1}},
			{"id": "recB", "createdTime": "2024-01-15T11:00:00Z", "fields": {"Name": "B", "Amount": 2}},
			{"id": "recC", "createdTime": "2024-01-15T12:00:00Z", "fields": {"Name": "C", "Amount": 3}}
		], "offset": "more"}`))
	}))
	defer srv.Close()

	cfg := airtableConfig(t, srv.URL)
	cfg.Limit = 2

	it, err := Begin(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	rows := drain(t, it)
	if err := it.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if it.State() != StateDone {
		t.Errorf("state = %v, want %v", it.State(), StateDone)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("scan issued %d requests, want 1", got)
	}
}

func TestScanLimitCountsFilteredRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records": [
			{"id": "recA", "createdTime": "2024-01-15T10:00:00Z", "fields": {"Name": "A", "Amount": 1}},
			{"id": "recB", "createdTime": "2024-01-15T11:00:00Z", "fields": {"Name": "B", "Amount": 2}},
			{"id": "recC", "createdTime": "2024-01-15T12:00:00Z", "fields": {"Name": "B", "Amount": 3}},
			{"id": "recD", "createdTime": "2024-01-15T13:00:00Z", "fields": {"Name": "B", "Amount": 4}}
		]}`))
	}))
	defer srv.Close()

	cfg := airtableConfig(t, srv.URL)
	cfg.Quals = []pushdown.Qual{{Column: "Name", Op: pushdown.OpEq, Values: []string{"B"}}}
	cfg.Limit = 2

	it, err := Begin(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	rows := drain(t, it)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != "recB" || rows[1][0] != "recC" {
		t.Errorf("rows = %v, %v; want recB, recC", rows[0][0], rows[1][0])
	}
}

func TestScanProjectionReachesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query()["fields[]"]; len(got) != 1 || got[0] != "Name" {
			t.Errorf("fields[] = %v, want [Name]", got)
		}
		w.Write([]byte(`{"records": [
			{"id": "recA", "createdTime": "2024-01-15T10:00:00Z", "fields": {"Name": "A"}}
		]}`))
	}))
	defer srv.Close()

	cfg := airtableConfig(t, srv.URL)
	cfg.Projection = []string{"id", "Name"}

	it, err := Begin(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	rows := drain(t, it)
	if err := it.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}

func TestScanStripeNotFoundYieldsNoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"message": "No such resource"}}`))
	}))
	defer srv.Close()

	it, err := Begin(context.Background(), stripeConfig(t, srv.URL, "charges"))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	rows := drain(t, it)
	if err := it.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(rows))
	}
	if it.State() != StateDone {
		t.Errorf("state = %v, want %v", it.State(), StateDone)
	}
}

func TestScanAirtableNotFoundFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "NOT_FOUND"}`))
	}))
	defer srv.Close()

	it, err := Begin(context.Background(), airtableConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	if it.Next() {
		t.Fatal("Next returned true for a missing table")
	}
	if kind, ok := wraperr.KindOf(it.Err()); !ok || kind != wraperr.RemoteRequest {
		t.Fatalf("Err kind = %v, want %v", kind, wraperr.RemoteRequest)
	}
	if it.State() != StateFailed {
		t.Errorf("state = %v, want %v", it.State(), StateFailed)
	}
}

func TestScanStripePointLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges/ch_42" {
			t.Errorf("path = %q, want /charges/ch_42", r.URL.Path)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want empty", r.URL.RawQuery)
		}
		w.Write([]byte(`{"id": "ch_42", "object": "charge", "amount": 1099}`))
	}))
	defer srv.Close()

	cfg := stripeConfig(t, srv.URL, "charges")
	cfg.Quals = []pushdown.Qual{{Column: "id", Op: pushdown.OpEq, Values: []string{"ch_42"}}}

	it, err := Begin(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	rows := drain(t, it)
	if err := it.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0][0] != "ch_42" || rows[0][1] != int64(1099) {
		t.Errorf("row = %v, want [ch_42 1099]", rows[0])
	}
}

func TestBeginRejectsBadDefinitionBeforeNetwork(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"records": []}`))
	}))
	defer srv.Close()

	t.Run("both credential options", func(t *testing.T) {
		cfg := airtableConfig(t, srv.URL)
		cfg.ServerOpts["api_key_id"] = "airtable_main"
		_, err := Begin(context.Background(), cfg)
		if kind, ok := wraperr.KindOf(err); !ok || kind != wraperr.InvalidOption {
			t.Fatalf("Begin error kind = %v, want %v", kind, wraperr.InvalidOption)
		}
	})

	t.Run("missing table option", func(t *testing.T) {
		cfg := airtableConfig(t, srv.URL)
		delete(cfg.TableOpts, "base_id")
		_, err := Begin(context.Background(), cfg)
		if kind, ok := wraperr.KindOf(err); !ok || kind != wraperr.InvalidOption {
			t.Fatalf("Begin error kind = %v, want %v", kind, wraperr.InvalidOption)
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		cfg := stripeConfig(t, srv.URL, "charges")
		cfg.Columns = append(cfg.Columns, schema.Column{Name: "favorite_color", Type: schema.TypeText})
		_, err := Begin(context.Background(), cfg)
		if kind, ok := wraperr.KindOf(err); !ok || kind != wraperr.InvalidOption {
			t.Fatalf("Begin error kind = %v, want %v", kind, wraperr.InvalidOption)
		}
	})

	if got := requests.Load(); got != 0 {
		t.Errorf("definition checks issued %d requests, want 0", got)
	}
}

func TestIteratorCloseStopsScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records": [
			{"id": "recA", "createdTime": "2024-01-15T10:00:00Z", "fields": {"Name": "A", "Amount": 1}},
			{"id": "recB", "createdTime": "2024-01-15T11:00:00Z", "fields": {"Name": "B", "Amount": 2}}
		], "offset": "more"}`))
	}))
	defer srv.Close()

	it, err := Begin(context.Background(), airtableConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !it.Next() {
		t.Fatalf("Next: %v", it.Err())
	}
	if err := it.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if it.Next() {
		t.Error("Next returned true after Close")
	}
	if it.State() != StateDone {
		t.Errorf("state = %v, want %v", it.State(), StateDone)
	}
	if err := it.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestValuesBeforeNext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records": []}`))
	}))
	defer srv.Close()

	it, err := Begin(context.Background(), airtableConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	if _, err := it.Values(); err == nil {
		t.Error("Values before Next succeeded, want error")
	}
}
