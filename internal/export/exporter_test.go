package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"bookclub/internal/blob"
	"bookclub/internal/core"
	"bookclub/pkg/domain"

	"github.com/parquet-go/parquet-go"
)

var exportTime = time.Date(2024, 9, 1, 18, 45, 0, 0, time.UTC)

// seedLedger builds two transactions, one rejected with a reply and one
// pending, over a single copy.
func seedLedger(t *testing.T) *core.Service {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(nil, core.WithClock(core.ClockFunc(func() time.Time { return exportTime })))
	owner, _, err := svc.RegisterUser(ctx, "aiko", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ben, _, _ := svc.RegisterUser(ctx, "ben", "")
	chiho, _, _ := svc.RegisterUser(ctx, "chiho", "")
	book, _, err := svc.AddBook(ctx, owner.ID, core.BookInput{Title: "Kafka on the Shore", Authors: "Murakami Haruki"})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	first, _, err := svc.CreateBorrowRequest(ctx, book.ID, ben.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, _, err := svc.ReplyToRequest(ctx, first.ID, owner.ID, false, "lent it already"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, _, err := svc.CreateBorrowRequest(ctx, book.ID, chiho.ID); err != nil {
		t.Fatalf("second request: %v", err)
	}
	return svc
}

func TestLedgerRows(t *testing.T) {
	svc := seedLedger(t)
	rows, err := Ledger(context.Background(), svc.Store())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	byBorrower := map[string]LedgerRow{}
	for _, r := range rows {
		byBorrower[r.Borrower] = r
	}
	ben := byBorrower["ben"]
	if ben.State != string(domain.StateRejected) || ben.MessageCount != 1 || ben.Lender != "aiko" || ben.Title != "Kafka on the Shore" || ben.LendDate != "2024-09-01" {
		t.Fatalf("unexpected row %+v", ben)
	}
	if byBorrower["chiho"].State != string(domain.StateInitialRequest) || byBorrower["chiho"].MessageCount != 0 {
		t.Fatalf("unexpected row %+v", byBorrower["chiho"])
	}
}

func newTestExporter(t *testing.T) (*Exporter, blob.Store) {
	t.Helper()
	store := blob.NewMemory()
	return New(seedLedger(t).Store(), store, WithClock(func() time.Time { return exportTime })), store
}

func readArtifact(t *testing.T, store blob.Store, key string) []byte {
	t.Helper()
	_, rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return data
}

func TestExportJSONL(t *testing.T) {
	exp, store := newTestExporter(t)
	art, err := exp.Export(context.Background(), FormatJSONL)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if art.Key != "exports/20240901T184500Z.jsonl" || art.Rows != 2 || art.ContentType != "application/x-ndjson" {
		t.Fatalf("unexpected artifact %+v", art)
	}
	scanner := bufio.NewScanner(bytes.NewReader(readArtifact(t, store, art.Key)))
	lines := 0
	for scanner.Scan() {
		var row LedgerRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("decode line %d: %v", lines, err)
		}
		if row.TransactionID == "" {
			t.Fatalf("missing transaction id on line %d", lines)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestExportCSV(t *testing.T) {
	exp, store := newTestExporter(t)
	art, err := exp.Export(context.Background(), FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(readArtifact(t, store, art.Key))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 || strings.Join(records[0], ",") != strings.Join(ledgerColumns, ",") {
		t.Fatalf("unexpected csv %v", records)
	}
	info, err := store.Head(context.Background(), art.Key)
	if err != nil || info.Metadata["rows"] != "2" || info.ContentType != "text/csv" {
		t.Fatalf("unexpected blob info %+v %v", info, err)
	}
}

func TestExportParquet(t *testing.T) {
	exp, store := newTestExporter(t)
	art, err := exp.Export(context.Background(), FormatParquet)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data := readArtifact(t, store, art.Key)
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	if pf.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", pf.NumRows())
	}
	reader := parquet.NewGenericReader[LedgerRow](pf)
	defer reader.Close()
	rows := make([]LedgerRow, 4)
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("read parquet: %v", err)
	}
	if n != 2 || rows[0].Title != "Kafka on the Shore" {
		t.Fatalf("unexpected parquet rows %d %+v", n, rows[:n])
	}
}

func TestExportErrors(t *testing.T) {
	exp, _ := newTestExporter(t)
	ctx := context.Background()
	if _, err := exp.Export(ctx, "xlsx"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if _, err := exp.Export(ctx, FormatCSV); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := exp.Export(ctx, FormatCSV); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists for a second export in the same second, got %v", err)
	}
	if _, err := New(nil, nil).Export(ctx, FormatCSV); err == nil {
		t.Fatalf("expected missing blob store error")
	}
	list, err := exp.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one stored export, got %+v %v", list, err)
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"jsonl", " CSV ", "Parquet"} {
		if _, err := ParseFormat(in); err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Fatalf("expected error for json")
	}
}
