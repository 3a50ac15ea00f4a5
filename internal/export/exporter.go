package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bookclub/internal/blob"

	"github.com/parquet-go/parquet-go"
)

// Format selects the encoding of an export.
type Format string

// Supported export formats.
const (
	FormatJSONL   Format = "jsonl"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSONL, FormatCSV, FormatParquet}
}

// ParseFormat validates a user supplied format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// KeyPrefix is the blob prefix export artifacts are stored under.
const KeyPrefix = "exports/"

// Artifact describes a stored export.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// Logger is the subset of *slog.Logger used by the exporter.
type Logger interface {
	Info(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}

// Exporter renders the ledger and stores it in a blob store.
type Exporter struct {
	source Viewer
	blobs  blob.Store
	now    func() time.Time
	logger Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the time used for artifact keys.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger installs a logger.
func WithLogger(l Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New constructs an exporter reading from source and writing to blobs.
func New(source Viewer, blobs blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		source: source,
		blobs:  blobs,
		now:    func() time.Time { return time.Now().UTC() },
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes the ledger as format to exports/<timestamp>.<ext>.
func (e *Exporter) Export(ctx context.Context, format Format) (Artifact, error) {
	if e.blobs == nil {
		return Artifact{}, fmt.Errorf("export: blob store not configured")
	}
	rows, err := Ledger(ctx, e.source)
	if err != nil {
		return Artifact{}, fmt.Errorf("export: collect ledger: %w", err)
	}
	payload, contentType, err := materialize(format, rows)
	if err != nil {
		return Artifact{}, err
	}
	created := e.now().UTC()
	key := KeyPrefix + created.Format("20060102T150405Z") + "." + string(format)
	info, err := e.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"rows":   strconv.Itoa(len(rows)),
			"format": string(format),
		},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("export: store %s: %w", key, err)
	}
	e.logger.Info("ledger exported", "key", info.Key, "format", string(format), "rows", len(rows), "bytes", len(payload))
	return Artifact{
		Key:         info.Key,
		Format:      format,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Rows:        len(rows),
		CreatedAt:   created,
	}, nil
}

// List returns stored export artifacts by key.
func (e *Exporter) List(ctx context.Context) ([]blob.Info, error) {
	if e.blobs == nil {
		return nil, fmt.Errorf("export: blob store not configured")
	}
	return e.blobs.List(ctx, KeyPrefix)
}

func materialize(format Format, rows []LedgerRow) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	switch format {
	case FormatJSONL:
		enc := json.NewEncoder(buf)
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return nil, "", fmt.Errorf("encode jsonl: %w", err)
			}
		}
		return buf.Bytes(), "application/x-ndjson", nil
	case FormatCSV:
		writer := csv.NewWriter(buf)
		if err := writer.Write(ledgerColumns); err != nil {
			return nil, "", err
		}
		for _, row := range rows {
			if err := writer.Write(row.record()); err != nil {
				return nil, "", err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	case FormatParquet:
		writer := parquet.NewGenericWriter[LedgerRow](buf)
		if _, err := writer.Write(rows); err != nil {
			return nil, "", fmt.Errorf("write parquet rows: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("close parquet writer: %w", err)
		}
		return buf.Bytes(), "application/vnd.apache.parquet", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}
