// Package auditlog appends one flat CSV row per payment line of every issued
// receipt. Rows are never rewritten.
package auditlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recibo/internal/model"
)

// Entry is one row in the audit log.
type Entry struct {
	Date        string // DD-MM-YYYY
	Client      string
	Description string // the receipt memo
	Method      string
	Amount      decimal.Decimal
	Total       decimal.Decimal // sum of all payment lines of the receipt
}

// Header is the CSV header of the audit log.
const Header = "date,client,description,method,amount,total"

const (
	numFields = 6
	colDate   = 0
	colClient = 1
	colDesc   = 2
	colMethod = 3
	colAmount = 4
	colTotal  = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colDate] = e.Date
	row[colClient] = e.Client
	row[colDesc] = e.Description
	row[colMethod] = e.Method
	row[colAmount] = e.Amount.StringFixed(2)
	row[colTotal] = e.Total.StringFixed(2)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	total, err := decimal.NewFromString(record[colTotal])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing total %q: %w", record[colTotal], err)
	}

	return Entry{
		Date:        record[colDate],
		Client:      record[colClient],
		Description: record[colDesc],
		Method:      record[colMethod],
		Amount:      amount,
		Total:       total,
	}, nil
}

// Entries builds one row per payment line; every row carries the total of
// all payment lines.
func Entries(client, date, memo string, payments []model.PaymentLine) []Entry {
	total := model.PaymentTotal(payments)
	entries := make([]Entry, len(payments))
	for i, p := range payments {
		entries[i] = Entry{
			Date:        date,
			Client:      client,
			Description: memo,
			Method:      p.Account,
			Amount:      p.Amount,
			Total:       total,
		}
	}
	return entries
}

// Log is an append-only audit file. Appends through one Log are serialized.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns a Log writing to path.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the file the log appends to.
func (l *Log) Path() string {
	return l.path
}

// Record appends the rows for one receipt and returns how many were written.
func (l *Log) Record(client, date, memo string, payments []model.PaymentLine) (int, error) {
	entries := Entries(client, date, memo, payments)
	if err := l.Append(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Append writes entries at the end of the file, creating it with a header
// row when it does not exist yet or is empty. The rows go out in a single
// write so concurrent appenders cannot interleave within a receipt.
func (l *Log) Append(entries []Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating audit log dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("encoding audit rows: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("appending to audit log: %w", err)
	}
	return nil
}

// Read returns all entries. Returns nil if the file does not exist.
func (l *Log) Read() ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
