// Package expense decodes an uploaded expense export into typed records.
//
// Columns are mapped by position, never by header name:
//
//	0  transaction date
//	1  merchant
//	2  charge amount
//	5  first note
//	6  second note
//	10 receipt link
//
// The first row is always discarded as a header. Individual malformed fields
// are passed through as literal text; only input that cannot be tokenized as
// CSV at all is rejected.
package expense

import (
	"bytes"
	"encoding/csv"
	"strings"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	colDate     = 0
	colMerchant = 1
	colCharge   = 2
	colNoteA    = 5
	colNoteB    = 6
	colReceipt  = 10
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// Tokenize splits raw CSV bytes into rows of strings using ',' as delimiter.
func Tokenize(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.Comma = ','
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &domain.ErrDecode{Err: err}
	}
	return rows, nil
}

// Decode tokenizes data and maps every row after the header to an ExpenseRecord.
func Decode(data []byte) ([]domain.ExpenseRecord, error) {
	rows, err := Tokenize(data)
	if err != nil {
		return nil, err
	}
	return DecodeRows(rows), nil
}

// DecodeRows maps already tokenized rows, discarding the first one.
func DecodeRows(rows [][]string) []domain.ExpenseRecord {
	if len(rows) <= 1 {
		return []domain.ExpenseRecord{}
	}

	records := make([]domain.ExpenseRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, decodeRow(row))
	}
	return records
}

func decodeRow(row []string) domain.ExpenseRecord {
	rawDate := field(row, colDate)
	rawCharge := field(row, colCharge)

	rec := domain.ExpenseRecord{
		RawDate:     rawDate,
		Merchant:    field(row, colMerchant),
		RawCharge:   rawCharge,
		Notes:       joinNotes(field(row, colNoteA), field(row, colNoteB)),
		ReceiptLink: field(row, colReceipt),
	}
	if d, ok := ParseDate(rawDate); ok {
		rec.Date = d
	}
	if c, ok := ParseCharge(rawCharge); ok {
		rec.Charge = c
		rec.ChargeOK = true
	}
	return rec
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func joinNotes(notes ...string) string {
	kept := make([]string, 0, len(notes))
	for _, n := range notes {
		if n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, ", ")
}

// ParseDate tries the date layouts seen in expense exports.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCharge parses an amount, ignoring currency symbols, quotes,
// thousands separators and surrounding whitespace. Accounting style
// "(12.50)" is read as negative.
func ParseCharge(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', '"', '\'', ' ':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
