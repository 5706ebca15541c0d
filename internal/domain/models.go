// Package domain defines the core entities of the expense report pipeline.
// These models are independent of transport and storage and represent the
// canonical data structures passed between the decoder, the receipt
// acquisition coordinator, the report builder and the archive assembler.
package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Expense records
// ============================================================

// ExpenseRecord is one decoded row of the uploaded expense export.
type ExpenseRecord struct {
	// Date is the parsed transaction date. Zero when RawDate could not be parsed.
	Date    time.Time
	RawDate string

	Merchant string

	// Charge is the numeric amount. ChargeOK is false when RawCharge is not a number.
	Charge    decimal.Decimal
	ChargeOK  bool
	RawCharge string

	Notes       string
	ReceiptLink string
}

// HasReceipt reports whether the row carries a receipt link.
func (r ExpenseRecord) HasReceipt() bool {
	return r.ReceiptLink != ""
}

// ============================================================
// Receipt descriptors
// ============================================================

// TransactionDescriptor is the object embedded in a receipt page script.
type TransactionDescriptor struct {
	ReceiptFilename  string     `json:"receiptFilename"`
	Merchant         string     `json:"merchant"`
	ModifiedMerchant string     `json:"modifiedMerchant"`
	Created          FlexString `json:"created"`
}

// HasReceiptFile reports whether a physical receipt exists for the transaction.
func (d *TransactionDescriptor) HasReceiptFile() bool {
	return strings.TrimSpace(d.ReceiptFilename) != ""
}

// DisplayMerchant prefers the user-edited merchant name.
func (d *TransactionDescriptor) DisplayMerchant() string {
	if m := strings.TrimSpace(d.ModifiedMerchant); m != "" {
		return m
	}
	return strings.TrimSpace(d.Merchant)
}

// FlexString accepts a JSON string, number or null.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// ============================================================
// Receipt outcomes
// ============================================================

// OutcomeKind enumerates the terminal states of one receipt task.
type OutcomeKind int

const (
	OutcomeSkipped OutcomeKind = iota
	OutcomeDownloaded
	OutcomePlaceholder
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomePlaceholder:
		return "placeholder"
	default:
		return "skipped"
	}
}

// ReceiptOutcome is the terminal result of resolving and fetching one receipt link.
// Downloaded and Placeholder outcomes carry a file for the archive; Skipped
// carries the reason the row produced no file.
type ReceiptOutcome struct {
	Kind     OutcomeKind
	Link     string
	FileName string
	Content  []byte
	Reason   error
}

// Downloaded builds an outcome for a fetched receipt file.
func Downloaded(link, fileName string, content []byte) ReceiptOutcome {
	return ReceiptOutcome{Kind: OutcomeDownloaded, Link: link, FileName: fileName, Content: content}
}

// Placeholder builds an outcome for a transaction without a physical receipt.
// The archived file holds the original link.
func Placeholder(link, fileName string) ReceiptOutcome {
	return ReceiptOutcome{Kind: OutcomePlaceholder, Link: link, FileName: fileName, Content: []byte(link + "\n")}
}

// Skipped builds an outcome for a row that could not be resolved or fetched.
func Skipped(link string, reason error) ReceiptOutcome {
	return ReceiptOutcome{Kind: OutcomeSkipped, Link: link, Reason: reason}
}

// HasFile reports whether the outcome contributes an archive entry.
func (o ReceiptOutcome) HasFile() bool {
	return o.Kind != OutcomeSkipped && o.FileName != ""
}

// ============================================================
// Report document
// ============================================================

// CellStyle names a presentation style understood by the workbook writer.
type CellStyle string

const (
	StyleNone      CellStyle = ""
	StyleBold      CellStyle = "bold"
	StyleUnderline CellStyle = "underline"
	StyleHeader    CellStyle = "header"
)

// Cell is one styled cell value.
type Cell struct {
	Value string
	Style CellStyle
}

// Row is an ordered list of cells. An empty row renders as a blank line.
type Row struct {
	Cells []Cell
}

// ReportDocument is the in-memory workbook model built from expense records.
type ReportDocument struct {
	SheetName string
	Logo      []byte
	Rows      []Row

	// TransactionRows counts the rows mirroring expense records.
	TransactionRows int
	TotalCharge     decimal.Decimal
}

// ============================================================
// Report generation
// ============================================================

// ReportRequest carries one upload through the pipeline.
type ReportRequest struct {
	CSV        []byte
	Name       string
	Department string
	ReportDate time.Time
}

// ReportArchive is the final downloadable package.
type ReportArchive struct {
	FileName string
	Data     []byte
	Summary  AcquisitionSummary
}

// AcquisitionSummary counts receipt outcomes for one batch.
type AcquisitionSummary struct {
	Downloaded  int `json:"downloaded"`
	Placeholder int `json:"placeholder"`
	Skipped     int `json:"skipped"`
}

// Record tallies one outcome.
func (s *AcquisitionSummary) Record(o ReceiptOutcome) {
	switch o.Kind {
	case OutcomeDownloaded:
		s.Downloaded++
	case OutcomePlaceholder:
		s.Placeholder++
	default:
		s.Skipped++
	}
}

// Total returns the number of link-bearing rows accounted for.
func (s AcquisitionSummary) Total() int {
	return s.Downloaded + s.Placeholder + s.Skipped
}
