// Package report builds the expense report workbook.
//
// Build is a pure function from decoded records to a ReportDocument; the
// document is turned into xlsx bytes by WriteWorkbook.
package report

import (
	"fmt"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// LetterheadRows are left blank for the logo anchored at A1.
	LetterheadRows = 7
	// FixedRows is the number of rows that do not mirror expense records.
	FixedRows = LetterheadRows + 4 + 1 + 1 + 2 + 1

	reason = "Expense Report"
)

// Header column labels, in order.
var Columns = []string{"DATE", "MERCHANT", "CHARGE", "NOTES"}

// Params carries everything Build needs besides the records.
type Params struct {
	Name       string
	Department string
	ReportDate time.Time
	Logo       []byte
}

// Build lays out the report: letterhead rows, the labeled header block,
// a blank separator, the column header, one row per record in input order,
// two blank rows and the totals row.
func Build(records []domain.ExpenseRecord, p Params) domain.ReportDocument {
	displayDate := FormatLongDate(p.ReportDate)

	rows := make([]domain.Row, 0, FixedRows+len(records))
	for i := 0; i < LetterheadRows; i++ {
		rows = append(rows, domain.Row{})
	}

	rows = append(rows,
		labeled("Name: ", p.Name),
		labeled("Dept: ", p.Department),
		labeled("Date: ", displayDate),
		labeled("Reason: ", reason),
		domain.Row{},
	)

	header := domain.Row{Cells: make([]domain.Cell, 0, len(Columns))}
	for _, c := range Columns {
		header.Cells = append(header.Cells, domain.Cell{Value: c, Style: domain.StyleHeader})
	}
	rows = append(rows, header)

	total := decimal.Zero
	for _, rec := range records {
		if rec.ChargeOK {
			total = total.Add(rec.Charge)
		}
		rows = append(rows, domain.Row{Cells: []domain.Cell{
			{Value: formatRecordDate(rec)},
			{Value: rec.Merchant},
			{Value: formatRecordCharge(rec)},
			{Value: rec.Notes},
		}})
	}

	rows = append(rows,
		domain.Row{},
		domain.Row{},
		domain.Row{Cells: []domain.Cell{
			{Value: ""},
			{Value: "Total: "},
			{Value: FormatCurrency(total)},
		}},
	)

	return domain.ReportDocument{
		SheetName:       "Report - " + displayDate,
		Logo:            p.Logo,
		Rows:            rows,
		TransactionRows: len(records),
		TotalCharge:     total,
	}
}

func labeled(label, value string) domain.Row {
	return domain.Row{Cells: []domain.Cell{
		{Value: label, Style: domain.StyleBold},
		{Value: value, Style: domain.StyleUnderline},
	}}
}

func formatRecordDate(rec domain.ExpenseRecord) string {
	if rec.Date.IsZero() {
		return rec.RawDate
	}
	return rec.Date.Format("01/02/2006")
}

func formatRecordCharge(rec domain.ExpenseRecord) string {
	if !rec.ChargeOK {
		return rec.RawCharge
	}
	return FormatCurrency(rec.Charge)
}

// FormatCurrency renders d with a leading dollar sign and two decimals.
func FormatCurrency(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatLongDate renders t as "Jan 2nd 2006".
func FormatLongDate(t time.Time) string {
	return fmt.Sprintf("%s %d%s %d", t.Format("Jan"), t.Day(), ordinalSuffix(t.Day()), t.Year())
}

func ordinalSuffix(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
