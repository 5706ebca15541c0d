package report

import (
	"fmt"
	_ "image/png"

	"github.com/aequasi/expensify-to-excel/internal/domain"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// columnWidths follows Columns: date, merchant, charge, notes.
var columnWidths = []struct {
	col   string
	width float64
}{
	{"A", 14},
	{"B", 32},
	{"C", 14},
	{"D", 48},
}

// WriteWorkbook serializes doc into xlsx bytes.
func WriteWorkbook(doc domain.ReportDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := doc.SheetName
	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, wrap(fmt.Errorf("rename sheet: %w", err))
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, wrap(err)
	}

	for i, row := range doc.Rows {
		for j, c := range row.Cells {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, wrap(err)
			}
			if err := f.SetCellStr(sheet, cell, c.Value); err != nil {
				return nil, wrap(fmt.Errorf("set %s: %w", cell, err))
			}
			if id, ok := styles[c.Style]; ok {
				if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
					return nil, wrap(fmt.Errorf("style %s: %w", cell, err))
				}
			}
		}
	}

	if len(doc.Logo) > 0 {
		if err := f.AddPictureFromBytes(sheet, "A1", &excelize.Picture{
			Extension: ".png",
			File:      doc.Logo,
			Format:    &excelize.GraphicOptions{AltText: "logo", LockAspectRatio: true},
		}); err != nil {
			return nil, wrap(fmt.Errorf("letterhead: %w", err))
		}
	}

	for _, cw := range columnWidths {
		if err := f.SetColWidth(sheet, cw.col, cw.col, cw.width); err != nil {
			return nil, wrap(fmt.Errorf("width %s: %w", cw.col, err))
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, wrap(fmt.Errorf("xlsx write: %w", err))
	}
	return buf.Bytes(), nil
}

func newStyles(f *excelize.File) (map[domain.CellStyle]int, error) {
	defs := map[domain.CellStyle]*excelize.Style{
		domain.StyleBold: {
			Font: &excelize.Font{Bold: true},
		},
		domain.StyleUnderline: {
			Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
		},
		domain.StyleHeader: {
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFFF00"}},
		},
	}

	ids := make(map[domain.CellStyle]int, len(defs))
	for name, def := range defs {
		id, err := f.NewStyle(def)
		if err != nil {
			return nil, fmt.Errorf("style %s: %w", name, err)
		}
		ids[name] = id
	}
	return ids, nil
}

func wrap(err error) error {
	return &domain.ErrSerialization{Artifact: "workbook", Err: err}
}
