package archive

import (
	"bytes"
	"fmt"

	"github.com/aequasi/expensify-to-excel/internal/domain"

	"go.uber.org/zap"
)

// Assembler merges the workbook and the receipt outcomes into one archive.
type Assembler struct {
	logger *zap.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// Collect drains outcomes into pkg until the channel is closed and returns
// the tally of every outcome seen. It is the only writer of pkg while it runs.
//
// Receipts that derive the same name with identical content collapse into one
// entry; differing content is kept under a numbered name.
func (a *Assembler) Collect(pkg *Package, outcomes <-chan domain.ReceiptOutcome) domain.AcquisitionSummary {
	var summary domain.AcquisitionSummary
	for o := range outcomes {
		summary.Record(o)
		if !o.HasFile() {
			continue
		}

		name, dup := a.placeReceipt(pkg, o)
		if dup {
			a.logger.Debug("duplicate receipt collapsed",
				zap.String("path", name),
				zap.String("link", o.Link),
			)
			continue
		}
		if err := pkg.Add(name, o.Content); err != nil {
			a.logger.Warn("receipt not archived",
				zap.String("path", name),
				zap.String("link", o.Link),
				zap.Error(err),
			)
		}
	}
	return summary
}

func (a *Assembler) placeReceipt(pkg *Package, o domain.ReceiptOutcome) (string, bool) {
	name := ReceiptsDir + o.FileName
	for n := 2; ; n++ {
		existing, ok := pkg.Get(name)
		if !ok {
			return name, false
		}
		if bytes.Equal(existing, o.Content) {
			return name, true
		}
		name = ReceiptsDir + numbered(o.FileName, n)
	}
}

func numbered(fileName string, n int) string {
	ext := extension(fileName)
	stem := fileName[:len(fileName)-len(ext)]
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

// Assemble places the workbook at the archive root and serializes pkg.
func (a *Assembler) Assemble(pkg *Package, displayName string, workbook []byte) (*domain.ReportArchive, error) {
	reportName := ReportFileName(displayName)
	if err := pkg.Add(reportName, workbook); err != nil {
		return nil, &domain.ErrSerialization{Artifact: "archive", Err: err}
	}

	data, err := pkg.Serialize()
	if err != nil {
		return nil, &domain.ErrSerialization{Artifact: "archive", Err: err}
	}

	a.logger.Info("archive assembled",
		zap.String("report", reportName),
		zap.Int("entries", pkg.Len()),
		zap.Int("bytes", len(data)),
	)
	return &domain.ReportArchive{
		FileName: DownloadFileName(displayName),
		Data:     data,
	}, nil
}
