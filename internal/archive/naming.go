package archive

import (
	"strings"

	"github.com/aequasi/expensify-to-excel/internal/domain"
)

// ReceiptsDir is the archive subtree holding receipt files and placeholders.
const ReceiptsDir = "receipts/"

var segmentReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	"\\", "_",
	":", "-",
)

// ReceiptName derives the archive file name of a downloaded receipt:
// merchant (modified merchant preferred) with spaces as underscores, the
// created timestamp and the extension of the stored receipt file.
func ReceiptName(desc *domain.TransactionDescriptor) string {
	return baseName(desc) + extension(desc.ReceiptFilename)
}

// PlaceholderName derives the archive file name of a link placeholder.
func PlaceholderName(desc *domain.TransactionDescriptor) string {
	return baseName(desc) + ".txt"
}

func baseName(desc *domain.TransactionDescriptor) string {
	merchant := segmentReplacer.Replace(desc.DisplayMerchant())
	if strings.Trim(merchant, ".") == "" {
		merchant = "receipt"
	}
	created := segmentReplacer.Replace(strings.TrimSpace(string(desc.Created)))
	if created == "" {
		return merchant
	}
	return merchant + "_" + created
}

func extension(filename string) string {
	filename = strings.TrimSpace(filename)
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return "." + segmentReplacer.Replace(filename[i+1:])
}

// ReportFileName is the root workbook entry for the submitted display name.
func ReportFileName(name string) string {
	return prefixed(name) + ".xlsx"
}

// DownloadFileName is the attachment name of the whole archive.
func DownloadFileName(name string) string {
	return prefixed(name) + ".zip"
}

func prefixed(name string) string {
	name = segmentReplacer.Replace(strings.TrimSpace(name))
	if name == "" {
		return "report"
	}
	return "report_" + name
}
