package archive_test

import (
	"testing"

	"github.com/aequasi/expensify-to-excel/internal/archive"
	"github.com/aequasi/expensify-to-excel/internal/domain"
)

func TestReceiptName(t *testing.T) {
	cases := []struct {
		desc domain.TransactionDescriptor
		want string
	}{
		{domain.TransactionDescriptor{ReceiptFilename: "r1.pdf", Merchant: "Taxi Co", Created: "20240106"}, "Taxi_Co_20240106.pdf"},
		{domain.TransactionDescriptor{ReceiptFilename: "w_abc.v2.jpeg", Merchant: "Taxi Co", ModifiedMerchant: "Yellow Cab", Created: "20240106"}, "Yellow_Cab_20240106.jpeg"},
		{domain.TransactionDescriptor{ReceiptFilename: "noext", Merchant: "Shop", Created: "1"}, "Shop_1"},
		{domain.TransactionDescriptor{ReceiptFilename: "a.png", Merchant: "A/B", Created: "2024-01-06 10:30:00"}, "A_B_2024-01-06_10-30-00.png"},
		{domain.TransactionDescriptor{ReceiptFilename: "a.png"}, "receipt.png"},
		{domain.TransactionDescriptor{ReceiptFilename: "noext", Merchant: ".."}, "receipt"},
		{domain.TransactionDescriptor{ReceiptFilename: "a.pdf", Merchant: "."}, "receipt.pdf"},
	}

	for _, tc := range cases {
		got := archive.ReceiptName(&tc.desc)
		if got != tc.want {
			t.Errorf("ReceiptName(%+v) = %q, want %q", tc.desc, got, tc.want)
		}
		if again := archive.ReceiptName(&tc.desc); again != got {
			t.Errorf("ReceiptName not deterministic: %q then %q", got, again)
		}
	}
}

func TestPlaceholderName(t *testing.T) {
	desc := &domain.TransactionDescriptor{Merchant: "Cafe X", Created: "20240105"}
	if got := archive.PlaceholderName(desc); got != "Cafe_X_20240105.txt" {
		t.Errorf("unexpected placeholder name %q", got)
	}
}

func TestReportFileNames(t *testing.T) {
	if got := archive.ReportFileName("Jane Q Doe"); got != "report_Jane_Q_Doe.xlsx" {
		t.Errorf("unexpected report name %q", got)
	}
	if got := archive.DownloadFileName("Jane Q Doe"); got != "report_Jane_Q_Doe.zip" {
		t.Errorf("unexpected download name %q", got)
	}
	if got := archive.ReportFileName("  "); got != "report.xlsx" {
		t.Errorf("unexpected fallback name %q", got)
	}
}
