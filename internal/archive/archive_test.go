package archive_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/archive"
	"github.com/aequasi/expensify-to-excel/internal/domain"

	"go.uber.org/zap"
)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("expected readable zip, got %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = b
	}
	return out
}

func feed(outcomes ...domain.ReceiptOutcome) <-chan domain.ReceiptOutcome {
	ch := make(chan domain.ReceiptOutcome, len(outcomes))
	for _, o := range outcomes {
		ch <- o
	}
	close(ch)
	return ch
}

func TestPackage_RoundTrip(t *testing.T) {
	pkg := archive.NewPackage(time.Now())
	blobs := map[string][]byte{
		"report.xlsx":          []byte("workbook"),
		"receipts/a_1.pdf":     {0x25, 0x50, 0x44, 0x46, 0x00, 0xff},
		"receipts/b_2.txt":     []byte("https://example.com/r/2\n"),
		"receipts/empty_3.png": {},
	}
	for name, b := range blobs {
		if err := pkg.Add(name, b); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	data, err := pkg.Serialize()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := readZip(t, data)
	if len(got) != len(blobs) {
		t.Fatalf("expected %d entries, got %d", len(blobs), len(got))
	}
	for name, want := range blobs {
		if !bytes.Equal(got[name], want) {
			t.Errorf("entry %s differs: got %v want %v", name, got[name], want)
		}
	}
}

func TestPackage_DuplicateAndInvalidPaths(t *testing.T) {
	pkg := archive.NewPackage(time.Now())
	if err := pkg.Add("report.xlsx", nil); err != nil {
		t.Fatalf("expected first add to succeed, got %v", err)
	}

	err := pkg.Add("report.xlsx", nil)
	var dup *domain.ErrDuplicateEntry
	if !errors.As(err, &dup) {
		t.Errorf("expected ErrDuplicateEntry, got %v", err)
	}

	for _, bad := range []string{"", "..", "../escape.txt"} {
		if err := pkg.Add(bad, nil); err == nil {
			t.Errorf("expected error for path %q", bad)
		}
	}
}

func TestAssembler_CollectAndAssemble(t *testing.T) {
	asm := archive.NewAssembler(zap.NewNop())
	pkg := archive.NewPackage(time.Now())

	summary := asm.Collect(pkg, feed(
		domain.Downloaded("https://good.link", "Taxi_Co_20240106.pdf", []byte("pdf-bytes")),
		domain.Placeholder("https://nofile.link", "Cafe_X_20240105.txt"),
		domain.Skipped("https://bad.link", errors.New("boom")),
	))

	if summary.Downloaded != 1 || summary.Placeholder != 1 || summary.Skipped != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}

	result, err := asm.Assemble(pkg, "Jane Doe", []byte("workbook"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.FileName != "report_Jane_Doe.zip" {
		t.Errorf("unexpected download name %q", result.FileName)
	}

	got := readZip(t, result.Data)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d: %v", len(got), got)
	}
	if string(got["report_Jane_Doe.xlsx"]) != "workbook" {
		t.Error("expected workbook at archive root")
	}
	if string(got["receipts/Taxi_Co_20240106.pdf"]) != "pdf-bytes" {
		t.Error("expected downloaded receipt under receipts/")
	}
	if string(got["receipts/Cafe_X_20240105.txt"]) != "https://nofile.link\n" {
		t.Errorf("expected placeholder with original link, got %q", got["receipts/Cafe_X_20240105.txt"])
	}
}

func TestAssembler_NameCollisions(t *testing.T) {
	asm := archive.NewAssembler(zap.NewNop())
	pkg := archive.NewPackage(time.Now())

	asm.Collect(pkg, feed(
		domain.Downloaded("l1", "Shop_1.pdf", []byte("one")),
		domain.Downloaded("l1", "Shop_1.pdf", []byte("one")),
		domain.Downloaded("l2", "Shop_1.pdf", []byte("two")),
		domain.Downloaded("l3", "Shop_1.pdf", []byte("three")),
	))

	want := map[string]string{
		"receipts/Shop_1.pdf":   "one",
		"receipts/Shop_1_2.pdf": "two",
		"receipts/Shop_1_3.pdf": "three",
	}
	if pkg.Len() != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), pkg.Paths())
	}
	for name, content := range want {
		b, ok := pkg.Get(name)
		if !ok || string(b) != content {
			t.Errorf("entry %s = %q (present=%v), want %q", name, b, ok, content)
		}
	}
}

func TestAssembler_EmptyBatch(t *testing.T) {
	asm := archive.NewAssembler(zap.NewNop())
	pkg := archive.NewPackage(time.Now())

	summary := asm.Collect(pkg, feed())
	if summary.Total() != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}

	result, err := asm.Assemble(pkg, "", []byte("wb"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := readZip(t, result.Data)
	if _, ok := got["report.xlsx"]; !ok || len(got) != 1 {
		t.Errorf("expected only report.xlsx, got %v", got)
	}
	if result.FileName != "report.zip" {
		t.Errorf("unexpected download name %q", result.FileName)
	}
}

func TestAssembler_ReportCollision(t *testing.T) {
	asm := archive.NewAssembler(zap.NewNop())
	pkg := archive.NewPackage(time.Now())
	if err := pkg.Add("report_X.xlsx", []byte("taken")); err != nil {
		t.Fatal(err)
	}

	_, err := asm.Assemble(pkg, "X", []byte("wb"))
	var serErr *domain.ErrSerialization
	if !errors.As(err, &serErr) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestAssembler_DotMerchantFallsBack(t *testing.T) {
	asm := archive.NewAssembler(zap.NewNop())
	pkg := archive.NewPackage(time.Now())

	desc := &domain.TransactionDescriptor{ReceiptFilename: "noext", Merchant: ".."}
	asm.Collect(pkg, feed(domain.Downloaded("https://dots.link", archive.ReceiptName(desc), []byte("bytes"))))

	if got, ok := pkg.Get("receipts/receipt"); !ok || string(got) != "bytes" {
		t.Errorf("expected receipt under fallback name, got %v", pkg.Paths())
	}
}
