package client_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/aequasi/expensify-to-excel/internal/infra/client"
	"github.com/aequasi/expensify-to-excel/internal/infra/resilience"
)

func receiptPage(payload string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><script src="/app.js"></script></head>
<body>
<div id="receipt"></div>
<script type="text/javascript">
	var user = "someone";
	var transaction = %s;
	render(transaction);
</script>
</body>
</html>`, payload)
}

func pageServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newResolver() *client.ReceiptPageClient {
	return client.NewReceiptPageClient(
		&http.Client{Timeout: 5 * time.Second},
		resilience.NewCircuitBreaker("test-pages"),
		client.DefaultExtractor,
	)
}

func TestResolve_Success(t *testing.T) {
	srv := pageServer(t, map[string]string{
		"/r/1": receiptPage(`{"receiptFilename":"r1.pdf","merchant":"Taxi Co","modifiedMerchant":"","created":"20240106"}`),
	})

	desc, err := newResolver().Resolve(context.Background(), srv.URL+"/r/1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if desc.ReceiptFilename != "r1.pdf" || desc.Merchant != "Taxi Co" || desc.Created != "20240106" {
		t.Errorf("unexpected descriptor %+v", desc)
	}
	if !desc.HasReceiptFile() {
		t.Error("expected receipt file")
	}
}

func TestResolve_NoReceiptFileAndNumericCreated(t *testing.T) {
	srv := pageServer(t, map[string]string{
		"/r/2": receiptPage(`{"merchant":"Cafe X","modifiedMerchant":"Cafe Xpress","created":1704412800}`),
	})

	desc, err := newResolver().Resolve(context.Background(), srv.URL+"/r/2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if desc.HasReceiptFile() {
		t.Error("expected no receipt file")
	}
	if desc.DisplayMerchant() != "Cafe Xpress" {
		t.Errorf("expected modified merchant, got %q", desc.DisplayMerchant())
	}
	if desc.Created != "1704412800" {
		t.Errorf("expected numeric created as string, got %q", desc.Created)
	}
}

func TestResolve_Failures(t *testing.T) {
	srv := pageServer(t, map[string]string{
		"/no-marker": "<html><script>var other = {};</script></html>",
		"/malformed": receiptPage(`{"merchant": oops}`),
		"/no-script": "<html><body>var transaction = {};</body></html>",
	})

	cases := map[string]string{
		"marker":    srv.URL + "/no-marker",
		"malformed": srv.URL + "/malformed",
		"no script": srv.URL + "/no-script",
		"status":    srv.URL + "/missing",
		"scheme":    "ftp://example.com/receipt",
		"relative":  "receipt/123",
	}

	resolver := newResolver()
	for name, link := range cases {
		_, err := resolver.Resolve(context.Background(), link)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		var resErr *domain.ErrResolution
		if !errors.As(err, &resErr) {
			t.Errorf("%s: expected ErrResolution, got %T", name, err)
			continue
		}
		if resErr.Link != link {
			t.Errorf("%s: expected link %q on error, got %q", name, link, resErr.Link)
		}
	}
}

func TestResolve_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	link := srv.URL + "/r/1"
	srv.Close()

	_, err := newResolver().Resolve(context.Background(), link)

	var resErr *domain.ErrResolution
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}

func TestExtractor_CustomConvention(t *testing.T) {
	ex := client.Extractor{Marker: "window.__RECEIPT__ =", Terminator: "</end>"}

	desc, err := ex.Extract("l", `window.__RECEIPT__ = {"merchant":"A; B","created":"1"}</end>`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if desc.Merchant != "A; B" {
		t.Errorf("unexpected merchant %q", desc.Merchant)
	}
}

func TestExtractor_MissingTerminator(t *testing.T) {
	_, err := client.DefaultExtractor.Extract("l", `var transaction = {"merchant":"A"}`)

	var resErr *domain.ErrResolution
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}

func TestResolve_DeadLinksDoNotTripBreaker(t *testing.T) {
	srv := pageServer(t, map[string]string{
		"/good": receiptPage(`{"receiptFilename":"r1.pdf","merchant":"Taxi Co","created":"20240106"}`),
	})
	resolver := newResolver()

	for i := 0; i < 6; i++ {
		link := fmt.Sprintf("%s/deleted/%d", srv.URL, i)
		_, err := resolver.Resolve(context.Background(), link)

		var ext *domain.ErrExternalService
		if !errors.As(err, &ext) || ext.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 from %s, got %v", link, err)
		}
	}

	desc, err := resolver.Resolve(context.Background(), srv.URL+"/good")
	if err != nil {
		t.Fatalf("expected healthy link to resolve after dead links, got %v", err)
	}
	if desc.Merchant != "Taxi Co" {
		t.Errorf("unexpected descriptor %+v", desc)
	}
}

func TestResolve_ServerErrorsTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	resolver := newResolver()

	for i := 0; i < 5; i++ {
		resolver.Resolve(context.Background(), srv.URL+"/r/1")
	}

	_, err := resolver.Resolve(context.Background(), srv.URL+"/r/2")
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen after repeated 502s, got %v", err)
	}
}
