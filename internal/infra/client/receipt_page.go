package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/aequasi/expensify-to-excel/internal/infra/resilience"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("client")

const maxPageBytes = 5 << 20

// ReceiptPageClient resolves receipt links by reading the transaction
// descriptor out of the linked page's script elements.
type ReceiptPageClient struct {
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	extractor  Extractor
}

// NewReceiptPageClient creates a new ReceiptPageClient.
func NewReceiptPageClient(httpClient *http.Client, cb *gobreaker.CircuitBreaker, extractor Extractor) *ReceiptPageClient {
	return &ReceiptPageClient{
		httpClient: httpClient,
		cb:         cb,
		extractor:  extractor,
	}
}

// Resolve fetches link and extracts its descriptor. Every failure is an
// *domain.ErrResolution.
func (c *ReceiptPageClient) Resolve(ctx context.Context, link string) (*domain.TransactionDescriptor, error) {
	ctx, span := tracer.Start(ctx, "ReceiptPageClient.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("receipt.link", link))

	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, c.fail(span, &domain.ErrResolution{Link: link, Reason: "invalid link", Err: err})
	}

	script, err := resilience.Execute(c.cb, func() (string, error) {
		return c.fetchScripts(ctx, u.String())
	})
	if err != nil {
		return nil, c.fail(span, &domain.ErrResolution{Link: link, Reason: "page fetch failed", Err: err})
	}

	desc, err := c.extractor.Extract(link, script)
	if err != nil {
		return nil, c.fail(span, err)
	}
	return desc, nil
}

func (c *ReceiptPageClient) fetchScripts(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.ErrExternalService{Service: c.cb.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.ErrExternalService{Service: c.cb.Name(), StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return doc.Find("script").Text(), nil
}

func (c *ReceiptPageClient) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "resolve failed")
	return err
}
