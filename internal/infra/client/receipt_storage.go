package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aequasi/expensify-to-excel/internal/archive"
	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/aequasi/expensify-to-excel/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReceiptStorageClient downloads receipt files from the receipt storage host.
type ReceiptStorageClient struct {
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	baseURL    string
	tempDir    string
	maxBytes   int64
	logger     *zap.Logger
}

// StorageOptions configures a ReceiptStorageClient.
type StorageOptions struct {
	BaseURL  string
	TempDir  string
	MaxBytes int64
}

// NewReceiptStorageClient creates a new ReceiptStorageClient.
func NewReceiptStorageClient(httpClient *http.Client, cb *gobreaker.CircuitBreaker, opts StorageOptions, logger *zap.Logger) *ReceiptStorageClient {
	return &ReceiptStorageClient{
		httpClient: httpClient,
		cb:         cb,
		baseURL:    strings.TrimRight(opts.BaseURL, "/") + "/",
		tempDir:    opts.TempDir,
		maxBytes:   opts.MaxBytes,
		logger:     logger,
	}
}

// DownloadURL appends the stored receipt file name to the storage prefix.
func (c *ReceiptStorageClient) DownloadURL(receiptFilename string) string {
	name := strings.TrimLeft(strings.TrimSpace(receiptFilename), "/")
	return c.baseURL + (&url.URL{Path: name}).EscapedPath()
}

// Fetch produces the archive file for desc. Without a receipt file the
// outcome is a placeholder holding link; otherwise the file is downloaded.
// Download failures are returned as *domain.ErrDownload.
func (c *ReceiptStorageClient) Fetch(ctx context.Context, desc *domain.TransactionDescriptor, link string) (domain.ReceiptOutcome, error) {
	if !desc.HasReceiptFile() {
		return domain.Placeholder(link, archive.PlaceholderName(desc)), nil
	}

	ctx, span := tracer.Start(ctx, "ReceiptStorageClient.Fetch")
	defer span.End()

	downloadURL := c.DownloadURL(desc.ReceiptFilename)
	span.SetAttributes(attribute.String("receipt.url", downloadURL))

	content, err := resilience.Execute(c.cb, func() ([]byte, error) {
		return c.download(ctx, downloadURL)
	})
	if err != nil {
		span.RecordError(err)
		return domain.ReceiptOutcome{}, &domain.ErrDownload{URL: downloadURL, Err: err}
	}

	return domain.Downloaded(link, archive.ReceiptName(desc), content), nil
}

// download streams the response into a scoped temp file and reads it back.
// The temp file is closed and removed on every path.
func (c *ReceiptStorageClient) download(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: c.cb.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ErrExternalService{Service: c.cb.Name(), StatusCode: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(c.tempDir, "receipt-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("temp file not removed", zap.String("path", tmp.Name()), zap.Error(err))
		}
	}()

	var body io.Reader = resp.Body
	if c.maxBytes > 0 {
		body = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	n, err := io.Copy(tmp, body)
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if c.maxBytes > 0 && n > c.maxBytes {
		return nil, fmt.Errorf("receipt exceeds %d bytes", c.maxBytes)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}
	content, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("read temp file: %w", err)
	}
	return content, nil
}
