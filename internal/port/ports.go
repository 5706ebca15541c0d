// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from the concrete receipt hosts and caches.
package port

import (
	"context"

	"github.com/aequasi/expensify-to-excel/internal/domain"
)

// ReceiptResolver turns a receipt link into the transaction descriptor
// embedded in the linked page.
type ReceiptResolver interface {
	Resolve(ctx context.Context, link string) (*domain.TransactionDescriptor, error)
}

// ReceiptFetcher produces the archive file for a resolved descriptor.
// The originating link is used when no physical receipt exists.
type ReceiptFetcher interface {
	Fetch(ctx context.Context, desc *domain.TransactionDescriptor, link string) (domain.ReceiptOutcome, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
