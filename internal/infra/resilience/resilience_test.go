package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/aequasi/expensify-to-excel/internal/infra/resilience"
)

func TestExecute_PassesThroughResult(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test")

	got, err := resilience.Execute(cb, func() (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "ok" {
		t.Errorf("expected 'ok', got '%s'", got)
	}
}

func TestExecute_PassesThroughError(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test")
	want := errors.New("boom")

	_, err := resilience.Execute(cb, func() (int, error) {
		return 0, want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected original error, got %v", err)
	}
}

func TestExecute_OpenBreaker(t *testing.T) {
	cb := resilience.NewCircuitBreaker("receipt-pages")

	calls := 0
	for i := 0; i < 5; i++ {
		_, _ = resilience.Execute(cb, func() (int, error) {
			calls++
			return 0, &domain.ErrExternalService{Service: "receipt-pages", StatusCode: 503}
		})
	}

	_, err := resilience.Execute(cb, func() (int, error) {
		calls++
		return 1, nil
	})

	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if open.Service != "receipt-pages" {
		t.Errorf("expected service 'receipt-pages', got '%s'", open.Service)
	}
	if calls != 5 {
		t.Errorf("expected open breaker to short-circuit, got %d calls", calls)
	}
}

func TestExecute_LinkFailuresKeepBreakerClosed(t *testing.T) {
	cb := resilience.NewCircuitBreaker("receipt-pages")

	linkErrors := []error{
		&domain.ErrExternalService{Service: "receipt-pages", StatusCode: 404},
		&domain.ErrExternalService{Service: "receipt-pages", StatusCode: 410},
		errors.New("receipt exceeds 32 bytes"),
		context.Canceled,
	}
	for i := 0; i < 10; i++ {
		want := linkErrors[i%len(linkErrors)]
		if _, err := resilience.Execute(cb, func() (int, error) { return 0, want }); !errors.Is(err, want) {
			t.Fatalf("expected original error, got %v", err)
		}
	}

	got, err := resilience.Execute(cb, func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("expected breaker to stay closed, got %d, %v", got, err)
	}
}

func TestIsHostFailure(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":       {nil, false},
		"not found": {&domain.ErrExternalService{StatusCode: 404}, false},
		"server":    {&domain.ErrExternalService{StatusCode: 502}, true},
		"transport": {&domain.ErrExternalService{Err: errors.New("connection refused")}, true},
		"wrapped":   {&domain.ErrDownload{URL: "u", Err: &domain.ErrExternalService{StatusCode: 500}}, true},
		"plain":     {errors.New("parse html"), false},
		"cancelled": {&domain.ErrExternalService{Err: context.Canceled}, false},
	}
	for name, tc := range cases {
		if got := resilience.IsHostFailure(tc.err); got != tc.want {
			t.Errorf("%s: expected %v, got %v", name, tc.want, got)
		}
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	// Third acquire should block; test with timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	// Release one slot
	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}
