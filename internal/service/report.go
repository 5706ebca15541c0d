package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/archive"
	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/aequasi/expensify-to-excel/internal/expense"
	"github.com/aequasi/expensify-to-excel/internal/infra/observability"
	"github.com/aequasi/expensify-to-excel/internal/report"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReportService turns an uploaded expense export into the report archive.
type ReportService struct {
	acquisition *Acquisition
	assembler   *archive.Assembler
	logo        []byte
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewReportService creates the report pipeline with all dependencies injected.
func NewReportService(
	acquisition *Acquisition,
	assembler *archive.Assembler,
	logo []byte,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		acquisition: acquisition,
		assembler:   assembler,
		logo:        logo,
		metrics:     metrics,
		logger:      logger,
	}
}

// Generate decodes req.CSV, then builds the workbook and acquires the
// receipts concurrently, and finally assembles both into one archive.
// Only decode and serialization failures are returned; receipt failures
// degrade to rows without a file.
func (s *ReportService) Generate(ctx context.Context, req domain.ReportRequest) (*domain.ReportArchive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	ctx, span := tracer.Start(ctx, "ReportService.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("report.batch_id", batchID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("report", time.Since(start))
	}()

	result, err := s.generate(ctx, batchID, req)
	if err != nil {
		s.metrics.IncrReport("error")
		span.RecordError(err)
		s.logger.Error("report generation failed",
			zap.String("batch_id", batchID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrReport("success")
	s.logger.Info("report generated",
		zap.String("batch_id", batchID),
		zap.String("file", result.FileName),
		zap.Int("downloaded", result.Summary.Downloaded),
		zap.Int("placeholders", result.Summary.Placeholder),
		zap.Int("skipped", result.Summary.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *ReportService) generate(ctx context.Context, batchID string, req domain.ReportRequest) (*domain.ReportArchive, error) {
	records, err := expense.Decode(req.CSV)
	if err != nil {
		return nil, err
	}

	reportDate := req.ReportDate
	if reportDate.IsZero() {
		reportDate = time.Now()
	}

	s.logger.Info("generating report",
		zap.String("batch_id", batchID),
		zap.String("name", req.Name),
		zap.Int("rows", len(records)),
	)

	pkg := archive.NewPackage(reportDate)

	var (
		workbook []byte
		summary  domain.AcquisitionSummary
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		doc := report.Build(records, report.Params{
			Name:       req.Name,
			Department: req.Department,
			ReportDate: reportDate,
			Logo:       s.logo,
		})
		b, err := report.WriteWorkbook(doc)
		if err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
		workbook = b
		return nil
	})

	g.Go(func() error {
		summary = s.assembler.Collect(pkg, s.acquisition.AcquireAll(gCtx, records))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result, err := s.assembler.Assemble(pkg, req.Name, workbook)
	if err != nil {
		return nil, err
	}
	result.Summary = summary
	return result, nil
}
