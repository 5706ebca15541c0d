package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReportGenerator produces the report archive for one upload.
type ReportGenerator interface {
	Generate(ctx context.Context, req domain.ReportRequest) (*domain.ReportArchive, error)
}

const multipartMemory = 8 << 20

// reportHandler accepts a multipart upload with a "file" part holding the
// expense export plus "name" and "department" fields, and streams back the
// zip archive as an attachment.
func reportHandler(gen ReportGenerator, maxUploadBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST "+r.URL.Path)
		defer span.End()

		if maxUploadBytes > 0 {
			if r.ContentLength > maxUploadBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(maxUploadBytes, 10)+" bytes")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		}

		req, err := parseUpload(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
				return
			}
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("report.name", req.Name),
			attribute.Int("report.csv_bytes", len(req.CSV)),
		)

		result, err := gen.Generate(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("report served",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("file", result.FileName),
			zap.Int("downloaded", result.Summary.Downloaded),
			zap.Int("skipped", result.Summary.Skipped),
		)

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName}))
		w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
		w.Header().Set("X-Receipts-Downloaded", strconv.Itoa(result.Summary.Downloaded))
		w.Header().Set("X-Receipts-Placeholder", strconv.Itoa(result.Summary.Placeholder))
		w.Header().Set("X-Receipts-Skipped", strconv.Itoa(result.Summary.Skipped))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(result.Data); err != nil {
			logger.Warn("archive write interrupted", zap.Error(err))
		}
	}
}

func parseUpload(r *http.Request) (domain.ReportRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ReportRequest{}, err
		}
		return domain.ReportRequest{}, &domain.ErrValidation{Field: "file", Message: "expected multipart/form-data upload"}
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		return domain.ReportRequest{}, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return domain.ReportRequest{}, &domain.ErrValidation{Field: "file", Message: "csv file is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.ReportRequest{}, err
	}

	return domain.ReportRequest{
		CSV:        data,
		Name:       name,
		Department: strings.TrimSpace(r.FormValue("department")),
		ReportDate: time.Now(),
	}, nil
}
