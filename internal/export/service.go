package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/repository"
)

const sheet = "Files"

// Service produces XLSX bytes for job reports.
type Service struct {
	jobs   repository.JobRepository
	files  repository.FileRepository
	logger *slog.Logger
}

func NewService(jobs repository.JobRepository, files repository.FileRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, files: files, logger: logger}
}

// JobReportXLSX returns a workbook with one row per file of the job.
func (s *Service) JobReportXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	start := time.Now()

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	recs, err := s.files.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	_ = f.DeleteSheet("Sheet1")
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"File Name",
		"Mime Type",
		"Status",
		"Total Years",
		"Skills",
		"Summary",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.Name)
		write(2, r.MimeType)
		write(3, string(r.Status))
		if p := r.Profile; p != nil {
			if p.TotalYearsExperience != nil {
				write(4, *p.TotalYearsExperience)
			}
			write(5, strings.Join(p.Skills, ", "))
			write(6, truncate(p.OverallSummary, 300))
		}
		if r.Error != nil {
			write(7, truncate(*r.Error, 200))
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 36) // name
	_ = f.SetColWidth(sheet, "B", "B", 28) // mime
	_ = f.SetColWidth(sheet, "C", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 40) // skills
	_ = f.SetColWidth(sheet, "F", "F", 60) // summary
	_ = f.SetColWidth(sheet, "G", "G", 48) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", jobID.String(),
		"job_status", job.Status,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
