package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/portfolio-labs/extraction-pipeline/internal/model"
)

// Service produces XLSX bytes from a finished extraction run.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ItemsXLSX renders the extracted items as a single-sheet workbook, one
// row per item, with the run metadata in a trailing summary row.
func (s *Service) ItemsXLSX(result model.PipelineResult, sourceFile string) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Items"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Name",
		"Type",
		"Status",
		"Description",
		"Owner",
		"Budget",
		"Technologies",
		"Source File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, it := range result.Items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, it.Name)
		write(2, it.RawType)
		write(3, it.RawStatus)
		write(4, truncate(it.Description, 140))
		write(5, it.Owner)
		if it.Budget != nil {
			write(6, *it.Budget)
		}
		write(7, strings.Join(it.Technologies, ", "))
		write(8, sourceFile)

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 36) // name
	_ = f.SetColWidth(sheet, "B", "C", 14) // type, status
	_ = f.SetColWidth(sheet, "D", "D", 48) // description
	_ = f.SetColWidth(sheet, "E", "E", 22) // owner
	_ = f.SetColWidth(sheet, "F", "F", 12) // budget
	_ = f.SetColWidth(sheet, "G", "G", 30) // technologies
	_ = f.SetColWidth(sheet, "H", "H", 40) // path

	summaryCell, _ := excelize.CoordinatesToCellName(1, row+1)
	_ = f.SetCellValue(sheet, summaryCell,
		fmt.Sprintf("%d items, %d chunks, confidence %.2f", len(result.Items), result.ChunksProcessed, result.Confidence))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(result.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
