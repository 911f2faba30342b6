package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"expensia/internal/core"
	"expensia/internal/storage"
)

// ErrNoRecords is returned when an export has no rows to write.
var ErrNoRecords = errors.New("no records to export")

// ExportService renders a user's transactions to an in-memory xlsx
// workbook. Nothing is written to disk.
type ExportService struct {
	storage *storage.SQLiteRepository
}

func NewExportService(storage *storage.SQLiteRepository) *ExportService {
	return &ExportService{storage: storage}
}

// IncomeWorkbook exports all of the user's incomes.
func (s *ExportService) IncomeWorkbook(ctx context.Context, userID string) (*bytes.Buffer, error) {
	incomes, err := s.storage.ListIncomes(ctx, userID, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	if len(incomes) == 0 {
		return nil, ErrNoRecords
	}

	rows := make([][]any, 0, len(incomes))
	for _, in := range incomes {
		rows = append(rows, []any{in.Source, in.Icon, in.Amount.Units(), in.Description, core.DayKey(in.Date)})
	}
	return buildWorkbook("Incomes", []any{"Source", "Icon", "Amount", "Description", "Date"}, rows)
}

// ExpenseWorkbook exports all of the user's expenses.
func (s *ExportService) ExpenseWorkbook(ctx context.Context, userID string) (*bytes.Buffer, error) {
	expenses, err := s.storage.ListExpenses(ctx, userID, time.Time{}, time.Time{}, "")
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, ErrNoRecords
	}

	rows := make([][]any, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []any{e.Category, e.Icon, e.Amount.Units(), e.Description, core.DayKey(e.Date)})
	}
	return buildWorkbook("Expenses", []any{"Category", "Icon", "Amount", "Description", "Date"}, rows)
}

func buildWorkbook(sheet string, header []any, rows [][]any) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf, nil
}
