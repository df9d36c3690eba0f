package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/leads"
	"github.com/pulsecrm/backend/pkg/models"
)

// Formats accepted by Export
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
)

// Service writes lead exports to local storage
type Service struct {
	leads       *leads.Service
	storagePath string
}

// NewService creates a new export service
func NewService(leadService *leads.Service, storagePath string) *Service {
	// Ensure storage directory exists
	os.MkdirAll(storagePath, 0755)

	return &Service{
		leads:       leadService,
		storagePath: storagePath,
	}
}

// Result describes a finished export file
type Result struct {
	FileName  string `json:"file_name"`
	FilePath  string `json:"-"`
	Format    string `json:"format"`
	LeadCount int    `json:"lead_count"`
}

// Export fetches the leads matching the filters and writes them as CSV or
// Excel. The generated file name embeds a timestamp so repeated exports never
// collide.
func (s *Service) Export(ctx context.Context, format string, f leads.Filters) (*Result, error) {
	if format != FormatCSV && format != FormatExcel {
		return nil, domain.NewValidationError("invalid format: must be csv or excel")
	}

	rows, err := s.leads.List(ctx, f)
	if err != nil {
		return nil, err
	}

	ext := "csv"
	if format == FormatExcel {
		ext = "xlsx"
	}
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("leads-%s.%s", timestamp, ext)
	path := filepath.Join(s.storagePath, filename)

	if format == FormatCSV {
		err = s.generateCSV(path, rows)
	} else {
		err = s.generateExcel(path, rows)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		FileName:  filename,
		FilePath:  path,
		Format:    format,
		LeadCount: len(rows),
	}, nil
}

var exportHeaders = []string{
	"ID", "Client Name", "Client Email", "Client Phone", "Lead Source",
	"Status", "Deal Value", "Agent ID", "Created At",
}

func leadRow(l models.Lead) []string {
	agentID := ""
	if l.AgentID != nil {
		agentID = *l.AgentID
	}
	return []string{
		l.ID, l.ClientName, l.ClientEmail, l.ClientPhone, l.LeadSource,
		l.StatusBucket, fmt.Sprintf("%.2f", l.DealValue), agentID,
		l.CreatedAt.Format(time.RFC3339),
	}
}

// generateCSV generates a CSV file from leads
func (s *Service) generateCSV(path string, rows []models.Lead) error {
	file, err := os.Create(path)
	if err != nil {
		return domain.NewInternalError("failed to create export file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(exportHeaders); err != nil {
		return domain.NewInternalError("failed to write header", err)
	}
	for _, l := range rows {
		if err := writer.Write(leadRow(l)); err != nil {
			return domain.NewInternalError("failed to write row", err)
		}
	}
	return nil
}

// generateExcel generates an Excel file from leads
func (s *Service) generateExcel(path string, rows []models.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Leads"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return domain.NewInternalError("failed to create sheet", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return domain.NewInternalError("failed to create style", err)
	}

	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, l := range rows {
		row := rowIdx + 2 // Start from row 2 (after header)
		for colIdx, val := range leadRow(l) {
			f.SetCellValue(sheetName, fmt.Sprintf("%c%d", 'A'+colIdx, row), val)
		}
	}

	for i := range exportHeaders {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 18)
	}

	f.SetActiveSheet(index)

	if err := f.SaveAs(path); err != nil {
		return domain.NewInternalError("failed to save export file", err)
	}
	return nil
}
