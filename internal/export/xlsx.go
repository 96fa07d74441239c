package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
)

var (
	ErrNothingToExport = errors.New("no summaries to export")
)

const sheetName = "Summaries"

var headers = []string{"Type", "Period", "Start", "End", "Provider", "Degraded", "Generated At", "Content"}

// Summaries renders one row per summary into an xlsx workbook and returns it
// with a suggested file name.
func Summaries(tenant string, summaries []*storage.Summary) (*bytes.Buffer, string, error) {
	if len(summaries) == 0 {
		return nil, "", ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, "", fmt.Errorf("failed to remove default sheet: %w", err)
	}

	widths := []float64{10, 18, 12, 12, 28, 10, 20, 100}
	for i, w := range widths {
		col := colName(i)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, "", err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", err
	}
	contentStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, "", err
	}

	for i, h := range headers {
		if err := f.SetCellValue(sheetName, cell(colName(i), 1), h); err != nil {
			return nil, "", err
		}
	}
	if err := f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle); err != nil {
		return nil, "", err
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, "", err
	}

	for i, s := range summaries {
		row := i + 2
		values := []interface{}{
			string(s.Type),
			s.Period().Label(),
			s.StartDate.UTC().Format(period.DayLayout),
			s.EndDate.UTC().Format(period.DayLayout),
			s.Provider,
			s.Degraded,
			s.GeneratedAt.UTC().Format("2006-01-02 15:04:05"),
			s.Content,
		}
		if err := f.SetSheetRow(sheetName, cell("A", row), &values); err != nil {
			return nil, "", fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	lastContent := cell(colName(len(headers)-1), len(summaries)+1)
	if err := f.SetCellStyle(sheetName, cell(colName(len(headers)-1), 2), lastContent, contentStyle); err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf, fileName(tenant, summaries), nil
}

// WriteFile exports summaries to path, creating parent directories.
func WriteFile(path, tenant string, summaries []*storage.Summary) error {
	buf, _, err := Summaries(tenant, summaries)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func fileName(tenant string, summaries []*storage.Summary) string {
	kind := string(summaries[0].Type)
	for _, s := range summaries[1:] {
		if s.Type != summaries[0].Type {
			kind = "all"
			break
		}
	}
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, tenant)
	return fmt.Sprintf("summaries_%s_%s.xlsx", safe, kind)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
