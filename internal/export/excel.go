package export

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"familyhub-tracker/internal/models"
)

const (
	summarySheet = "Summary"
	headerFill   = "CCCCCC"
)

type excelWriter struct{}

func (excelWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (excelWriter) Stream(doc *Document, w io.Writer) error {
	f, err := workbook(doc)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func (excelWriter) WriteFiles(doc *Document, path string) ([]string, error) {
	f, err := workbook(doc)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// SheetName — имя листа для вида: "tasks" → "Tasks".
func SheetName(kind models.Kind) string {
	return cases.Title(language.English).String(string(kind))
}

// workbook: лист Summary первым, затем по листу на вид.
func workbook(doc *Document) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummary(f, doc, title, header); err != nil {
		f.Close()
		return nil, err
	}
	for _, t := range doc.Tables {
		if err := writeSheet(f, t, header); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSummary(f *excelize.File, doc *Document, title, header int) error {
	project := doc.Info.Project
	if project == "all" {
		project = "All Projects"
	}

	rows := [][]any{
		{"FamilyHub Development Tracker - Export Summary"},
		{"Export Date:", doc.Info.Timestamp.Format("2006-01-02 15:04:05")},
		{"Project:", project},
		{"Export ID:", doc.Info.ExportID},
		{},
		{"Data Type", "Record Count"},
	}
	for _, t := range doc.Tables {
		rows = append(rows, []any{SheetName(t.Kind), t.Len()})
	}
	rows = append(rows, []any{"Total", doc.Total()})

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A6", "B6", header); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "B", 24)
}

func writeSheet(f *excelize.File, t Table, header int) error {
	name := SheetName(t.Kind)
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headers := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	if err := f.SetSheetRow(name, "A1", &headers); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
	if err := f.SetCellStyle(name, "A1", last, header); err != nil {
		return err
	}

	for r, row := range t.Rows {
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = cellValue(v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(t.Columns))
	return f.SetColWidth(name, "A", lastCol, 18)
}

// cellValue оставляет числа числами, остальное — текстом.
func cellValue(v any) any {
	switch x := v.(type) {
	case int, int64, uint:
		return x
	case []string:
		return strings.Join(x, "; ")
	default:
		return cellText(v)
	}
}
