package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type csvWriter struct{}

func (csvWriter) ContentType() string { return "text/csv; charset=utf-8" }

// Stream пишет первую таблицу документа: HTTP отдаёт CSV по одному виду.
func (csvWriter) Stream(doc *Document, w io.Writer) error {
	if len(doc.Tables) == 0 {
		return nil
	}
	return writeCSV(w, doc.Tables[0])
}

// WriteFiles пишет по файлу на вид: <base>_<kind>.csv рядом с path.
func (csvWriter) WriteFiles(doc *Document, path string) ([]string, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))

	files := make([]string, 0, len(doc.Tables))
	for _, t := range doc.Tables {
		name := fmt.Sprintf("%s_%s.csv", base, t.Kind)
		if err := writeCSVFile(name, t); err != nil {
			return files, err
		}
		files = append(files, name)
	}
	return files, nil
}

func writeCSVFile(name string, t Table) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := writeCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Key
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = cellText(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
