package export

import (
	"encoding/json"
	"io"
	"os"

	"familyhub-tracker/internal/models"
)

type jsonDocument struct {
	ExportInfo Info                             `json:"export_info"`
	Data       map[models.Kind][]map[string]any `json:"data"`
}

type jsonWriter struct{}

func (jsonWriter) ContentType() string { return "application/json" }

func (jsonWriter) Stream(doc *Document, w io.Writer) error {
	out := jsonDocument{ExportInfo: doc.Info, Data: make(map[models.Kind][]map[string]any, len(doc.Tables))}
	for _, t := range doc.Tables {
		out.Data[t.Kind] = t.Records()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (j jsonWriter) WriteFiles(doc *Document, path string) ([]string, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := j.Stream(doc, f); err != nil {
		f.Close()
		return nil, err
	}
	return []string{path}, f.Close()
}
