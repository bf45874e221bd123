package export

import (
	"io"
	"sort"

	"familyhub-tracker/internal/errs"
)

// Writer пишет документ в файлы (WriteFiles) или в поток (Stream).
type Writer interface {
	WriteFiles(doc *Document, path string) ([]string, error)
	Stream(doc *Document, w io.Writer) error
	ContentType() string
}

type Registry struct {
	writers map[Format]Writer
}

// NewRegistry регистрирует JSON и CSV всегда, Excel — только если включён.
func NewRegistry(excelEnabled bool) *Registry {
	r := &Registry{writers: map[Format]Writer{}}
	r.Register(FormatJSON, jsonWriter{})
	r.Register(FormatCSV, csvWriter{})
	if excelEnabled {
		r.Register(FormatExcel, excelWriter{})
	}
	return r
}

func (r *Registry) Register(f Format, w Writer) { r.writers[f] = w }

func (r *Registry) Get(f Format) (Writer, error) {
	w, ok := r.writers[f]
	if !ok {
		return nil, errs.Wrapf(errs.ErrFormatUnavailable, "%s export is not enabled", f)
	}
	return w, nil
}

func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.writers))
	for f := range r.writers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
