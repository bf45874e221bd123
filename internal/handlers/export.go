package handlers

import (
	"bytes"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/export"
	"familyhub-tracker/internal/models"
)

// GET /api/export?format=json|csv|excel&project=<id>&include=tasks,decisions
//
// CSV отдаёт одну таблицу: первый вид из include (по умолчанию projects).
func APIExport(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		jsonError(c, err)
		return
	}
	include, err := export.ParseKinds(c.QueryArray("include"))
	if err != nil {
		jsonError(c, err)
		return
	}
	if format == export.FormatCSV {
		include = include[:1]
	}

	var projectID *uint
	if raw := c.Query("project"); raw != "" {
		projectID = optionalID(raw)
		if projectID == nil {
			jsonError(c, errs.Invalid("project", "invalid project id %q", raw))
			return
		}
	}

	exp := export.NewExporter(database.DB, deps.Clock, deps.Exports)
	w, err := exp.Writer(format)
	if err != nil {
		jsonError(c, err)
		return
	}
	doc, err := exp.Build(export.Options{ProjectID: projectID, Format: format, Include: include})
	if err != nil {
		jsonError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := w.Stream(doc, &buf); err != nil {
		jsonError(c, errs.Wrapf(err, "write %s export", format))
		return
	}

	name := filepath.Base(export.DefaultPath("", format, deps.Clock.Now()))
	if format == export.FormatCSV {
		name = name[:len(name)-len(".csv")] + "_" + string(include[0]) + ".csv"
	}

	deps.Logger.Info().
		Str("format", string(format)).
		Int("records", doc.Total()).
		Str("export_id", doc.Info.ExportID).
		Msg("export served")
	database.CreateActivityLog(currentUserID(c), "export", 0, projectID, "export",
		"Exported "+string(format)+" ("+kindList(include)+")")

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, w.ContentType(), buf.Bytes())
}

func kindList(kinds []models.Kind) string {
	s := ""
	for i, k := range kinds {
		if i > 0 {
			s += ", "
		}
		s += string(k)
	}
	return s
}
