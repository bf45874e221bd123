package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/config"
	"familyhub-tracker/internal/export"
)

func exportCmd() *cobra.Command {
	var (
		format    string
		projectID uint
		include   []string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tracker data to JSON, CSV or Excel",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			kinds, err := export.ParseKinds(include)
			if err != nil {
				return err
			}
			opts := export.Options{Format: f, Include: kinds}
			if projectID > 0 {
				opts.ProjectID = &projectID
			}

			return withDB(cmd, func(cfg *config.Config, db *gorm.DB, lg zerolog.Logger) error {
				clk := clock.Real{}
				path := output
				if path == "" {
					path = export.DefaultPath(cfg.ExportDir, f, clk.Now())
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}

				exp := export.NewExporter(db, clk, export.NewRegistry(cfg.ExportExcelEnabled))
				s, err := exp.Export(opts, path)
				if err != nil {
					return err
				}
				lg.Info().Str("export_id", s.Info.ExportID).Int("records", s.Total).Msg("export written")
				renderExportSummary(cmd, s)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "export format: json, csv or excel")
	cmd.Flags().UintVar(&projectID, "project", 0, "export a single project by id")
	cmd.Flags().StringSliceVar(&include, "include", nil, "data types to include (projects,applications,tasks,artifacts,decisions,integrations)")
	cmd.Flags().StringVar(&output, "output", "", "output file (defaults to EXPORT_DIR/familyhub_export_<timestamp>)")
	return cmd
}

func renderExportSummary(cmd *cobra.Command, s *export.Summary) {
	w := out(cmd)
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Export " + s.Info.ExportID)
	tw.AppendHeader(table.Row{"Data type", "Records"})
	for _, k := range s.Info.IncludeTypes {
		tw.AppendRow(table.Row{k, s.Counts[k]})
	}
	tw.AppendFooter(table.Row{"Total", s.Total})
	tw.Render()

	for _, f := range s.Files {
		fmt.Fprintln(w, "Written:", f)
	}
}
