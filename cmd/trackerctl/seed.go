package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/config"
	"familyhub-tracker/internal/seed"
)

func seedCmd() *cobra.Command {
	var opts seed.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with FamilyHub sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(_ *config.Config, db *gorm.DB, lg zerolog.Logger) error {
				s, err := seed.Run(db, clock.Real{}, lg, opts)
				if err != nil {
					return err
				}
				renderSeedSummary(cmd, s)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "delete existing tracker data first")
	cmd.Flags().BoolVar(&opts.Minimal, "minimal", false, "create a minimal dataset")
	cmd.Flags().StringVar(&opts.User, "user", "admin", "username that owns the sample project")
	return cmd
}

func renderSeedSummary(cmd *cobra.Command, s *seed.Summary) {
	w := out(cmd)
	if len(s.Deleted) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetTitle("Deleted")
		tw.AppendHeader(table.Row{"Data type", "Records"})
		for _, k := range []string{"integrations", "decisions", "artifacts", "tasks", "applications", "projects"} {
			tw.AppendRow(table.Row{k, s.Deleted[k]})
		}
		tw.Render()
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Created")
	tw.AppendHeader(table.Row{"Data type", "Records"})
	tw.AppendRows([]table.Row{
		{"projects", s.Projects},
		{"applications", s.Applications},
		{"tasks", s.Tasks},
		{"artifacts", s.Artifacts},
		{"decisions", s.Decisions},
		{"integrations", s.Integrations},
	})
	tw.Render()

	owner := s.Owner
	if s.OwnerCreated {
		owner += fmt.Sprintf(" (created, password %q)", seed.DefaultPassword)
	}
	fmt.Fprintln(w, "Owner:", owner)
}
