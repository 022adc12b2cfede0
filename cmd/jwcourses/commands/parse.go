package commands

import (
	"fmt"
	"jwassist-backend/internal/coursestore"
	"jwassist-backend/internal/scrapers/jwxt"

	"github.com/spf13/cobra"
)

var parseDir *string
var parseOut *string
var parseDb *string

func init() {
	parseDir = parseCmd.Flags().String("dir", "", "The directory of exported workbooks (defaults to export_dir).")
	parseOut = parseCmd.Flags().String("out", "", "The dataset json to write (defaults to output).")
	parseDb = parseCmd.Flags().String("db", "", "Also save the dataset into this sqlite path or libsql url.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse [--dir <dir>] [--out <file.json>] [--db <dsn>]",
	Short: "Assembles exported workbooks into the weekly dataset json.",
	RunE: withEnvironment(func(cmd *cobra.Command, args []string, env environment) error {
		dir := env.config.ExportDir
		if *parseDir != "" {
			dir = *parseDir
		}
		out := env.config.Output
		if *parseOut != "" {
			out = *parseOut
		}
		db := env.config.DB
		if *parseDb != "" {
			db = coursestore.Config{Url: *parseDb}
		}

		p := pipeline{
			config: env.config,
			tel:    env.tel,
			clock:  env.clock,
		}
		dataset, err := p.parse(cmd.Context(), dir, out)
		if err != nil {
			return err
		}
		if db.Url != "" {
			err = p.store(cmd.Context(), db, dataset, jwxt.ExportReport{})
			if err != nil {
				return fmt.Errorf("store dataset: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d weeks written to %s\n", len(dataset), out)
		return nil
	}),
}
