package commands

import (
	"fmt"
	"io"
	"jwassist-backend/internal/coursestore"
	"jwassist-backend/internal/schedule"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var showWeek *int
var showFile *string
var showFromDb *bool

func init() {
	showWeek = showCmd.Flags().Int("week", 0, "The week to show.")
	showFile = showCmd.Flags().String("file", "", "The dataset json to read (defaults to output).")
	showFromDb = showCmd.Flags().Bool("from-db", false, "Read the week from the configured database instead.")
	showCmd.MarkFlagRequired("week")
	rootCmd.AddCommand(showCmd)
}

func renderWeek(w io.Writer, week int, records []schedule.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Week %d", week))
	t.AppendHeader(table.Row{"Weekday", "Date", "Section", "Course", "Classroom"})
	for _, r := range records {
		t.AppendRow(table.Row{r.Weekday, r.Date, r.Section, r.Name, r.Classroom})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", strconv.Itoa(len(records))})
	t.Render()
}

var showCmd = &cobra.Command{
	Use:   "show --week <n> [--file <file.json> | --from-db]",
	Short: "Renders one week of the dataset as a table.",
	RunE: withEnvironment(func(cmd *cobra.Command, args []string, env environment) error {
		if *showWeek < 1 {
			return fmt.Errorf("invalid week %d", *showWeek)
		}
		key := schedule.WeekKey(*showWeek)

		var records []schedule.Record
		if *showFromDb {
			db, err := coursestore.Open(env.config.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			store, err := coursestore.NewStore(cmd.Context(), db)
			if err != nil {
				return err
			}
			records, err = store.Week(cmd.Context(), key)
			if err != nil {
				return err
			}
		} else {
			path := env.config.Output
			if *showFile != "" {
				path = *showFile
			}
			dataset, err := schedule.ReadDatasetFile(path)
			if err != nil {
				return err
			}
			records = dataset[key]
		}

		renderWeek(cmd.OutOrStdout(), *showWeek, records)
		return nil
	}),
}
