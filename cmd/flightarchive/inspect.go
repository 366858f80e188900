package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tzl-ops/flightarchive/pkg/ingest/detect"
	"github.com/tzl-ops/flightarchive/pkg/inspect"
	"github.com/tzl-ops/flightarchive/pkg/tui"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		showHeader bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <workbook>...",
		Short: "Show how each sheet of a workbook is classified",
		Long: `Classify every worksheet of one or more workbooks and report the layout,
the reason for the decision, the number of data rows and, with --header, the
header row with column indexes.

Examples:
  flightarchive inspect "2025/Dnevni izvještaji/01. JANUAR/januar.xlsx"
  flightarchive inspect --header --json januar.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier := detect.NewClassifier(nil)

			var reports []*inspect.WorkbookReport
			for _, path := range args {
				report, err := inspect.InspectWorkbook(path, classifier)
				if err != nil {
					return err
				}
				if !showHeader {
					for i := range report.Sheets {
						report.Sheets[i].Header = nil
					}
				}
				reports = append(reports, report)
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			for _, r := range reports {
				tui.PrintInspect(a.stdout, r, showHeader)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showHeader, "header", false, "Print the header row of each sheet")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reports as JSON")
	return cmd
}
