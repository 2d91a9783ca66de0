package cmd

import (
	"github.com/spf13/cobra"

	"lpr-service/internal/db"
	"lpr-service/internal/service"
)

var (
	reportDay    string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise the detections of a day",
	RunE:  runReport,
}

func init() {
	RootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportDay, "day", "", "Day as YYYY-MM-DD (defaults to today)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "yaml", "Output format: yaml or json")
}

func runReport(cmd *cobra.Command, args []string) error {
	conn, store, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close(conn)

	report, err := service.NewDetectionService(store, store, log).Report(cmd.Context(), reportDay)
	if err != nil {
		return err
	}
	return writeFormatted(cmd.OutOrStdout(), reportFormat, report)
}
