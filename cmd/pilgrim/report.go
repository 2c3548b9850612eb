package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aluiziolira/automation-pilgrim/config"
	"github.com/aluiziolira/automation-pilgrim/kpi"
	"github.com/aluiziolira/automation-pilgrim/report"
)

// NewReportCmd creates the report subcommand.
func NewReportCmd(v *viper.Viper) *cobra.Command {
	def := config.DefaultConfig().Report

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the yearly KPI dashboard from a sales file",
		Long: `Load sales rows (CSV or XLSX with Date, Category, TotalSales and QuantitySold
columns), aggregate them per year and category, and render the dashboard as a
Markdown document. A load failure aborts without producing any output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			if err := cfg.Report.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runReport(&cfg.Report, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("input", def.InputFile, "Sales file to aggregate (.csv or .xlsx)")
	f.String("output", def.OutputFile, "Markdown dashboard path")
	f.String("xlsx", def.XLSXFile, "Also write the dashboard tables to this workbook")
	f.Int("sample-rows", def.SampleRows, "Raw rows shown on the sample page")

	bindFlags(v, f, map[string]string{
		"report.input":       "input",
		"report.output":      "output",
		"report.xlsx":        "xlsx",
		"report.sample_rows": "sample-rows",
	})

	return cmd
}

func runReport(cfg *config.ReportConfig, out io.Writer) error {
	data, err := kpi.Load(cfg.InputFile)
	if err != nil {
		slog.Error("loading sales data", slog.String("path", cfg.InputFile), slog.Any("error", err))
		return fmt.Errorf("load sales data: %w", err)
	}
	slog.Info("sales data loaded", slog.String("path", cfg.InputFile), slog.Int("rows", len(data.Sales)))

	result := kpi.Aggregate(data.Sales)
	dashboard := report.NewDashboard(data, result, cfg.SampleRows)

	err = report.WriteFile(cfg.OutputFile, func(w io.Writer) error {
		return report.WriteDashboardMarkdown(w, dashboard)
	})
	if err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	slog.Info("dashboard written", slog.String("path", cfg.OutputFile))

	if cfg.XLSXFile != "" {
		if err := report.WriteDashboardXLSX(cfg.XLSXFile, dashboard); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		slog.Info("workbook written", slog.String("path", cfg.XLSXFile))
	}

	fmt.Fprintf(out, "Dashboard saved as %s (%d groups)\n", cfg.OutputFile, len(result.Sales))
	return nil
}
