// Package main implements the transits CLI for offline reports and lookups.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"AstroTransit/internal/di"
	"AstroTransit/internal/domain/models"
	drepo "AstroTransit/internal/domain/repository"
	"AstroTransit/internal/services/aspects"
	"AstroTransit/internal/usecase"
	"AstroTransit/pkg/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath string
	verbose    bool

	reportStart  string
	reportEnd    string
	reportNatal  string
	reportBirth  string
	reportLat    float64
	reportLon    float64
	reportFormat string
	reportOut    string
	reportBodies []string

	matchTable string

	positionsDate string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "transits",
	Short: "Astrological transit reports and aspect lookups",
	Long: `transits computes daily planetary transits against a natal chart or
between the planets themselves, using the configured ephemeris.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	reportCmd.Flags().StringVar(&reportStart, "start", "", "first day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "last day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportNatal, "natal", "", "natal chart YAML file")
	reportCmd.Flags().StringVar(&reportBirth, "birth", "", "birth instant (RFC3339) to compute the chart from")
	reportCmd.Flags().Float64Var(&reportLat, "lat", 0, "birth latitude")
	reportCmd.Flags().Float64Var(&reportLon, "lon", 0, "birth longitude")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "output format: text, markdown or json")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to a file instead of stdout")
	reportCmd.Flags().StringSliceVar(&reportBodies, "bodies", nil, "transiting bodies (default from config)")
	_ = reportCmd.MarkFlagRequired("start")
	_ = reportCmd.MarkFlagRequired("end")

	matchCmd.Flags().StringVar(&matchTable, "table", "natal", "aspect table: natal or mundane")

	positionsCmd.Flags().StringVar(&positionsDate, "date", "", "day (YYYY-MM-DD)")
	_ = positionsCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(reportCmd, matchCmd, positionsCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a transit report for a date range",
	Long: `Generate a transit report for a date range.

With --natal or --birth the report lists transits to the natal chart.
Without either it lists the weekly sky aspects.

Examples:
  transits report --start 2024-01-01 --end 2024-01-07
  transits report --start 2024-01-01 --end 2024-01-31 --natal chart.yaml -f markdown
  transits report --start 2024-01-01 --end 2024-01-07 --birth 1990-05-01T08:30:00Z --lat 51.5 --lon -0.1`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var matchCmd = &cobra.Command{
	Use:   "match <longitude-a> <longitude-b>",
	Short: "Find the aspect between two longitudes",
	Args:  cobra.ExactArgs(2),
	RunE:  runMatch,
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show the sky for one day",
	Args:  cobra.NoArgs,
	RunE:  runPositions,
}

func loadEngine() (*di.Engine, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Log.Level = "warn"
	if verbose {
		cfg.Log.Level = "debug"
	}
	return di.InitializeEngine(cfg)
}

func runReport(cmd *cobra.Command, _ []string) error {
	if reportNatal != "" && reportBirth != "" {
		return fmt.Errorf("--natal and --birth are mutually exclusive")
	}
	format := models.ReportFormat(reportFormat)
	if drepo.NormalizeFormat(reportFormat) != format {
		return fmt.Errorf("unknown format %q", reportFormat)
	}

	eng, err := loadEngine()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start, err := eng.Generator.ParseDate(reportStart)
	if err != nil {
		return err
	}
	end, err := eng.Generator.ParseDate(reportEnd)
	if err != nil {
		return err
	}

	params := usecase.ReportParams{Mode: models.ModeWeekly, Start: start, End: end, Bodies: reportBodies}
	switch {
	case reportNatal != "":
		dto, err := readChart(reportNatal)
		if err != nil {
			return err
		}
		if params.Chart, err = eng.Charts.ResolveChart(ctx, dto, nil); err != nil {
			return err
		}
		params.Mode = models.ModeNatal
	case reportBirth != "":
		birth := &models.BirthRequest{Time: reportBirth, Latitude: reportLat, Longitude: reportLon}
		if params.Chart, err = eng.Charts.ResolveChart(ctx, nil, birth); err != nil {
			return err
		}
		params.Mode = models.ModeNatal
	}

	report, err := eng.Generator.Generate(ctx, params)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if reportOut != "" {
		f, err := os.Create(reportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return usecase.RenderReport(w, report, format)
}

func readChart(path string) (*models.ChartDTO, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chart: %w", err)
	}
	var dto models.ChartDTO
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return nil, fmt.Errorf("parse chart %s: %w", path, err)
	}
	return &dto, nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	a, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("longitude a: %w", err)
	}
	b, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("longitude b: %w", err)
	}

	eng, err := loadEngine()
	if err != nil {
		return err
	}
	var m *aspects.Matcher
	switch matchTable {
	case "natal":
		m = eng.Matchers.Natal
	case "mundane":
		m = eng.Matchers.Mundane
	default:
		return fmt.Errorf("unknown table %q", matchTable)
	}

	w := cmd.OutOrStdout()
	sep := aspects.Separation(a, b)
	am, ok := m.Match(a, b)
	if !ok {
		fmt.Fprintf(w, "no aspect (separation %.2f°)\n", sep)
		return nil
	}
	fmt.Fprintf(w, "%s (orb %.2f°, separation %.2f°)\n", am.Aspect, am.Orb, sep)
	return nil
}

func runPositions(cmd *cobra.Command, _ []string) error {
	eng, err := loadEngine()
	if err != nil {
		return err
	}
	day, err := eng.Generator.ParseDate(positionsDate)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ps, err := eng.Scanner.Positions(ctx, eng.Scanner.Instant(day))
	if err != nil {
		return err
	}
	return writePositions(cmd.OutOrStdout(), day.Format("2006-01-02"), ps)
}

func writePositions(w io.Writer, date string, ps []models.Position) error {
	var sun, moon float64
	var haveSun, haveMoon bool
	var retro, unknown []string

	if _, err := fmt.Fprintf(w, "Sky on %s\n", date); err != nil {
		return err
	}
	for _, p := range ps {
		fmt.Fprintf(w, "  %-10s %s%s\n", p.Body, models.FormatLongitude(p.Longitude), p.Retrograde.Marker())
		switch p.Retrograde {
		case models.Retro:
			retro = append(retro, p.Body)
		case models.RetrogradeUnknown:
			unknown = append(unknown, p.Body)
		}
		switch p.Body {
		case models.Sun:
			sun, haveSun = p.Longitude, true
		case models.Moon:
			moon, haveMoon = p.Longitude, true
		}
	}
	if haveSun && haveMoon {
		fmt.Fprintf(w, "Moon phase: %s\n", aspects.MoonPhase(sun, moon))
	}
	if len(retro) > 0 || len(unknown) > 0 {
		fmt.Fprintf(w, "Retrograde: %s\n", models.RetrogradeSummary(retro, unknown))
	}
	return nil
}
