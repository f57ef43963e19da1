package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"AstroTransit/internal/domain/models"
)

// NoTransitsMessage is printed when no day in the range qualifies.
const NoTransitsMessage = "No significant transits or aspect changes found during this period."

// FormatTransit renders "<Body1>[ (R)] <Aspect> <Body2>[ (R)] (orb: X.X°)".
func FormatTransit(t models.Transit) string {
	return fmt.Sprintf("%s%s %s %s%s (orb: %.1f°)",
		t.TransitBody, t.TransitRetrograde.Marker(),
		t.Aspect,
		t.NatalBody, t.NatalRetrograde.Marker(),
		t.Orb,
	)
}

func formatEnded(t models.Transit) string {
	return fmt.Sprintf("%s %s %s ended", t.TransitBody, t.Aspect, t.NatalBody)
}

func formatPosition(p models.Position) string {
	return fmt.Sprintf("%s%s: %s", p.Body, p.Retrograde.Marker(), models.FormatLongitude(p.Longitude))
}

func reportTitle(r *models.Report) string {
	kind := "Natal Transit Report"
	if r.Mode == models.ModeWeekly {
		kind = "Weekly Transit Report"
	}
	return fmt.Sprintf("%s: %s to %s", kind, r.Start.Format(dateLayout), r.End.Format(dateLayout))
}

func dayHeading(d models.DailyTransits) string {
	return fmt.Sprintf("%s (%s)", d.Date.Format(dateLayout), d.Date.Weekday())
}

// RenderReport writes r to w in format f.
func RenderReport(w io.Writer, r *models.Report, f models.ReportFormat) error {
	switch f {
	case models.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case models.FormatMarkdown:
		_, err := io.WriteString(w, renderMarkdown(r))
		return err
	case models.FormatText, "":
		_, err := io.WriteString(w, renderText(r))
		return err
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// RenderString is RenderReport into a string.
func RenderString(r *models.Report, f models.ReportFormat) (string, error) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, r, f); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(r *models.Report) string {
	var b strings.Builder
	b.WriteString(reportTitle(r))
	b.WriteString("\n\n")
	if len(r.Days) == 0 {
		b.WriteString(NoTransitsMessage)
		b.WriteString("\n")
		return b.String()
	}
	for i, d := range r.Days {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(dayHeading(d))
		b.WriteString("\n")
		if r.Mode == models.ModeWeekly {
			if d.MoonPhase != "" {
				fmt.Fprintf(&b, "  Moon Phase: %s\n", d.MoonPhase)
			}
			fmt.Fprintf(&b, "  Retrograde: %s\n", models.RetrogradeSummary(d.Retrogrades, d.RetrogradeUnknown))
			if len(d.Positions) > 0 {
				b.WriteString("  Positions:\n")
				for _, p := range d.Positions {
					fmt.Fprintf(&b, "    %s\n", formatPosition(p))
				}
			}
		}
		textSection(&b, "Aspect Changes", d.AspectChanges, FormatTransit)
		textSection(&b, "Aspects Ended", d.Ended, formatEnded)
		textSection(&b, "Active Transits", d.Transits, FormatTransit)
	}
	return b.String()
}

func textSection(b *strings.Builder, title string, ts []models.Transit, line func(models.Transit) string) {
	if len(ts) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", title)
	for _, t := range ts {
		fmt.Fprintf(b, "    %s\n", line(t))
	}
}

func renderMarkdown(r *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", reportTitle(r))
	if len(r.Days) == 0 {
		b.WriteString("_" + NoTransitsMessage + "_\n")
		return b.String()
	}
	for _, d := range r.Days {
		fmt.Fprintf(&b, "## %s\n\n", dayHeading(d))
		if r.Mode == models.ModeWeekly {
			if d.MoonPhase != "" {
				fmt.Fprintf(&b, "- **Moon Phase:** %s\n", d.MoonPhase)
			}
			fmt.Fprintf(&b, "- **Retrograde:** %s\n\n", models.RetrogradeSummary(d.Retrogrades, d.RetrogradeUnknown))
			if len(d.Positions) > 0 {
				b.WriteString("| Body | Position |\n|---|---|\n")
				for _, p := range d.Positions {
					fmt.Fprintf(&b, "| %s%s | %s |\n", p.Body, p.Retrograde.Marker(), models.FormatLongitude(p.Longitude))
				}
				b.WriteString("\n")
			}
		}
		mdSection(&b, "Aspect Changes", d.AspectChanges, FormatTransit)
		mdSection(&b, "Aspects Ended", d.Ended, formatEnded)
		mdSection(&b, "Active Transits", d.Transits, FormatTransit)
	}
	return b.String()
}

func mdSection(b *strings.Builder, title string, ts []models.Transit, line func(models.Transit) string) {
	if len(ts) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, t := range ts {
		fmt.Fprintf(b, "- %s\n", line(t))
	}
	b.WriteString("\n")
}
