package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jabbusiness-client-go/internal/app/hooks"
	"jabbusiness-client-go/internal/domain/models"
)

const dateLayout = "2006-01-02"

// rangeFlags select a date range either explicitly or as the last N days.
type rangeFlags struct {
	days  int
	start string
	end   string
}

func (r *rangeFlags) register(cmd *cobra.Command, defaultDays int) {
	cmd.Flags().IntVar(&r.days, "days", defaultDays, "Quick range: last 7, 30 or 90 days")
	cmd.Flags().StringVar(&r.start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&r.end, "end", "", "End date (YYYY-MM-DD)")
}

// resolve returns the range as dates. Explicit dates win over --days; a
// lone --start runs until today.
func (r rangeFlags) resolve(now time.Time) (string, string, error) {
	end := now.Format(dateLayout)
	if r.end != "" {
		if _, err := time.Parse(dateLayout, r.end); err != nil {
			return "", "", fmt.Errorf("invalid --end %q: want YYYY-MM-DD", r.end)
		}
		end = r.end
	}
	if r.start != "" {
		if _, err := time.Parse(dateLayout, r.start); err != nil {
			return "", "", fmt.Errorf("invalid --start %q: want YYYY-MM-DD", r.start)
		}
		if r.start > end {
			return "", "", fmt.Errorf("--start %s is after --end %s", r.start, end)
		}
		return r.start, end, nil
	}
	switch r.days {
	case 7, 30, 90:
	default:
		return "", "", fmt.Errorf("--days must be 7, 30 or 90, got %d", r.days)
	}
	endTime, _ := time.Parse(dateLayout, end)
	return endTime.AddDate(0, 0, -r.days).Format(dateLayout), end, nil
}

func (c *CLI) analyticsCommand() *cobra.Command {
	var (
		rng      rangeFlags
		location string
		kind     string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:     "analytics",
		Aliases: []string{"dashboard"},
		Short:   "Show the KPI summary for a date range",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := rng.resolve(c.opts.Now())
			if err != nil {
				return err
			}
			obs := c.app.Hooks.Analytics(models.AnalyticsParams{
				StartDate:  start,
				EndDate:    end,
				LocationID: location,
				Type:       kind,
			})
			defer obs.Close()

			data, err := hooks.Await(cmd.Context(), obs)
			if err != nil {
				return err
			}
			if asJSON {
				return c.out.json(data)
			}
			c.printAnalytics(start, end, data)
			return nil
		},
	}
	rng.register(cmd, 30)
	cmd.Flags().StringVar(&location, "location", "", "Filter by location id")
	cmd.Flags().StringVar(&kind, "type", "", "Filter by JABB type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw response as JSON")
	return cmd
}

func (c *CLI) printAnalytics(start, end string, a *models.AnalyticsResponse) {
	p := c.out
	p.header(fmt.Sprintf("Analytics %s → %s", start, end))
	p.field("Total JABBs", a.TotalJabbs)
	p.field("Avg Score", fmt.Sprintf("%.1f%%", a.AvgScore))
	p.field("Locations", a.LocationsCovered)
	p.printf("  %s %s\n", p.out.label.Render(fmt.Sprintf("%-18s", "Trend")), p.trend(a.TrendPct))
	p.field("Positive / Negative", ratePercent(a.UpRate)+" / "+ratePercent(a.DownRate))

	if len(a.ScoreTrend) > 0 {
		p.println()
		p.header("Score trend")
		for _, pt := range a.ScoreTrend {
			p.printf("  %s  %5.1f%%\n", pt.Date, pt.Score)
		}
	}
	if len(a.TopThemesNegative) > 0 {
		p.println()
		p.header("Top negative themes")
		for _, th := range a.TopThemesNegative {
			p.printf("  %-28s %4d  %s\n", th.Label, th.Mentions, th.Severity)
		}
	}
	if len(a.RecentJabbs) > 0 {
		p.println()
		p.header("Recent activity")
		for _, j := range a.RecentJabbs {
			p.printf("  %s  %-12s %-14s %5.1f%%  %s\n", p.out.id.Render(shortID(j.ID)), j.Type, j.Subtype, j.ScorePercentage, j.JabberName)
		}
	}
}
