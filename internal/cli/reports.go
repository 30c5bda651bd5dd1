package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jabbusiness-client-go/internal/app/hooks"
	"jabbusiness-client-go/internal/domain/models"
)

func (c *CLI) reportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Generate, list and share flash reports",
	}
	cmd.AddCommand(
		c.reportsListCommand(),
		c.reportsGenerateCommand(),
		c.reportsDeleteCommand(),
		c.reportsShareCommand(),
		c.reportsSharedCommand(),
		c.reportsDownloadCommand(),
	)
	return cmd
}

func (c *CLI) reportsListCommand() *cobra.Command {
	var (
		params models.ListReportsParams
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generated reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			obs := c.app.Hooks.Reports(params)
			defer obs.Close()
			data, err := hooks.Await(cmd.Context(), obs)
			if err != nil {
				return err
			}
			if asJSON {
				return c.out.json(data)
			}
			c.printReports(data)
			return nil
		},
	}
	cmd.Flags().IntVar(&params.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&params.Limit, "limit", 20, "Reports per page")
	cmd.Flags().StringVar(&params.Sort, "sort", "", "Sort order (newest, oldest)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw response as JSON")
	return cmd
}

func (c *CLI) printReports(data *models.ReportsListResponse) {
	if len(data.Reports) == 0 {
		c.out.println(c.out.out.muted.Render("No reports yet. Generate one with `jabbctl reports generate`."))
		return
	}
	c.out.header(fmt.Sprintf("Reports (page %d/%d, %d total)", data.Page, max(data.Pages, 1), data.Total))
	tw := tabwriter.NewWriter(c.opts.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPERIOD\tJABBS\tSCORE\tVIEWS\tCREATED")
	for _, r := range data.Reports {
		fmt.Fprintf(tw, "%s\t%s → %s\t%d\t%.1f%%\t%d\t%s\n",
			r.ReportID,
			r.Metadata.StartDate, r.Metadata.EndDate,
			r.Metadata.JabbsCount,
			r.Metadata.ScorePercentage,
			r.Views,
			r.CreatedAt,
		)
	}
	_ = tw.Flush()
}

func (c *CLI) reportsGenerateCommand() *cobra.Command {
	var (
		rng       rangeFlags
		kind      string
		subtype   string
		locations []string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a flash report for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := rng.resolve(c.opts.Now())
			if err != nil {
				return err
			}
			payload := models.GenerateReportPayload{StartDate: start, EndDate: end}
			if kind != "" || subtype != "" || len(locations) > 0 {
				payload.Filters = &models.ReportFilters{Type: kind, Subtype: subtype, LocationIDs: locations}
			}

			resp, err := c.app.Hooks.GenerateReport().Mutate(cmd.Context(), payload)
			if err != nil {
				return notified(err)
			}
			c.out.header("Flash report " + resp.ReportID)
			c.out.field("Period", start+" → "+end)
			c.out.field("JABBs", resp.Metadata.JabbsCount)
			c.out.field("Score", fmt.Sprintf("%.1f%%", resp.Metadata.ScorePercentage))
			c.out.field("Share link", shareURL(c.app.Config.API.AppURL, resp.ShareToken))
			c.out.field("Download", c.app.Hooks.DownloadURL(resp.ReportID, ""))
			return nil
		},
	}
	rng.register(cmd, 30)
	cmd.Flags().StringVar(&kind, "type", "", "Only include this JABB type")
	cmd.Flags().StringVar(&subtype, "subtype", "", "Only include this JABB subtype")
	cmd.Flags().StringSliceVar(&locations, "location", nil, "Only include these location ids (repeatable)")
	return cmd
}

func (c *CLI) reportsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a report",
		Args:  exactArgs(1, "a report id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.app.Hooks.DeleteReport().Mutate(cmd.Context(), args[0])
			return notified(err)
		},
	}
}

// findReport walks the history pages until id is found.
func (c *CLI) findReport(cmd *cobra.Command, id string) (*models.Report, error) {
	params := models.ListReportsParams{Page: 1, Limit: 100}
	for {
		obs := c.app.Hooks.Reports(params)
		data, err := hooks.Await(cmd.Context(), obs)
		obs.Close()
		if err != nil {
			return nil, err
		}
		for i := range data.Reports {
			if data.Reports[i].ReportID == id {
				return &data.Reports[i], nil
			}
		}
		if params.Page >= data.Pages {
			return nil, fmt.Errorf("report %s not found", id)
		}
		params.Page++
	}
}

func (c *CLI) reportsShareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "share <report-id>",
		Short: "Print the public share link of a report",
		Args:  exactArgs(1, "a report id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.findReport(cmd, args[0])
			if err != nil {
				return err
			}
			if r.ShareToken == "" {
				return errors.New("report has no share token")
			}
			c.out.println(shareURL(c.app.Config.API.AppURL, r.ShareToken))
			return nil
		},
	}
}

// reportsSharedCommand is the guest view: it needs only the share token.
func (c *CLI) reportsSharedCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "shared <share-token>",
		Short:       "Open a shared report without signing in",
		Annotations: map[string]string{annotationPublic: "true"},
		Args:        exactArgs(1, "a share token"),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			obs := c.app.Hooks.ReportByToken(token)
			defer obs.Close()
			r, err := hooks.Await(cmd.Context(), obs)
			if err != nil {
				return err
			}
			c.out.header("Shared flash report " + r.ReportID)
			c.out.field("Period", r.Metadata.StartDate+" → "+r.Metadata.EndDate)
			c.out.field("JABBs", r.Metadata.JabbsCount)
			c.out.field("Score", fmt.Sprintf("%.1f%%", r.Metadata.ScorePercentage))
			c.out.field("Positive / Negative", ratePercent(r.Metadata.UpRate)+" / "+ratePercent(r.Metadata.DownRate))
			c.out.field("Expires", r.ExpiresAt)
			c.out.field("Download", c.app.Hooks.DownloadURL(r.ReportID, token))
			return nil
		},
	}
}

func (c *CLI) reportsDownloadCommand() *cobra.Command {
	var (
		output     string
		shareToken string
	)
	cmd := &cobra.Command{
		Use:         "download <report-id>",
		Short:       "Save a report PDF",
		Annotations: map[string]string{annotationPublic: "true"},
		Args:        exactArgs(1, "a report id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if shareToken == "" && !c.app.Hooks.Auth().IsAuthenticated(cmd.Context()) {
				return errors.New("not logged in: run `jabbctl login` or pass --token")
			}
			if output == "" {
				output = fmt.Sprintf("flash-report-%s.pdf", id)
			}
			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := c.app.API.Reports.Download(cmd.Context(), id, shareToken, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(output)
				return err
			}
			c.out.printf("Saved %s (%d bytes)\n", output, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default flash-report-<id>.pdf)")
	cmd.Flags().StringVar(&shareToken, "token", "", "Share token, for downloads without a session")
	return cmd
}
