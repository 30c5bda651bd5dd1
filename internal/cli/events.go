package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jabbusiness-client-go/internal/app/hooks"
	"jabbusiness-client-go/internal/domain/models"
)

func (c *CLI) eventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"jabbs"},
		Short:   "Browse Quick JABBs",
	}
	cmd.AddCommand(c.eventsListCommand(), c.eventsGetCommand())
	return cmd
}

func (c *CLI) eventsListCommand() *cobra.Command {
	var (
		params models.QuickJabbsParams
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Quick JABBs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			obs := c.app.Hooks.Events(params)
			defer obs.Close()
			data, err := hooks.Await(cmd.Context(), obs)
			if err != nil {
				return err
			}
			if asJSON {
				return c.out.json(data)
			}
			if len(data.Jabbs) == 0 {
				c.out.println(c.out.out.muted.Render("No Quick JABBs match."))
				return nil
			}
			c.out.header(fmt.Sprintf("Quick JABBs (page %d/%d, %d total)", data.Page, max(data.Pages, 1), data.Total))
			tw := tabwriter.NewWriter(c.opts.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tSUBTYPE\tSCORE\tJABBER\tCREATED")
			for _, j := range data.Jabbs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%s\t%s\n", j.ID, j.Type, j.Subtype, j.ScorePercentage, j.JabberName, j.CreatedAt)
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.IntVar(&params.Page, "page", 0, "Page number")
	f.IntVar(&params.Limit, "limit", 0, "Items per page")
	f.StringVar(&params.Type, "type", "", "Filter by type")
	f.StringVar(&params.Subtype, "subtype", "", "Filter by subtype")
	f.StringVar(&params.LocationID, "location", "", "Filter by location id")
	f.StringVar(&params.StartDate, "start", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&params.EndDate, "end", "", "End date (YYYY-MM-DD)")
	f.BoolVar(&asJSON, "json", false, "Print the raw response as JSON")
	return cmd
}

func (c *CLI) eventsGetCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one Quick JABB",
		Args:  exactArgs(1, "a Quick JABB id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			obs := c.app.Hooks.Event(args[0])
			defer obs.Close()
			j, err := hooks.Await(cmd.Context(), obs)
			if err != nil {
				return err
			}
			if asJSON {
				return c.out.json(j)
			}
			c.out.header("Quick JABB " + j.ID)
			c.out.field("Type", j.Type+" / "+j.Subtype)
			c.out.field("Score", fmt.Sprintf("%.0f%%", j.ScorePercentage))
			c.out.field("Jabber", j.JabberName)
			if j.TargetName != "" {
				c.out.field("Target", j.TargetName)
			}
			if j.Location != nil && j.Location.Address != "" {
				c.out.field("Location", j.Location.Address)
			}
			c.out.field("Status", j.Status)
			c.out.field("Created", j.CreatedAt)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw response as JSON")
	return cmd
}
