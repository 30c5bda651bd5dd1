package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the local session storage",
	}
	cmd.AddCommand(c.sessionStatusCommand(), c.sessionResetCommand())
	return cmd
}

func (c *CLI) sessionStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Show the session store and its schema",
		Annotations: map[string]string{annotationPublic: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			stats, err := c.app.Session.Stats(ctx)
			if err != nil {
				return err
			}
			c.out.header("Session store")
			c.out.field("Driver", c.app.Config.Session.Driver)
			c.out.field("Signed in", c.app.Hooks.Auth().IsAuthenticated(ctx))
			keys := make([]string, 0, len(stats))
			for k := range stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				c.out.field(k, stats[k])
			}

			schema, err := c.app.SessionSchema()
			if err != nil {
				return err
			}
			if len(schema) == 0 {
				return nil
			}
			c.out.println()
			c.out.header("Migrations")
			tw := tabwriter.NewWriter(c.opts.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tDESCRIPTION\tAPPLIED")
			for _, m := range schema {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func (c *CLI) sessionResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "reset",
		Short:       "Drop every stored session value",
		Annotations: map[string]string{annotationPublic: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.ResetSession(cmd.Context()); err != nil {
				return err
			}
			c.out.println("Session storage reset")
			return nil
		},
	}
}
