package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/entityd/pkg/cli/internal/output"
	"github.com/getmockd/entityd/pkg/client"
	"github.com/getmockd/entityd/pkg/entity"
)

var watchCount int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream entity change events",
	Long: `Follow the server's change feed and print one line per put, delete or
reset. The feed is only served in singleton scope. Ctrl+C to exit.

Examples:
  entityd watch
  entityd watch --json --count 1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		c := newClient()
		if !jsonOutput {
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", c.EventsURL())
		}

		seen := 0
		return c.Watch(ctx, func(ev entity.Event) error {
			if jsonOutput {
				if err := output.JSON(w, ev); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(w, formatEvent(ev))
			}
			seen++
			if watchCount > 0 && seen >= watchCount {
				return client.ErrStopWatch
			}
			return nil
		})
	},
}

func formatEvent(ev entity.Event) string {
	ts := ev.Time.Format(time.TimeOnly)
	switch ev.Type {
	case entity.EventPut:
		body := "-"
		if ev.Entity != nil {
			body = output.Cell(ev.Entity.ToMap())
		}
		return fmt.Sprintf("%s put    %d %s", ts, ev.ID, body)
	case entity.EventDelete:
		return fmt.Sprintf("%s delete %d", ts, ev.ID)
	case entity.EventReset:
		return fmt.Sprintf("%s reset  (%d entities)", ts, ev.Count)
	default:
		return fmt.Sprintf("%s %s %d", ts, ev.Type, ev.ID)
	}
}

func init() {
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "Exit after this many events (0 = unlimited)")
	rootCmd.AddCommand(watchCmd)
}
