package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the server's seed data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := newClient().Reset(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]int{"count": n}, func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "Reset to seed data (%d entities)\n", n)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entity without restoring seed data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := newClient().Clear(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]int{"count": n}, func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entities\n", n)
			return nil
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check if the entityd server is healthy and reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		type healthResult struct {
			Status string `json:"status"`
			URL    string `json:"url"`
			Error  string `json:"error,omitempty"`
		}

		c := newClient()
		result := healthResult{Status: "healthy", URL: c.BaseURL()}
		err := c.Health(cmd.Context())
		if err != nil {
			result.Status = "unhealthy"
			result.Error = err.Error()
		}

		perr := printResult(cmd.OutOrStdout(), result, func() error {
			fmt.Fprintln(cmd.OutOrStdout(), result.Status)
			return nil
		})
		if err != nil {
			return errors.Join(errors.New("server is not healthy"), err)
		}
		return perr
	},
}

func init() {
	rootCmd.AddCommand(resetCmd, clearCmd, healthCmd)
}
