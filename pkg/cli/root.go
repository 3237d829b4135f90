// Package cli implements the entityd command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/entityd/pkg/client"
	"github.com/getmockd/entityd/pkg/config"
)

var (
	// Persistent flags available to all subcommands
	serverURL    string
	basePath     string
	resourceName string
	jsonOutput   bool
	logLevel     string
	logFormat    string

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "entityd",
	Short: "entityd serves an in-memory entity collection over REST",
	Long: `entityd exposes CRUD operations over a single in-memory entity collection.

Run 'entityd serve' to start the server, then use the other commands to read
and modify entities through its REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Main()
}

// Execute runs the root command and exits with a non-zero status on failure.
func Execute() {
	os.Exit(Main())
}

// Main runs the root command with os.Args and returns the process exit code.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Hint != "" {
			fmt.Fprintln(w, "Hint:", apiErr.Hint)
		}
		if apiErr.ErrorCode == "connection_error" {
			fmt.Fprintln(w, "Hint: start the server with 'entityd serve' or set --url / "+config.EnvURL)
		}
	}
}

func defaultURL() string {
	if v := os.Getenv(config.EnvURL); v != "" {
		return v
	}
	return client.DefaultURL
}

// newClient builds an API client from the persistent flags.
func newClient() *client.Client {
	return client.New(serverURL,
		client.WithBasePath(basePath),
		client.WithResource(resourceName),
	)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultURL(), "entityd server URL (env "+config.EnvURL+")")
	rootCmd.PersistentFlags().StringVar(&basePath, "base-path", config.DefaultBasePath, "Application base path on the server")
	rootCmd.PersistentFlags().StringVar(&resourceName, "resource", config.DefaultResourceName, "Resource name on the server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
}
