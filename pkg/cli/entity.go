package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/entityd/pkg/cli/internal/output"
	"github.com/getmockd/entityd/pkg/client"
	"github.com/getmockd/entityd/pkg/config"
	"github.com/getmockd/entityd/pkg/entity"
)

var (
	listPage     int
	listPageSize int
	listSort     string
	listFilter   string
	listMatch    []string

	payloadData string
	payloadFile string
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		e, err := newClient().Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printEntities(cmd.OutOrStdout(), e, []entity.Entity{*e})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities",
	Long: `List entities, optionally filtered, sorted and paged.

Examples:
  entityd list
  entityd list --sort name:desc --page 2 --page-size 10
  entityd list --filter 'age > 30 && active'
  entityd list --match kind=book`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		match, err := parseMatches(listMatch)
		if err != nil {
			return err
		}
		page, err := newClient().List(cmd.Context(), client.ListOptions{
			Page:     listPage,
			PageSize: listPageSize,
			Sort:     listSort,
			Filter:   listFilter,
			Match:    match,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return printResult(w, page, nil)
		}
		if len(page.Items) == 0 {
			fmt.Fprintln(w, "No entities.")
			return nil
		}
		if err := printEntities(w, page, page.Items); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", page.Page, page.LastPage, page.TotalCount)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or overwrite entities",
	Long: `Store entities through the collection route. --file accepts a JSON or
YAML file holding one entity or a list of entities.

Examples:
  entityd create --data '{"id": 1, "name": "a"}'
  entityd create --file entities.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		entities, err := readEntities()
		if err != nil {
			return err
		}

		c := newClient()
		stored := make([]entity.Entity, 0, len(entities))
		for _, e := range entities {
			out, err := c.Create(cmd.Context(), e)
			if err != nil {
				return fmt.Errorf("create %d: %w", e.ID, err)
			}
			stored = append(stored, *out)
		}

		if len(stored) == 1 {
			return printEntities(cmd.OutOrStdout(), stored[0], stored)
		}
		return printEntities(cmd.OutOrStdout(), stored, stored)
	},
}

var putCmd = &cobra.Command{
	Use:   "put <id>",
	Short: "Overwrite one entity",
	Long: `Store an entity under <id>. A payload without an id is stored under <id>;
a payload id takes precedence over <id>.

Examples:
  entityd put 1 --data '{"name": "b"}'
  entityd put 1 --file entity.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		body, err := readPayload()
		if err != nil {
			return err
		}
		e, err := newClient().PutRaw(cmd.Context(), id, body)
		if err != nil {
			return err
		}
		if e.ID != id {
			output.Warn(cmd.ErrOrStderr(), "payload id %d overrides %d; entity stored as %d", e.ID, id, e.ID)
		}
		return printEntities(cmd.OutOrStdout(), e, []entity.Entity{*e})
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete one entity",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		if err := newClient().Delete(cmd.Context(), id); err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]any{"deleted": id}, func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d\n", id)
			return nil
		})
	},
}

func parseIDArg(arg string) (int64, error) {
	id, err := entity.ParseID(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

func parseMatches(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	match := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --match %q: expected field=value", p)
		}
		match[k] = v
	}
	return match, nil
}

// readPayload returns the JSON object given by --data or --file. YAML files
// are converted to JSON.
func readPayload() ([]byte, error) {
	switch {
	case payloadData != "" && payloadFile != "":
		return nil, errors.New("use either --data or --file, not both")
	case payloadData != "":
		if _, err := entity.DecodeMap([]byte(payloadData)); err != nil {
			return nil, fmt.Errorf("--data: %w", err)
		}
		return []byte(payloadData), nil
	case payloadFile != "":
		data, err := os.ReadFile(payloadFile)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", payloadFile, err)
		}
		if config.FormatForPath(payloadFile) != config.FormatYAML {
			return data, nil
		}
		var m map[string]any
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", payloadFile, config.ErrInvalidYAML, err)
		}
		return json.Marshal(m)
	default:
		return nil, errors.New("a payload is required: pass --data or --file")
	}
}

// readEntities returns the entities given by --data or --file.
func readEntities() ([]entity.Entity, error) {
	switch {
	case payloadData != "" && payloadFile != "":
		return nil, errors.New("use either --data or --file, not both")
	case payloadData != "":
		m, err := entity.DecodeMap([]byte(payloadData))
		if err != nil {
			return nil, fmt.Errorf("--data: %w", err)
		}
		e, err := entity.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("--data: %w", err)
		}
		return []entity.Entity{e}, nil
	case payloadFile != "":
		return config.LoadSeedFile(payloadFile)
	default:
		return nil, errors.New("a payload is required: pass --data or --file")
	}
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 0, "Page number (1-based)")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Entities per page")
	listCmd.Flags().StringVar(&listSort, "sort", "", "Sort fields, e.g. name:desc,$.meta.rank")
	listCmd.Flags().StringVar(&listFilter, "filter", "", "Filter expression, e.g. 'age > 30'")
	listCmd.Flags().StringArrayVar(&listMatch, "match", nil, "Exact field match field=value (repeatable)")

	for _, c := range []*cobra.Command{createCmd, putCmd} {
		c.Flags().StringVarP(&payloadData, "data", "d", "", "Entity as a JSON object")
		c.Flags().StringVarP(&payloadFile, "file", "f", "", "JSON or YAML file holding the entity")
	}

	rootCmd.AddCommand(getCmd, listCmd, createCmd, putCmd, deleteCmd)
}
