package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"recipebox/internal/ingredient"
	"recipebox/internal/recipe"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type options struct {
	output string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "recipectl",
		Short:        "Work with recipe ingredient lists",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != formatJSON && opts.output != formatYAML {
				return fmt.Errorf("unsupported output format %q (want json or yaml)", opts.output)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", formatJSON, "output format: json or yaml")

	root.AddCommand(newParseCmd(opts), newMigrateCmd(opts), newDisplayCmd(opts))
	return root
}

func newParseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [line...]",
		Short: "Parse ingredient lines into structured records",
		Long:  "Parses each argument as one ingredient line. Without arguments, lines are read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := args
			if len(lines) == 0 {
				var err error
				if lines, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			details := make([]ingredient.Detail, 0, len(lines))
			for _, line := range lines {
				details = append(details, ingredient.Parse(line))
			}
			return write(cmd.OutOrStdout(), opts.output, details)
		},
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <file|->",
		Short: "Upgrade a stored ingredient list to structured records",
		Long:  "Reads a JSON array of stored ingredients, which may mix plain text and records, and prints the migrated records.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			var entries []ingredient.Entry
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("failed to decode ingredient list: %w", err)
			}
			return write(cmd.OutOrStdout(), opts.output, ingredient.MigrateEntries(entries))
		},
	}
}

func newDisplayCmd(opts *options) *cobra.Command {
	var upgrade bool

	cmd := &cobra.Command{
		Use:   "display <file|->",
		Short: "Show the display rows of a stored recipe",
		Long:  "Reads a recipe JSON document with ingredients and ingredientDetails and prints the rows a client would show.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			var r recipe.Recipe
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("failed to decode recipe: %w", err)
			}
			if upgrade {
				r.UpgradeIngredients()
			}
			return write(cmd.OutOrStdout(), opts.output, r.DisplayRows())
		},
	}
	cmd.Flags().BoolVar(&upgrade, "upgrade", false, "migrate the ingredients before rendering")
	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return lines, nil
}

func write(out io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}
