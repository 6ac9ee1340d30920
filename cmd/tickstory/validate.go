package main

import (
	"fmt"
	"sort"

	"github.com/aretw0/tickstory/internal/validator"
	"github.com/aretw0/tickstory/pkg/story"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [story]",
	Short: "Check stories for configuration errors",
	Long: `Validates one story, or every story of the catalog, and reports each configuration error.
With --file, story files are decoded strictly (unknown fields are errors) and
validated against the catalog without being added to it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		invalid := make(map[string][]string)
		files, _ := cmd.Flags().GetStringSlice("file")
		if len(files) > 0 {
			for _, path := range files {
				s, err := story.LoadFile(path)
				if err != nil {
					invalid[path] = []string{err.Error()}
					continue
				}
				if errs := validator.Validate(ctx, s, app.Engine.Handlers(), app.Catalog); len(errs) > 0 {
					invalid[path] = errs
				}
			}
		} else if len(args) == 1 {
			errs, err := app.Engine.Validate(ctx, args[0])
			if err != nil {
				return err
			}
			if len(errs) > 0 {
				invalid[args[0]] = errs
			}
		} else {
			invalid, err = app.Engine.ValidateAll(ctx)
			if err != nil {
				return err
			}
		}

		if len(invalid) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Stories are valid! ✅")
			return nil
		}

		keys := make([]string, 0, len(invalid))
		for k := range invalid {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "❌ %s\n", k)
			for _, e := range invalid[k] {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e)
			}
		}
		return fmt.Errorf("%d invalid stories", len(invalid))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringSlice("file", nil, "Validate these story files instead of the catalog")
}
