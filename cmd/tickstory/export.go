package main

import (
	"github.com/aretw0/tickstory/pkg/story"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <story>",
	Short: "Print a story of the catalog as YAML or JSON",
	Long: `Prints the story as the engine sees it, whatever the source document format.
Useful to convert Markdown frontmatter stories or to check defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		s, err := app.Catalog.GetStory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return story.Encode(cmd.OutOrStdout(), s, story.Format(format))
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", string(story.FormatYAML), "Output format: yaml or json")
}
