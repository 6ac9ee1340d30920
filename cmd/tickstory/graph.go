package main

import (
	"fmt"

	"github.com/aretw0/tickstory/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <story>",
	Short: "Export the state machine visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the state machine of a story.
With --session, the states visited by that conversation are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		story, err := app.Catalog.GetStory(ctx, args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if id, _ := cmd.Flags().GetString("session"); id != "" {
			sess, err := app.Store.Load(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load session '%s': %w", id, err)
			}
			overlay = graph.OverlayFromSession(sess)
		}

		output, err := graph.GenerateMermaid(story, overlay)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of this session")
}
