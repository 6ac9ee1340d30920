package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tickstory"
	"github.com/aretw0/tickstory/internal/cli"
	"github.com/aretw0/tickstory/internal/presentation/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <story>",
	Short: "Play a story in the console",
	Long: `Starts an interactive conversation with a story. Each line is a user action:
an intent followed by role=value entities, e.g. "city_given location=Paris".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		opts := cli.ConsoleOptions{Story: args[0], SessionID: sessionID}

		fd := int(os.Stdout.Fd())
		if term.IsTerminal(fd) {
			tui.PrintBanner(os.Stdout, tickstory.Version)
			width := 80
			if w, _, err := term.GetSize(fd); err == nil && w > 0 {
				width = w
			}
			style, _ := cmd.Flags().GetString("style")
			render, err := tui.NewRenderer(style, width)
			if err != nil {
				return fmt.Errorf("failed to create renderer: %w", err)
			}
			opts.Render = render
			opts.Prompt = "> "
		}
		app.Logger.Debug("console session", "story", args[0], "session_id", sessionID)

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if err := cli.RunConsole(ctx, app.Engine, os.Stdin, os.Stdout, opts); err != nil && ctx.Signal() == nil {
			return err
		}
		if sig := ctx.Signal(); sig != nil {
			app.Logger.Debug("console interrupted", "signal", sig)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("session", "", "Resume this session instead of starting a new one")
	runCmd.Flags().String("style", "", "Glamour style for answers (empty picks one from the terminal)")
}
