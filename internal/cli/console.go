package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tickstory"
	"github.com/aretw0/tickstory/internal/input"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/sender"
)

// ConsoleOptions configures an interactive conversation.
type ConsoleOptions struct {
	Story     string
	SessionID string
	// Render formats the answers, e.g. markdown to ANSI. Nil writes them as is.
	Render sender.RenderFunc
	// Prompt is written before each read. Empty disables it.
	Prompt string
}

// RunConsole plays a story with one user action per line of in, writing the
// answers to out. It stops on EOF, "exit", "quit", a finished story or ctx.
// A redirect switches to the target story when the catalog has it.
func RunConsole(ctx context.Context, engine *tickstory.Engine, in io.Reader, out io.Writer, opts ConsoleOptions) error {
	story, err := engine.Catalog().GetStory(ctx, opts.Story)
	if err != nil {
		return err
	}
	newSender := func(s *domain.Story) *sender.Text {
		var textOpts []sender.TextOption
		if opts.Render != nil {
			textOpts = append(textOpts, sender.WithRenderer(opts.Render))
		}
		return sender.NewText(out, s.Answers, textOpts...)
	}
	text := newSender(story)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if opts.Prompt != "" {
			fmt.Fprint(out, opts.Prompt)
		}

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		clean, err := input.Sanitize(line, 0)
		if err != nil {
			printSystemMessage(out, "%v", err)
			continue
		}
		action, err := input.Parse(clean)
		if err != nil {
			printSystemMessage(out, "%v", err)
			continue
		}

		result, err := engine.Process(ctx, opts.Story, opts.SessionID, text, action)
		if err != nil {
			// The fallback message already reached the user.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		switch res := result.(type) {
		case domain.Success:
			if res.Session.Finished {
				printSystemMessage(out, "Story '%s' finished.", opts.Story)
				return nil
			}
		case domain.Redirect:
			target, err := engine.Catalog().GetStory(ctx, res.StoryID)
			if err != nil {
				printSystemMessage(out, "Redirected to '%s', which is not available.", res.StoryID)
				return nil
			}
			printSystemMessage(out, "Redirected to '%s'.", res.StoryID)
			opts.Story = res.StoryID
			text = newSender(target)
		}
	}
}

// printSystemMessage writes a message that does not come from the story.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
