package sender

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// RenderFunc formats a text before it is written, e.g. markdown to ANSI.
type RenderFunc func(string) (string, error)

// Text is a Sender that writes answers to a writer. Answer ids are resolved
// through a dictionary; unknown ids are written as is.
type Text struct {
	mu      sync.Mutex
	w       io.Writer
	answers map[string]string
	render  RenderFunc
}

// TextOption configures a Text sender.
type TextOption func(*Text)

// WithRenderer formats every message with render.
func WithRenderer(render RenderFunc) TextOption {
	return func(t *Text) {
		t.render = render
	}
}

// NewText creates a Text sender writing to w.
func NewText(w io.Writer, answers map[string]string, opts ...TextOption) *Text {
	t := &Text{w: w, answers: answers}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Text) resolve(answerID string) string {
	if text, ok := t.answers[answerID]; ok {
		return text
	}
	return answerID
}

func (t *Text) write(text string, end bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.render != nil {
		rendered, err := t.render(text)
		if err != nil {
			return fmt.Errorf("failed to render message: %w", err)
		}
		text = rendered
	} else {
		text += "\n"
	}
	if _, err := io.WriteString(t.w, text); err != nil {
		return err
	}
	if end {
		_, err := io.WriteString(t.w, "\n")
		return err
	}
	return nil
}

func (t *Text) SendByID(_ context.Context, answerID string) error {
	return t.write(t.resolve(answerID), false)
}

func (t *Text) EndByID(_ context.Context, answerID string) error {
	return t.write(t.resolve(answerID), true)
}

func (t *Text) SendPlainText(_ context.Context, text string) error {
	return t.write(text, false)
}

func (t *Text) EndPlainText(_ context.Context, text string) error {
	return t.write(text, true)
}

func (t *Text) End(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, "\n")
	return err
}
