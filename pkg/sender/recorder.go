// Package sender provides ports.Sender implementations for hosts without a connector.
package sender

import (
	"context"
	"sync"
)

// Kind is the sender operation that produced a message.
type Kind string

const (
	KindSendByID      Kind = "send_by_id"
	KindEndByID       Kind = "end_by_id"
	KindSendPlainText Kind = "send_plain_text"
	KindEndPlainText  Kind = "end_plain_text"
	KindEnd           Kind = "end"
)

// Message is one recorded sender call.
type Message struct {
	Kind Kind `json:"kind"`
	// Value is the answer id or the text, empty for KindEnd.
	Value string `json:"value,omitempty"`
}

// Ends reports whether the message closes the turn.
func (m Message) Ends() bool {
	return m.Kind == KindEndByID || m.Kind == KindEndPlainText || m.Kind == KindEnd
}

// Recorder is a Sender that keeps every call in order. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(kind Kind, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Kind: kind, Value: value})
	return nil
}

func (r *Recorder) SendByID(_ context.Context, answerID string) error {
	return r.record(KindSendByID, answerID)
}

func (r *Recorder) EndByID(_ context.Context, answerID string) error {
	return r.record(KindEndByID, answerID)
}

func (r *Recorder) SendPlainText(_ context.Context, text string) error {
	return r.record(KindSendPlainText, text)
}

func (r *Recorder) EndPlainText(_ context.Context, text string) error {
	return r.record(KindEndPlainText, text)
}

func (r *Recorder) End(_ context.Context) error {
	return r.record(KindEnd, "")
}

// Messages returns a copy of the recorded calls.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Values returns the values recorded for kind, in order.
func (r *Recorder) Values(kind Kind) []string {
	var out []string
	for _, m := range r.Messages() {
		if m.Kind == kind {
			out = append(out, m.Value)
		}
	}
	return out
}

// Reset forgets every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
