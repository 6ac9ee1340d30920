package ports

import "context"

// Sender dispatches messages to the connector layer.
// The End variants close the turn; the others keep it open for further sends.
type Sender interface {
	SendByID(ctx context.Context, answerID string) error
	EndByID(ctx context.Context, answerID string) error
	SendPlainText(ctx context.Context, text string) error
	EndPlainText(ctx context.Context, text string) error
	// End closes the turn without a message.
	End(ctx context.Context) error
}
