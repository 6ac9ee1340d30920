package domain

// Result is the outcome of processing a user action. It is either a Success or a Redirect.
type Result interface {
	isResult()
}

// Success means the turn completed; Session must be persisted.
type Success struct {
	Session *Session
}

// Redirect hands the conversation over to another story; the current session is discarded.
type Redirect struct {
	StoryID string
}

func (Success) isResult()  {}
func (Redirect) isResult() {}
