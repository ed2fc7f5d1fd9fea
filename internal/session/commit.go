package session

import "context"

// Committer hands the reply to an output sink once it is generated.
type Committer interface {
	Commit(context.Context, string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string) error

func (f CommitFunc) Commit(ctx context.Context, reply string) error {
	return f(ctx, reply)
}
