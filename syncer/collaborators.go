package syncer

import (
	"context"
	"io"
)

// Mailer hands already-written files to the mail client with a subject line.
type Mailer interface {
	Send(ctx context.Context, files []string, subject string) error
}

// Picker supplies an ad hoc snapshot and the name it was chosen under.
type Picker interface {
	Pick(ctx context.Context) (io.ReadCloser, string, error)
}
