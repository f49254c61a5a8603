package runner

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

type runIDKey struct{}

// WithRunID returns a copy of ctx carrying the run ID.
func WithRunID(ctx context.Context, id ulid.ULID) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the ID of the run executing under ctx.
func RunIDFromContext(ctx context.Context) (ulid.ULID, bool) {
	id, ok := ctx.Value(runIDKey{}).(ulid.ULID)
	return id, ok
}

// idSource hands out lexically increasing run IDs.
type idSource struct {
	entropy io.Reader
}

func newIDSource(entropy io.Reader) *idSource {
	if entropy == nil {
		entropy = rand.Reader
	}
	return &idSource{entropy: ulid.Monotonic(entropy, 0)}
}

func (s *idSource) next(t time.Time) (ulid.ULID, error) {
	return ulid.New(ulid.Timestamp(t), s.entropy)
}
