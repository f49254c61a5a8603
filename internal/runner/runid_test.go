package runner_test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/hailstone/internal/runner"
)

func mustID(t *testing.T) ulid.ULID {
	t.Helper()
	return ulid.Make()
}

func TestRunIDRoundTrip(t *testing.T) {
	id := mustID(t)
	got, ok := runner.RunIDFromContext(runner.WithRunID(context.Background(), id))
	if !ok || got != id {
		t.Fatalf("RunIDFromContext() = %s, %v; want %s", got, ok, id)
	}
}
