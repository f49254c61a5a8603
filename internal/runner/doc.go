// Package runner drives the hailstone session loop.
//
// A session repeatedly samples a start value, iterates it to termination and
// reports the result, pausing for a fixed delay between runs:
//
//	r := runner.New(runner.Options{
//		Sampler:  sampler,
//		Iterator: collatz.New(collatz.Options{Threshold: lower, Shortcut: true}),
//		Delay:    2 * time.Second,
//		Reporter: printer,
//		Recorder: collector,
//	})
//	summary, err := r.Run(ctx)
//
// Runs never overlap. The next run is sampled only after the previous run has
// been reported and the delay has elapsed.
//
// # Termination
//
// The loop stops when [Options.Runs] runs have completed, when the context is
// cancelled (a graceful stop, reported through [Summary.Interrupted]) or when
// an iteration fails. A failed iteration, such as a sequence that exceeds the
// step ceiling, is returned to the caller and ends the session.
//
// # Middleware
//
// Iterators compose like the engine they wrap:
//   - [WithLogging]: log run boundaries and failures through slog
//
// Each run carries a ULID that is available to middleware through
// [RunIDFromContext].
package runner
