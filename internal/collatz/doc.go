// Package collatz iterates the Collatz map over arbitrary-precision integers.
//
// A [Runner] starts from a value and applies n → n/2 (n even) or
// n → 3n+1 (n odd) until one of its stop conditions holds:
//
//   - the value drops to or below the known-convergent threshold
//     ([ReachedKnownConvergent], only when the shortcut is enabled)
//   - the value reaches 1 ([ReachedOne])
//
// Every transition counts as one step. A run that has not stopped after
// the step ceiling (by default [MaxSafeSteps]) fails with a
// [*DivergingError]. That failure is fatal for the caller and must not be
// retried.
//
// # Basic Usage
//
//	r := collatz.New(collatz.Options{
//		Threshold: threshold,
//		Shortcut:  true,
//	})
//	res, err := r.Run(ctx, start)
//	if errors.Is(err, collatz.ErrDiverging) {
//		// abort the process
//	}
//
// # Tracing
//
// With [Options.Trace] set, [Result.Trace] holds every visited value,
// start included. Leave it off for large start values. A run from a
// 90000-bit integer visits hundreds of thousands of values.
package collatz
