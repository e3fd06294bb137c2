// Package engine owns the complete simulation state and advances it on a
// fixed time step.
//
// One tick runs, in order: queued commands, pneumatic valve scheduling,
// floater forces, chain torque aggregation, clutch/drivetrain integration,
// generator torque and power, clock advance, snapshot publication. The loop
// is single-threaded; the only cross-thread contract is the immutable
// [Snapshot] published after each tick and the command queue, which is
// drained exactly at tick boundaries so external callers can never observe
// or create a half-applied mutation.
//
// A tick whose resulting state contains NaN or Inf is rolled back in full:
// the previous state is restored, the tick is counted in
// [Diagnostics.SkippedTicks] and logged, and the loop continues. Keeping
// the loop alive across a bad tick is preferred over strict correctness of
// that single tick.
package engine
