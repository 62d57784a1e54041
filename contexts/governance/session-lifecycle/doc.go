// Package sessionlifecycle owns the deliberative session state machine:
// scheduled to live to completed, with cancellation and postponement as
// side exits and reschedule as the single backward transition. Starting a
// session is gated by the participant registry's quorum check, which runs
// inside the same per-session critical section as the status write.
package sessionlifecycle
