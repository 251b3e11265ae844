// Package scheduler fires named cues at wall-clock times.
//
// Armed cues sit in an eventq.Queue keyed by their Unix time. One goroutine
// sleeps until the earliest is due, or at most a minute, and is woken early
// whenever a cue is added or removed. Cues with a cron expression are armed
// again with their next occurrence after firing.
//
// `cueline serve --cue` uses it to restart the transport on a schedule.
package scheduler
