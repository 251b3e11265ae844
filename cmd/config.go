package cmd

import "time"

const (
	// DEF_UNTIL is the run length when neither --until nor the script's end
	// global is set.
	DEF_UNTIL = 10.0
	DEF_TICK  = 10 * time.Millisecond
)

const DESCRIPTION = `
Cueline schedules playback of named sources on an audio clock.
Sources start, stop and restart at precise times, either on
the context clock or synced to a transport that can be paused,
seeked and looped.
`

const (
	RunDescription = `The run command executes a cue script against an offline
audio context, advances it and prints every hook call along
with the state timeline of each source.

Example:
        cueline run cues.js
        cueline run --until 30 --journal cues.db cues.js
        cueline run --realtime cues.js

`
	ServeDescription = `The serve command exposes a live session over JSON-RPC 2.0
on /jsonrpc (HTTP) and /jsonrpc/ws (websocket). The context
advances with the wall clock; websocket clients receive a
unit.hook notification for every hook call. Every request
must carry "Authorization: Bearer <secret>".

Example:
        cueline serve --secret s3cret
        cueline serve --secret s3cret --cue "*/5 * * * *" --script intro.js

`
	HistoryDescription = `The history command prints the hook calls recorded in a
journal database by "cueline run --journal" or
"cueline serve --journal".

Example:
        cueline history cues.db
        cueline history --runs cues.db
        cueline history --run 20260101T120000.000Z cues.db

`
)
