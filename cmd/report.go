package cmd

import (
	"fmt"
	"io"

	"github.com/warpdl/cueline/cmd/common"
	"github.com/warpdl/cueline/internal/session"
	"github.com/warpdl/cueline/pkg/timeline"
)

// printReport writes the hook trace of s followed by the timeline of every
// source.
func printReport(w io.Writer, s *session.Session) {
	trace := s.Trace()
	if len(trace) == 0 {
		fmt.Fprintln(w, "cueline: no hooks were called")
	} else {
		fmt.Fprintln(w, "Hook calls:")
		for _, h := range trace {
			fmt.Fprintf(w, "  %s (context %.3f, position %.3f)\n", h, h.Context, h.Position)
		}
	}
	for _, name := range s.Names() {
		src, err := s.Lookup(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "\n%s (%s):\n", name, src.State())
		fmt.Fprint(w, timelineTable(src.Timeline()))
	}
}

// timelineTable renders events as a fixed-width table. End marks events
// whose stop was implied by a duration.
func timelineTable(evs []timeline.Event) string {
	if len(evs) == 0 {
		return "  (empty timeline)\n"
	}
	t := common.NewTable(
		common.Column{Title: "Time", Width: 10},
		common.Column{Title: "State", Width: 9},
		common.Column{Title: "Offset", Width: 10},
		common.Column{Title: "Duration", Width: 10},
		common.Column{Title: "End", Width: 3},
	)
	for _, ev := range evs {
		end := ""
		if ev.ImplicitEnd {
			end = "*"
		}
		t.Append(
			fmt.Sprintf("%.3f", ev.Time),
			ev.State.String(),
			fmt.Sprintf("%.3f", ev.Offset),
			fmt.Sprintf("%.3f", ev.Duration),
			end,
		)
	}
	return t.String()
}
