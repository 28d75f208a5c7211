package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentrelay/agentrelay/core"
)

// Resume continues a suspended session after a UI interaction. It returns
// (nil, nil) when there is nothing to resume: no session state exists for
// the id, or no triggering event was supplied and the last recorded
// interaction is older than the recency window. The window is a relevance
// filter, not a session boundary; stale sessions stay intact and accept new
// chat turns normally.
//
// Continuation always re-enters at the entry-coordinator, never at the
// agent that suspended. The coordinator is the only agent trusted with a
// consistent view of overall progress; resuming elsewhere risks repeating
// UI prompts or losing collected answers.
func (r *Runner) Resume(ctx context.Context, sessionID string, event *core.UIEvent) (*core.ExecutionResult, error) {
	st, ok := r.sessions.Get(sessionID)
	if !ok {
		r.logger.Debug("resume skipped, no session state session_id=%s", sessionID)
		r.metrics.ResumesTotal.WithLabelValues("no_session").Inc()
		return nil, nil
	}

	if event == nil {
		last := st.LastInteraction()
		if last.IsZero() || r.now().Sub(last) > r.recencyWindow {
			r.logger.Debug("resume skipped, no recent interaction session_id=%s", sessionID)
			r.metrics.ResumesTotal.WithLabelValues("stale").Inc()
			return nil, nil
		}
		events := st.UIEvents()
		event = &events[len(events)-1]
	}

	sys, err := r.System(st.SystemID)
	if err != nil {
		r.logger.Warn("resume failed, owning system unloaded session_id=%s system_id=%s", sessionID, st.SystemID)
		r.metrics.ResumesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	coordinator, err := sys.Coordinator()
	if err != nil {
		r.metrics.ResumesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// The synthesized context message is session-local: tagged unpersisted
	// and never forwarded to the external store.
	recent := st.RecentEvents(r.now().Add(-r.recencyWindow))
	msg := core.NewSystemMessage(resumeContext(event, recent))
	msg.Metadata = map[string]string{"synthetic": "ui-interaction"}
	st.Append(msg)

	r.logger.Info("resuming session system_id=%s session_id=%s tool_id=%s event=%s",
		sys.ID, sessionID, event.ToolID, event.Type)

	// One coordinator invocation, not the full routing loop.
	r.metrics.ModelInvocations.Inc()
	res := r.invoker.Invoke(ctx, coordinator, sys, st.Messages(), r.toolsFor(st, coordinator))
	st.Append(res.Messages...)
	res.StoreOpResults = r.forwardStoreOps(ctx, st, &res)

	outcome := "completed"
	if res.AwaitingUI {
		outcome = "suspended"
	}
	r.metrics.ResumesTotal.WithLabelValues(outcome).Inc()

	return &res, nil
}

// resumeContext renders the triggering interaction, plus every interaction
// recorded within the recency window, as a system-role context message for
// the coordinator's prompt.
func resumeContext(event *core.UIEvent, recent []core.UIEvent) string {
	var b strings.Builder
	event.Decode()
	payload := core.EncodePayload(event.Data)
	if len(payload) == 0 {
		fmt.Fprintf(&b, "The user interacted with UI tool %q (event: %s).", event.ToolID, event.Type)
	} else {
		fmt.Fprintf(&b, "The user interacted with UI tool %q (event: %s) with data: %s.", event.ToolID, event.Type, payload)
	}
	if len(recent) > 0 {
		b.WriteString("\nRecent interactions in this session:")
		for i := range recent {
			ev := &recent[i]
			ev.Decode()
			fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, ev.ToolID, ev.Type)
			if p := core.EncodePayload(ev.Data); len(p) > 0 {
				fmt.Fprintf(&b, ": %s", p)
			}
		}
	}
	b.WriteString("\nContinue the conversation accordingly.")
	return b.String()
}
