package runner

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/invoker"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/session"
	"github.com/agentrelay/agentrelay/store"
	"github.com/agentrelay/agentrelay/uitool"
)

const (
	defaultMaxIterations = 10
	defaultRecencyWindow = 60 * time.Second
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// SessionStore holds the live conversational state per session id.
	SessionStore *session.Store
	// PersistStore receives agent-requested side operations. Failures are
	// logged and never abort a turn.
	PersistStore store.Store
	// ToolRegistry resolves UI tool ids before exposure to agents.
	ToolRegistry uitool.Registry
	// Logger receives routing diagnostics.
	Logger logging.Logger
	// Metrics receives run counters. Defaults to unregistered instruments.
	Metrics *Metrics
	// MaxIterations caps the number of agent invocations per run. The cap
	// is a safety valve against routing cycles, not a normal termination
	// path.
	MaxIterations int
	// RecencyWindow bounds how old the last UI interaction may be for an
	// eventless Resume to proceed.
	RecencyWindow time.Duration
	// Clock supplies the current time; overridable in tests.
	Clock func() time.Time
}

// RunInput is one inbound chat turn.
type RunInput struct {
	// Messages are the new inbound messages for this turn.
	Messages []core.Message
	// UITools restricts the UI tools visible to this session. Empty keeps
	// the session's current set (or the system's full set).
	UITools []string
	// SessionID continues an existing session; empty mints a fresh id.
	SessionID string
}

// Runner drives multi-agent routing: it resolves the entry-coordinator,
// invokes agents in sequence following their routing decisions, maintains
// the per-session message log, and forwards agent-requested persistence
// operations. Public methods are safe for concurrent use.
type Runner struct {
	invoker  *invoker.Invoker
	sessions *session.Store
	persist  store.Store
	tools    uitool.Registry
	logger   logging.Logger
	metrics  *Metrics

	maxIterations int
	recencyWindow time.Duration
	now           func() time.Time

	mu      sync.RWMutex
	systems map[string]*core.SystemSpec
}

// New constructs a Runner over the given invoker with optional overrides.
func New(inv *invoker.Invoker, optFns ...func(o *Options)) *Runner {
	opts := Options{
		SessionStore:  session.NewStore(),
		PersistStore:  store.NewMemory(),
		ToolRegistry:  uitool.NewMemory(),
		Logger:        logging.NoOpLogger{},
		MaxIterations: defaultMaxIterations,
		RecencyWindow: defaultRecencyWindow,
		Clock:         func() time.Time { return time.Now().UTC() },
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Metrics == nil {
		opts.Metrics = nopMetrics()
	}

	return &Runner{
		invoker:       inv,
		sessions:      opts.SessionStore,
		persist:       opts.PersistStore,
		tools:         opts.ToolRegistry,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		maxIterations: opts.MaxIterations,
		recencyWindow: opts.RecencyWindow,
		now:           opts.Clock,
		systems:       make(map[string]*core.SystemSpec),
	}
}

// LoadSystem validates and registers a system specification. Loading a
// system with a duplicate id replaces the previous registration.
func (r *Runner) LoadSystem(spec *core.SystemSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.systems[spec.ID] = spec
	r.mu.Unlock()
	r.logger.Info("system loaded system_id=%s agents=%d", spec.ID, len(spec.Agents))
	return nil
}

// System returns the loaded system with the given id.
func (r *Runner) System(id string) (*core.SystemSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sys, ok := r.systems[id]
	if !ok {
		return nil, core.NewConfigError(id, core.ErrSystemNotLoaded)
	}
	return sys, nil
}

// Systems returns all loaded systems ordered by id.
func (r *Runner) Systems() []*core.SystemSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.SystemSpec, 0, len(r.systems))
	for _, sys := range r.systems {
		out = append(out, sys)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnloadSystem removes a system registration. Existing session state is
// retained; subsequent runs against the id fail with ErrSystemNotLoaded.
func (r *Runner) UnloadSystem(id string) {
	r.mu.Lock()
	delete(r.systems, id)
	r.mu.Unlock()
}

// Sessions exposes the session store for collaborators that record
// interactions or read session history.
func (r *Runner) Sessions() *session.Store {
	return r.sessions
}

// Run executes one chat turn against the named system. It returns an error
// only for configuration problems (system not loaded, coordinator missing);
// model-side failures degrade to an apology result per the invoker's
// never-crash policy.
//
// Every message in the returned result is already appended to the session's
// log when Run returns, so subsequent turns see full history.
func (r *Runner) Run(ctx context.Context, systemID string, in RunInput) (core.ExecutionResult, error) {
	sys, err := r.System(systemID)
	if err != nil {
		return core.ExecutionResult{}, err
	}
	coordinator, err := sys.Coordinator()
	if err != nil {
		return core.ExecutionResult{}, err
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = core.NewID()
	}

	st := r.sessions.AppendMessages(sessionID, sys.ID, in.Messages)
	if len(in.UITools) > 0 {
		st.SetUITools(in.UITools)
	} else if len(st.UITools()) == 0 && len(sys.UITools) > 0 {
		st.SetUITools(sys.UITools)
	}

	logger := r.logger
	logger.Debug("run started system_id=%s session_id=%s messages=%d", sys.ID, sessionID, len(in.Messages))

	acc := core.ExecutionResult{AgentID: coordinator.ID}
	current := coordinator

	for iteration := 1; iteration <= r.maxIterations; iteration++ {
		r.metrics.ModelInvocations.Inc()
		res := r.invoker.Invoke(ctx, current, sys, st.Messages(), r.toolsFor(st, current))

		st.Append(res.Messages...)
		res.StoreOpResults = r.forwardStoreOps(ctx, st, &res)
		accumulate(&acc, &res)

		if res.AwaitingUI {
			logger.Info("run suspended awaiting ui system_id=%s session_id=%s agent_id=%s iteration=%d",
				sys.ID, sessionID, current.ID, iteration)
			r.metrics.RunsTotal.WithLabelValues("suspended").Inc()
			return acc, nil
		}

		if res.Terminal() {
			logger.Debug("run completed system_id=%s session_id=%s agent_id=%s iterations=%d",
				sys.ID, sessionID, current.ID, iteration)
			r.metrics.RunsTotal.WithLabelValues("completed").Inc()
			return acc, nil
		}

		next := sys.Agent(*res.Routing)
		if next == nil {
			// An invalid routing target ends the turn; it is not an error.
			logger.Warn("unknown routing target system_id=%s session_id=%s from_agent=%s target=%s",
				sys.ID, sessionID, current.ID, *res.Routing)
			acc.Completed = true
			r.metrics.RunsTotal.WithLabelValues("invalid_target").Inc()
			return acc, nil
		}

		logger.Debug("routing hop iteration=%d from_agent=%s to_agent=%s", iteration, current.ID, next.ID)
		current = next
	}

	// Reaching the cap means a routing cycle: surface it loudly and close
	// the turn so the caller is never left hanging.
	logger.Error("iteration cap reached system_id=%s session_id=%s cap=%d", sys.ID, sessionID, r.maxIterations)
	r.metrics.IterationCapTotal.Inc()
	r.metrics.RunsTotal.WithLabelValues("iteration_cap").Inc()
	acc.Completed = true
	return acc, nil
}

// accumulate folds one invocation result into the run accumulator. Scalar
// fields (routing, completion, suspension) always reflect the latest
// invocation; message and call slices grow across the whole run.
func accumulate(acc, res *core.ExecutionResult) {
	acc.Messages = append(acc.Messages, res.Messages...)
	acc.UIToolCalls = append(acc.UIToolCalls, res.UIToolCalls...)
	acc.StoreOps = append(acc.StoreOps, res.StoreOps...)
	acc.StoreOpResults = append(acc.StoreOpResults, res.StoreOpResults...)
	acc.AgentCalls = append(acc.AgentCalls, res.AgentCalls...)
	acc.AgentID = res.AgentID
	acc.Routing = res.Routing
	acc.Completed = res.Completed
	acc.AwaitingUI = res.AwaitingUI
}

// toolsFor returns the UI tools one agent may use in this session: the
// session's visible set narrowed to the agent's permitted ids, resolved
// against the registry. Unresolvable ids are skipped.
func (r *Runner) toolsFor(st *session.State, agent *core.AgentDefinition) []uitool.Tool {
	if !agent.AllowUITools {
		return nil
	}
	available := st.UITools()
	if len(available) == 0 {
		return uitool.FilterForAgent(r.tools, agent)
	}
	var out []uitool.Tool
	for _, id := range available {
		if !agent.PermitsTool(id) {
			continue
		}
		t, err := r.tools.Resolve(id)
		if err != nil {
			r.logger.Debug("ui tool unresolvable tool_id=%s: %v", id, err)
			continue
		}
		out = append(out, t)
	}
	return out
}

// forwardStoreOps relays agent-requested persistence operations to the
// external store and returns one outcome record per operation, in request
// order. save_message operations whose exact role+content pair is already
// persisted in the session log are suppressed and reported as successes.
// Store failures are logged and surfaced in the outcome record; a turn
// never aborts because persistence failed.
func (r *Runner) forwardStoreOps(ctx context.Context, st *session.State, res *core.ExecutionResult) []core.StoreOpOutcome {
	if r.persist == nil || len(res.StoreOps) == 0 {
		return nil
	}
	now := r.now()
	outcomes := make([]core.StoreOpOutcome, 0, len(res.StoreOps))
	for _, op := range res.StoreOps {
		outcomes = append(outcomes, r.applyStoreOp(ctx, st, res.AgentID, op, now))
	}
	return outcomes
}

func (r *Runner) applyStoreOp(ctx context.Context, st *session.State, agentID string, op core.StoreOp, now time.Time) core.StoreOpOutcome {
	out := core.StoreOpOutcome{Kind: op.Kind, Success: true}
	switch op.Kind {
	case core.OpSaveMessage:
		if st.HasPersisted(op.Role, op.Content) {
			r.logger.Debug("duplicate save_message suppressed session_id=%s role=%s", st.ID, op.Role)
			return out
		}
		rec := store.MessageRecord{
			ID:        core.NewID(),
			SessionID: st.ID,
			Role:      op.Role,
			Content:   op.Content,
			AgentID:   agentID,
			CreatedAt: now,
		}
		if err := r.persist.SaveMessage(ctx, rec); err != nil {
			r.logger.Warn("save_message failed session_id=%s: %v", st.ID, err)
			return failedStoreOp(op.Kind, err)
		}
		st.MarkPersisted(op.Role, op.Content)
	case core.OpUpdateSnapshot:
		if err := r.persist.UpdateSnapshot(ctx, st.ID, op.Data); err != nil {
			r.logger.Warn("update_snapshot failed session_id=%s: %v", st.ID, err)
			return failedStoreOp(op.Kind, err)
		}
	case core.OpCreateSession:
		rec := store.SessionRecord{
			ID:        st.ID,
			SystemID:  st.SystemID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.persist.CreateSession(ctx, rec); err != nil {
			r.logger.Warn("create_session failed session_id=%s: %v", st.ID, err)
			return failedStoreOp(op.Kind, err)
		}
	case core.OpGetSession:
		rec, err := r.persist.GetSession(ctx, opSessionID(op, st.ID))
		if err != nil {
			r.logger.Warn("get_session failed session_id=%s: %v", st.ID, err)
			return failedStoreOp(op.Kind, err)
		}
		out.Data, _ = json.Marshal(rec)
	case core.OpGetSessions:
		recs, err := r.persist.GetSessions(ctx, st.SystemID)
		if err != nil {
			r.logger.Warn("get_sessions failed system_id=%s: %v", st.SystemID, err)
			return failedStoreOp(op.Kind, err)
		}
		out.Data, _ = json.Marshal(recs)
	case core.OpDeleteSession:
		if err := r.persist.DeleteSession(ctx, opSessionID(op, st.ID)); err != nil {
			r.logger.Warn("delete_session failed session_id=%s: %v", st.ID, err)
			return failedStoreOp(op.Kind, err)
		}
	default:
		r.logger.Warn("unknown store operation kind=%q session_id=%s", op.Kind, st.ID)
		return core.StoreOpOutcome{Kind: op.Kind, Error: "unknown operation kind"}
	}
	return out
}

func failedStoreOp(kind core.StoreOpKind, err error) core.StoreOpOutcome {
	return core.StoreOpOutcome{Kind: kind, Error: err.Error()}
}

// opSessionID extracts an explicit session_id from an operation payload,
// falling back to the current session.
func opSessionID(op core.StoreOp, fallback string) string {
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if len(op.Data) > 0 && json.Unmarshal(op.Data, &payload) == nil && payload.SessionID != "" {
		return payload.SessionID
	}
	return fallback
}
