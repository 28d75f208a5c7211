// Package invoker executes one structured agent invocation: it derives the
// capability-gated result schema for an agent, renders the conversation into
// a prompt, calls the model Generator, repairs and validates the returned
// JSON, and maps it onto a core.ExecutionResult.
//
// The invoker never returns an error for a model-side failure. Any failure
// (network, quota, schema violation, unparseable output) degrades to a
// synthetic apology result with Completed=false and no routing decision, so
// a single bad model call cannot crash the conversation.
package invoker
