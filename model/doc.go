// Package model defines the opaque LLM collaborator boundary: a Generator
// turns (instructions, prompt, schema) into a schema-constrained JSON
// object. Provider adapters live in sub-packages (openai, anthropic); a
// circuit-breaker decorator and a scriptable mock complete the set.
//
// The engine never sees provider errors directly. Any Generator failure is
// converted by the invoker into a synthetic apology result, so a flaky model
// never crashes a conversation.
package model
