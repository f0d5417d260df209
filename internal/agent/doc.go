// Package agent turns free-text questions into readable answers. It
// drives the full pipeline (extract, validate, resolve, execute) and
// renders the merged result as deterministic prose: the same question
// against the same cluster state always produces the same answer, with
// no language model in the composition path.
//
// Beyond querying, the agent can diagnose a single pod, folding its
// container states, recent events and log tail into one report.
package agent
