// Package oracle provides the language-model fallback for query
// parsing. When deterministic extraction cannot name a resource kind,
// the extractor consults this oracle; when the oracle is down, slow or
// returns garbage, callers degrade to deterministic-only parsing.
//
// The only implementation is Gemini via the Generative Language API.
// Calls are rate limited client-side and every failure mode collapses
// to nlq.ErrOracleUnavailable so the extractor has a single signal to
// react to.
package oracle
