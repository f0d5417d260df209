// Package nlq turns free-text queries into structured intent.
//
// The package owns the two deterministic building blocks of query
// understanding, the time/token normalizer and the keyword-based intent
// extractor, plus the narrow Oracle interface behind which an external
// language model can assist when deterministic matching comes up short.
//
// The flow is:
//
//	RawQuery -> Extractor.Extract -> ParsedQuery
//
// The deterministic path is always tried first and is fully reproducible:
// resource-kind synonyms resolve against a closed table (with small-typo
// tolerance), time phrases normalize to UTC ranges, and status words map to
// canonical status strings. Only when the resource kind cannot be determined
// does Extract consult the oracle, and any oracle answer is validated back
// through the same normalizer before it is trusted. Oracle failures never
// fail extraction; they degrade it.
package nlq
