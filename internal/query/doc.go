// Package query defines the validated filter specification and the builder
// that produces it from extracted intent.
//
// A FilterSpec is the executable form of a query: every field is either a
// concrete constraint or an explicit no-constraint zero value, the resource
// kind is guaranteed to be a member of the supported set, and any repairs
// performed during validation (dropped constraints, swapped time bounds) are
// recorded as warnings on the spec rather than silently applied.
package query
