package engine

import (
	"sort"
	"strings"

	"github.com/opsloom/kubequery/internal/k8s"
	"github.com/opsloom/kubequery/internal/query"
)

// Matches reports whether a record satisfies every constraint of the
// filter. Constraints combine with AND; an absent constraint matches
// everything. Time bounds are inclusive on both ends, name matching is
// a case-insensitive substring test, status matching is
// case-insensitive equality, and label selectors require every pair to
// be present.
func Matches(spec query.FilterSpec, rec k8s.ResourceRecord) bool {
	if tr := spec.TimeRange; tr != nil {
		if rec.CreatedAt.Before(tr.Start) || rec.CreatedAt.After(tr.End) {
			return false
		}
	}
	if spec.NameFilter != "" {
		if !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(spec.NameFilter)) {
			return false
		}
	}
	if spec.Namespace != "" && rec.Namespace != spec.Namespace {
		return false
	}
	if spec.StatusFilter != "" && !strings.EqualFold(rec.Status, spec.StatusFilter) {
		return false
	}
	for key, value := range spec.LabelSelectors {
		if rec.Labels[key] != value {
			return false
		}
	}
	return true
}

// labelSelector renders the filter's label constraints as a selector
// string for server-side pushdown. Keys are sorted so the same filter
// always produces the same request.
func labelSelector(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+labels[key])
	}
	return strings.Join(parts, ",")
}
