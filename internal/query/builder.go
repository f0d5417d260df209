package query

import (
	"fmt"

	"github.com/opsloom/kubequery/internal/nlq"
)

// Build validates a ParsedQuery and assembles the executable FilterSpec.
//
// An unknown resource type is the one unrecoverable condition: by the time
// intent reaches the builder every fallback has already run, so the request
// fails with an InvalidFilterError. Everything else is repaired in favor of
// a best-effort answer: constraints a kind cannot express are dropped with a
// warning, and inverted time ranges are swapped with a warning, never
// rejected.
func Build(parsed nlq.ParsedQuery) (FilterSpec, error) {
	if !parsed.ResourceType.Known() {
		return FilterSpec{}, &InvalidFilterError{
			Reason: "resource type could not be determined; try naming a kind such as pods, deployments or services",
		}
	}
	info := parsed.ResourceType.Info()

	spec := FilterSpec{
		ResourceType: info.Kind,
		NameFilter:   parsed.NameFilter,
		Confidence:   parsed.RawConfidence,
	}

	if len(parsed.LabelSelectors) > 0 {
		spec.LabelSelectors = make(map[string]string, len(parsed.LabelSelectors))
		for k, v := range parsed.LabelSelectors {
			spec.LabelSelectors[k] = v
		}
	}

	if parsed.Namespace != "" {
		if info.Namespaced {
			spec.Namespace = parsed.Namespace
		} else {
			spec.warn("%s is cluster-scoped; ignoring namespace %q", info.Kind, parsed.Namespace)
		}
	}

	if parsed.StatusFilter != "" {
		if info.HasStatus {
			spec.StatusFilter = parsed.StatusFilter
		} else {
			spec.warn("%s has no status; ignoring status filter %q", info.Kind, parsed.StatusFilter)
		}
	}

	if !parsed.TimeRange.IsZero() {
		ordered, swapped := parsed.TimeRange.Ordered()
		if swapped {
			spec.warn("time range was inverted; swapped start and end")
		}
		spec.TimeRange = &ordered
	}

	return spec, nil
}

func (s *FilterSpec) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}
