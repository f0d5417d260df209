package query

import (
	"github.com/opsloom/kubequery/internal/nlq"
)

// FilterSpec is the fully validated, executable query. Fields use explicit
// no-constraint markers: a nil TimeRange, empty strings, and a nil label map
// all mean "do not filter on this". ResourceType is always a known kind;
// specs with unknown kinds never leave the builder.
type FilterSpec struct {
	ResourceType   nlq.Kind          `json:"resource_type"`
	TimeRange      *nlq.TimeRange    `json:"time_range,omitempty"`
	NameFilter     string            `json:"name_filter,omitempty"`
	Namespace      string            `json:"namespace,omitempty"`
	LabelSelectors map[string]string `json:"label_selectors,omitempty"`
	StatusFilter   string            `json:"status_filter,omitempty"`
	Confidence     float64           `json:"confidence"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// Constrained reports whether any filtering constraint is set beyond the
// resource type itself.
func (s FilterSpec) Constrained() bool {
	return s.TimeRange != nil ||
		s.NameFilter != "" ||
		s.Namespace != "" ||
		len(s.LabelSelectors) > 0 ||
		s.StatusFilter != ""
}
