package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/opsloom/kubequery/internal/engine"
	"github.com/opsloom/kubequery/internal/k8s"
	"github.com/opsloom/kubequery/internal/query"
)

// maxListedMatches caps how many resources a list answer spells out.
const maxListedMatches = 20

// maxDescribedMatches caps how many resources a describe answer details.
const maxDescribedMatches = 5

var titleCaser = cases.Title(language.English)

// compose renders the result for the chosen action. Everything here is
// a pure function of its inputs; map iteration always goes through
// sorted keys so the wording never varies between runs.
func compose(action Action, spec query.FilterSpec, result *engine.Result) string {
	var b strings.Builder
	switch action {
	case ActionCount:
		composeCount(&b, spec, result)
	case ActionDescribe:
		composeDescribe(&b, spec, result)
	case ActionSummarize:
		composeSummary(&b, spec, result)
	default:
		composeList(&b, spec, result)
	}
	composeErrors(&b, result)
	return strings.TrimRight(b.String(), "\n")
}

func composeCount(b *strings.Builder, spec query.FilterSpec, result *engine.Result) {
	if len(result.Matched) == 0 {
		fmt.Fprintf(b, "Found no %s%s.\n", spec.ResourceType.Plural(), constraintPhrase(spec))
		return
	}
	fmt.Fprintf(b, "Found %d %s%s.\n", len(result.Matched), spec.ResourceType.Plural(), constraintPhrase(spec))

	byCluster := countBy(result.Matched, func(m engine.Match) string { return m.ClusterID })
	if len(byCluster) > 1 {
		fmt.Fprintf(b, "By cluster: %s.\n", renderCounts(byCluster))
	}
}

func composeList(b *strings.Builder, spec query.FilterSpec, result *engine.Result) {
	if len(result.Matched) == 0 {
		fmt.Fprintf(b, "No %s matched%s.\n", spec.ResourceType.Plural(), constraintPhrase(spec))
		return
	}

	fmt.Fprintf(b, "%s%s: %d matched.\n", titleCaser.String(spec.ResourceType.Plural()), constraintPhrase(spec), len(result.Matched))
	for i, m := range result.Matched {
		if i == maxListedMatches {
			fmt.Fprintf(b, "  ... and %d more.\n", len(result.Matched)-maxListedMatches)
			break
		}
		b.WriteString("  - ")
		if m.Namespace != "" {
			b.WriteString(m.Namespace + "/")
		}
		b.WriteString(m.Name)
		if m.Status != "" {
			fmt.Fprintf(b, " (%s)", m.Status)
		}
		fmt.Fprintf(b, ", cluster %s, created %s\n", m.ClusterID, m.CreatedAt.Format(time.RFC3339))
	}
}

func composeDescribe(b *strings.Builder, spec query.FilterSpec, result *engine.Result) {
	if len(result.Matched) == 0 {
		fmt.Fprintf(b, "No %s matched%s.\n", spec.ResourceType.Plural(), constraintPhrase(spec))
		return
	}

	fmt.Fprintf(b, "%s%s: %d matched.\n", titleCaser.String(spec.ResourceType.Plural()), constraintPhrase(spec), len(result.Matched))
	for i, m := range result.Matched {
		if i == maxDescribedMatches {
			fmt.Fprintf(b, "... and %d more.\n", len(result.Matched)-maxDescribedMatches)
			break
		}
		b.WriteString("- ")
		if m.Namespace != "" {
			b.WriteString(m.Namespace + "/")
		}
		fmt.Fprintf(b, "%s on cluster %s\n", m.Name, m.ClusterID)
		if m.Status != "" {
			fmt.Fprintf(b, "    status: %s\n", m.Status)
		}
		fmt.Fprintf(b, "    created: %s\n", m.CreatedAt.Format(time.RFC3339))
		if len(m.Labels) > 0 {
			fmt.Fprintf(b, "    labels: %s\n", renderLabels(m.Labels))
		}
	}
}

func composeSummary(b *strings.Builder, spec query.FilterSpec, result *engine.Result) {
	fmt.Fprintf(b, "%s%s: %d matched, %d considered.\n",
		titleCaser.String(spec.ResourceType.Plural()), constraintPhrase(spec), len(result.Matched), result.TotalConsidered)
	if len(result.Matched) == 0 {
		return
	}

	if spec.ResourceType.Info().HasStatus {
		byStatus := countBy(result.Matched, func(m engine.Match) string {
			if m.Status == "" {
				return "(none)"
			}
			return m.Status
		})
		fmt.Fprintf(b, "By status: %s.\n", renderCounts(byStatus))
	}

	if spec.ResourceType.Info().Namespaced {
		byNamespace := countBy(result.Matched, func(m engine.Match) string { return m.Namespace })
		fmt.Fprintf(b, "By namespace: %s.\n", renderCounts(byNamespace))
	}

	byCluster := countBy(result.Matched, func(m engine.Match) string { return m.ClusterID })
	if len(byCluster) > 1 {
		fmt.Fprintf(b, "By cluster: %s.\n", renderCounts(byCluster))
	}
}

func composeErrors(b *strings.Builder, result *engine.Result) {
	for _, ce := range result.PerClusterErrors {
		fmt.Fprintf(b, "Skipped cluster %s (%s): %s\n", ce.ClusterID, ce.Kind, ce.Message)
	}
}

// composeDiagnosis renders a pod diagnosis as a short report.
func composeDiagnosis(clusterID string, diag *k8s.PodDiagnostics) string {
	var b strings.Builder

	status := diag.Record.Status
	if status == "" {
		status = "an unknown state"
	}
	b.WriteString("Pod ")
	if diag.Record.Namespace != "" {
		b.WriteString(diag.Record.Namespace + "/")
	}
	fmt.Fprintf(&b, "%s on cluster %s is in %s.\n", diag.Record.Name, clusterID, status)

	if diag.Node != "" {
		fmt.Fprintf(&b, "Node: %s\n", diag.Node)
	}

	if len(diag.Containers) > 0 {
		b.WriteString("Containers:\n")
		for _, c := range diag.Containers {
			fmt.Fprintf(&b, "  - %s: %s (ready: %t, restarts: %d)\n", c.Name, c.State, c.Ready, c.Restarts)
		}
	}

	if len(diag.Events) > 0 {
		b.WriteString("Recent events:\n")
		for _, ev := range diag.Events {
			fmt.Fprintf(&b, "  - %s\n", ev)
		}
	}

	if len(diag.LogTail) > 0 {
		fmt.Fprintf(&b, "Last %d log lines:\n", len(diag.LogTail))
		for _, line := range diag.LogTail {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// constraintPhrase spells out the filter's constraints in a fixed
// order: namespace, name, status, labels, time range.
func constraintPhrase(spec query.FilterSpec) string {
	var parts []string
	if spec.Namespace != "" {
		parts = append(parts, fmt.Sprintf(" in namespace %s", spec.Namespace))
	}
	if spec.NameFilter != "" {
		parts = append(parts, fmt.Sprintf(" named like %q", spec.NameFilter))
	}
	if spec.StatusFilter != "" {
		parts = append(parts, fmt.Sprintf(" with status %s", spec.StatusFilter))
	}
	if len(spec.LabelSelectors) > 0 {
		parts = append(parts, fmt.Sprintf(" with labels %s", renderLabels(spec.LabelSelectors)))
	}
	if spec.TimeRange != nil {
		parts = append(parts, fmt.Sprintf(" created between %s and %s",
			spec.TimeRange.Start.Format(time.RFC3339), spec.TimeRange.End.Format(time.RFC3339)))
	}
	return strings.Join(parts, "")
}

func renderLabels(labels map[string]string) string {
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

func countBy(matches []engine.Match, key func(engine.Match) string) map[string]int {
	counts := make(map[string]int, len(matches))
	for _, m := range matches {
		counts[key(m)]++
	}
	return counts
}

func renderCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", key, counts[key]))
	}
	return strings.Join(parts, ", ")
}
