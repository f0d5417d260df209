package agent

import (
	"fmt"
	"strings"

	"github.com/opsloom/kubequery/internal/k8s"
)

// healthyPodStates are the lifecycle states that raise no pod-level issue.
var healthyPodStates = map[string]bool{
	"Running":   true,
	"Succeeded": true,
}

// DeriveIssues distills a diagnosis bundle into the conditions worth
// acting on: pod state first, then container conditions in bundle order,
// then warning events oldest first. The slice is never nil, so a healthy
// pod serializes as an empty list.
func DeriveIssues(diag *k8s.PodDiagnostics) []string {
	issues := []string{}
	if diag == nil {
		return issues
	}

	if status := diag.Record.Status; status != "" && !healthyPodStates[status] {
		issues = append(issues, fmt.Sprintf("pod is in state %s", status))
	}

	for _, c := range diag.Containers {
		if !c.Ready && c.State != "Terminated: Completed" {
			issues = append(issues, fmt.Sprintf("container %s is not ready (%s)", c.Name, c.State))
		}
		if c.Restarts > 0 {
			issues = append(issues, fmt.Sprintf("container %s restarted %d times", c.Name, c.Restarts))
		}
	}

	for _, ev := range diag.Events {
		if strings.HasPrefix(ev, "Warning") {
			issues = append(issues, "recent event: "+ev)
		}
	}

	return issues
}
