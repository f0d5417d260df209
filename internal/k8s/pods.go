package k8s

import (
	"bufio"
	"context"
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	corev1client "k8s.io/client-go/kubernetes/typed/core/v1"

	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/logging"
	"github.com/opsloom/kubequery/internal/nlq"
)

const (
	// DefaultLogTailLines bounds how much log output a diagnosis pulls.
	DefaultLogTailLines = 50

	maxDiagnosticEvents = 20
)

// ContainerState summarizes one container of a diagnosed pod.
type ContainerState struct {
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
	Restarts int32  `json:"restarts"`
	State    string `json:"state"`
}

// PodDiagnostics bundles everything the agent needs to explain why a
// pod is unhealthy: its record, container states, recent events and a
// log tail. Events and logs are best effort; a pod that exists but
// yields neither still produces a useful diagnosis.
type PodDiagnostics struct {
	Record     ResourceRecord   `json:"record"`
	Node       string           `json:"node,omitempty"`
	Containers []ContainerState `json:"containers,omitempty"`
	Events     []string         `json:"events,omitempty"`
	LogTail    []string         `json:"log_tail,omitempty"`
}

// DiagnosePod fetches a single pod with its events and a log tail.
// tailLines <= 0 skips log retrieval.
func (c *Clients) DiagnosePod(ctx context.Context, cl cluster.Context, namespace, name string, tailLines int64) (*PodDiagnostics, error) {
	cs, err := c.typedFor(cl)
	if err != nil {
		return nil, err
	}

	pod, err := cs.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get pod %s/%s in cluster %s: %w", namespace, name, cl.ClusterID, err)
	}

	diag := &PodDiagnostics{
		Record: recordFromPod(pod),
		Node:   pod.Spec.NodeName,
	}
	for _, st := range pod.Status.ContainerStatuses {
		diag.Containers = append(diag.Containers, containerState(st))
	}

	diag.Events = c.podEvents(ctx, cs.CoreV1(), namespace, name)

	if tailLines > 0 {
		diag.LogTail = c.podLogTail(ctx, cs.CoreV1(), namespace, name, tailLines)
	}

	return diag, nil
}

// podEvents lists recent events for the pod, ordered oldest first so
// the narrative reads forward in time.
func (c *Clients) podEvents(ctx context.Context, core corev1client.CoreV1Interface, namespace, name string) []string {
	list, err := core.Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: fmt.Sprintf("involvedObject.name=%s", name),
		Limit:         maxDiagnosticEvents,
	})
	if err != nil {
		c.logger.Warn("event listing failed",
			logging.Namespace(namespace),
			logging.ResourceName(name),
			logging.Err(err))
		return nil
	}

	events := list.Items
	sort.Slice(events, func(i, j int) bool {
		if !events[i].LastTimestamp.Equal(&events[j].LastTimestamp) {
			return events[i].LastTimestamp.Before(&events[j].LastTimestamp)
		}
		return events[i].Reason < events[j].Reason
	})

	lines := make([]string, 0, len(events))
	for _, ev := range events {
		line := fmt.Sprintf("%s %s: %s", ev.Type, ev.Reason, ev.Message)
		if ev.Count > 1 {
			line = fmt.Sprintf("%s (x%d)", line, ev.Count)
		}
		lines = append(lines, line)
	}
	return lines
}

// podLogTail reads the last tailLines lines from the pod's default
// container.
func (c *Clients) podLogTail(ctx context.Context, core corev1client.CoreV1Interface, namespace, name string, tailLines int64) []string {
	req := core.Pods(namespace).GetLogs(name, &corev1.PodLogOptions{TailLines: &tailLines})
	stream, err := req.Stream(ctx)
	if err != nil {
		c.logger.Warn("log retrieval failed",
			logging.Namespace(namespace),
			logging.ResourceName(name),
			logging.Err(err))
		return nil
	}
	defer stream.Close()

	var lines []string
	scanner := bufio.NewScanner(stream)
	for scanner.Scan() && int64(len(lines)) < tailLines {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// recordFromPod is the typed-client twin of RecordFrom for pods.
func recordFromPod(pod *corev1.Pod) ResourceRecord {
	rec := ResourceRecord{
		Kind:      nlq.KindPod,
		Name:      pod.Name,
		Namespace: pod.Namespace,
		CreatedAt: pod.CreationTimestamp.Time.UTC(),
	}
	if len(pod.Labels) > 0 {
		rec.Labels = make(map[string]string, len(pod.Labels))
		for k, v := range pod.Labels {
			rec.Labels[k] = v
		}
	}
	rec.Status = typedPodStatus(pod)
	return rec
}

func typedPodStatus(pod *corev1.Pod) string {
	if pod.DeletionTimestamp != nil {
		return "Terminating"
	}
	for _, st := range pod.Status.ContainerStatuses {
		if st.State.Waiting != nil && st.State.Waiting.Reason == "CrashLoopBackOff" {
			return st.State.Waiting.Reason
		}
	}
	return string(pod.Status.Phase)
}

func containerState(st corev1.ContainerStatus) ContainerState {
	state := "Unknown"
	switch {
	case st.State.Running != nil:
		state = "Running"
	case st.State.Waiting != nil:
		state = "Waiting"
		if st.State.Waiting.Reason != "" {
			state = "Waiting: " + st.State.Waiting.Reason
		}
	case st.State.Terminated != nil:
		state = "Terminated"
		if st.State.Terminated.Reason != "" {
			state = "Terminated: " + st.State.Terminated.Reason
		}
	}
	return ContainerState{
		Name:     st.Name,
		Ready:    st.Ready,
		Restarts: st.RestartCount,
		State:    state,
	}
}
