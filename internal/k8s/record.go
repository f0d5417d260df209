package k8s

import (
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/opsloom/kubequery/internal/nlq"
)

// ResourceRecord is the flattened view of a cluster object that the
// engine filters, orders and returns. Timestamps are UTC. Status is
// empty for kinds that have no meaningful lifecycle phase.
type ResourceRecord struct {
	Kind      nlq.Kind          `json:"kind"`
	Name      string            `json:"name"`
	Namespace string            `json:"namespace,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Labels    map[string]string `json:"labels,omitempty"`
	Status    string            `json:"status,omitempty"`
}

// RecordFrom normalizes a raw API object into a ResourceRecord.
func RecordFrom(kind nlq.Kind, obj *unstructured.Unstructured) ResourceRecord {
	rec := ResourceRecord{
		Kind:      kind,
		Name:      obj.GetName(),
		Namespace: obj.GetNamespace(),
		CreatedAt: obj.GetCreationTimestamp().Time.UTC(),
	}
	if labels := obj.GetLabels(); len(labels) > 0 {
		rec.Labels = make(map[string]string, len(labels))
		for k, v := range labels {
			rec.Labels[k] = v
		}
	}
	rec.Status = statusFor(kind, obj)
	return rec
}

// statusFor derives the per-kind status string. The derivation follows
// what kubectl surfaces in its STATUS column: phase for pods and
// namespace-like kinds, readiness arithmetic for workload controllers,
// the Ready condition for nodes.
func statusFor(kind nlq.Kind, obj *unstructured.Unstructured) string {
	if !kind.Info().HasStatus {
		return ""
	}

	switch kind {
	case nlq.KindPod:
		return podStatus(obj)
	case nlq.KindNamespace, nlq.KindPersistentVolume, nlq.KindPersistentVolumeClaim:
		phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
		return phase
	case nlq.KindDeployment, nlq.KindStatefulSet:
		return replicaStatus(obj, "readyReplicas")
	case nlq.KindReplicaSet:
		return replicaStatus(obj, "availableReplicas")
	case nlq.KindDaemonSet:
		return daemonSetStatus(obj)
	case nlq.KindNode:
		return nodeStatus(obj)
	case nlq.KindJob:
		return jobStatus(obj)
	}
	return ""
}

func podStatus(obj *unstructured.Unstructured) string {
	if obj.GetDeletionTimestamp() != nil {
		return "Terminating"
	}
	// A waiting container in CrashLoopBackOff is more informative than
	// the pod-level phase, which stays Running while it restarts.
	statuses, _, _ := unstructured.NestedSlice(obj.Object, "status", "containerStatuses")
	for _, s := range statuses {
		cs, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		reason, _, _ := unstructured.NestedString(cs, "state", "waiting", "reason")
		if reason == "CrashLoopBackOff" {
			return reason
		}
	}
	phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
	return phase
}

func replicaStatus(obj *unstructured.Unstructured, readyField string) string {
	desired, found, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
	if !found {
		desired = 1
	}
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", readyField)
	switch {
	case desired > 0 && ready >= desired:
		return "Available"
	case ready > 0:
		return "Progressing"
	default:
		return "Unavailable"
	}
}

func daemonSetStatus(obj *unstructured.Unstructured) string {
	desired, _, _ := unstructured.NestedInt64(obj.Object, "status", "desiredNumberScheduled")
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "numberReady")
	switch {
	case desired > 0 && ready >= desired:
		return "Available"
	case ready > 0:
		return "Progressing"
	default:
		return "Unavailable"
	}
}

func nodeStatus(obj *unstructured.Unstructured) string {
	conditions, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	for _, c := range conditions {
		cond, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		typ, _, _ := unstructured.NestedString(cond, "type")
		if typ != "Ready" {
			continue
		}
		status, _, _ := unstructured.NestedString(cond, "status")
		if status == "True" {
			return "Ready"
		}
		return "NotReady"
	}
	return "NotReady"
}

func jobStatus(obj *unstructured.Unstructured) string {
	succeeded, _, _ := unstructured.NestedInt64(obj.Object, "status", "succeeded")
	failed, _, _ := unstructured.NestedInt64(obj.Object, "status", "failed")
	active, _, _ := unstructured.NestedInt64(obj.Object, "status", "active")
	switch {
	case succeeded > 0:
		return "Succeeded"
	case failed > 0:
		return "Failed"
	case active > 0:
		return "Running"
	}
	return "Pending"
}
