package nlq

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Kind identifies a supported Kubernetes resource kind. Kinds form a closed
// set: queries for anything outside the table below fail validation instead
// of being guessed at. New kinds are added as table entries, not new types.
type Kind string

const (
	KindUnknown               Kind = ""
	KindPod                   Kind = "Pod"
	KindDeployment            Kind = "Deployment"
	KindService               Kind = "Service"
	KindNode                  Kind = "Node"
	KindNamespace             Kind = "Namespace"
	KindConfigMap             Kind = "ConfigMap"
	KindSecret                Kind = "Secret"
	KindStatefulSet           Kind = "StatefulSet"
	KindDaemonSet             Kind = "DaemonSet"
	KindReplicaSet            Kind = "ReplicaSet"
	KindJob                   Kind = "Job"
	KindCronJob               Kind = "CronJob"
	KindIngress               Kind = "Ingress"
	KindPersistentVolume      Kind = "PersistentVolume"
	KindPersistentVolumeClaim Kind = "PersistentVolumeClaim"
)

// KindInfo captures per-kind field support. A query constraint that a kind
// cannot express (namespace on a cluster-scoped kind, status on a kind with
// no meaningful phase) is dropped with a warning during filter building.
// Plural is the lowercase display form used when composing answers.
type KindInfo struct {
	Kind       Kind
	Plural     string
	Namespaced bool
	HasStatus  bool
}

// kindInfos is the authoritative table of supported kinds.
var kindInfos = map[Kind]KindInfo{
	KindPod:                   {Kind: KindPod, Plural: "pods", Namespaced: true, HasStatus: true},
	KindDeployment:            {Kind: KindDeployment, Plural: "deployments", Namespaced: true, HasStatus: true},
	KindService:               {Kind: KindService, Plural: "services", Namespaced: true, HasStatus: false},
	KindNode:                  {Kind: KindNode, Plural: "nodes", Namespaced: false, HasStatus: true},
	KindNamespace:             {Kind: KindNamespace, Plural: "namespaces", Namespaced: false, HasStatus: true},
	KindConfigMap:             {Kind: KindConfigMap, Plural: "configmaps", Namespaced: true, HasStatus: false},
	KindSecret:                {Kind: KindSecret, Plural: "secrets", Namespaced: true, HasStatus: false},
	KindStatefulSet:           {Kind: KindStatefulSet, Plural: "statefulsets", Namespaced: true, HasStatus: true},
	KindDaemonSet:             {Kind: KindDaemonSet, Plural: "daemonsets", Namespaced: true, HasStatus: true},
	KindReplicaSet:            {Kind: KindReplicaSet, Plural: "replicasets", Namespaced: true, HasStatus: true},
	KindJob:                   {Kind: KindJob, Plural: "jobs", Namespaced: true, HasStatus: true},
	KindCronJob:               {Kind: KindCronJob, Plural: "cronjobs", Namespaced: true, HasStatus: false},
	KindIngress:               {Kind: KindIngress, Plural: "ingresses", Namespaced: true, HasStatus: false},
	KindPersistentVolume:      {Kind: KindPersistentVolume, Plural: "persistentvolumes", Namespaced: false, HasStatus: true},
	KindPersistentVolumeClaim: {Kind: KindPersistentVolumeClaim, Plural: "persistentvolumeclaims", Namespaced: true, HasStatus: true},
}

// kindSynonyms maps lowercased user tokens to kinds. Singular, plural and
// the common kubectl short names are all accepted.
var kindSynonyms = map[string]Kind{
	"pod":  KindPod,
	"pods": KindPod,
	"po":   KindPod,

	"deployment":  KindDeployment,
	"deployments": KindDeployment,
	"deploy":      KindDeployment,
	"deploys":     KindDeployment,

	"service":  KindService,
	"services": KindService,
	"svc":      KindService,
	"svcs":     KindService,

	"node":  KindNode,
	"nodes": KindNode,
	"no":    KindNode,

	"namespace":  KindNamespace,
	"namespaces": KindNamespace,
	"ns":         KindNamespace,

	"configmap":  KindConfigMap,
	"configmaps": KindConfigMap,
	"cm":         KindConfigMap,

	"secret":  KindSecret,
	"secrets": KindSecret,

	"statefulset":  KindStatefulSet,
	"statefulsets": KindStatefulSet,
	"sts":          KindStatefulSet,

	"daemonset":  KindDaemonSet,
	"daemonsets": KindDaemonSet,
	"ds":         KindDaemonSet,

	"replicaset":  KindReplicaSet,
	"replicasets": KindReplicaSet,
	"rs":          KindReplicaSet,

	"job":  KindJob,
	"jobs": KindJob,

	"cronjob":  KindCronJob,
	"cronjobs": KindCronJob,
	"cj":       KindCronJob,

	"ingress":   KindIngress,
	"ingresses": KindIngress,
	"ing":       KindIngress,

	"persistentvolume":  KindPersistentVolume,
	"persistentvolumes": KindPersistentVolume,
	"pv":                KindPersistentVolume,

	"persistentvolumeclaim":  KindPersistentVolumeClaim,
	"persistentvolumeclaims": KindPersistentVolumeClaim,
	"pvc":                    KindPersistentVolumeClaim,
	"pvcs":                   KindPersistentVolumeClaim,
}

// fuzzyMinLen is the minimum token length before typo matching applies.
// Short tokens ("po", "svc") are too close to each other for edit distance
// to be meaningful.
const fuzzyMinLen = 4

// ResolveKind maps a single user token to a Kind. Matching is
// case-insensitive and tolerates one-character typos for longer tokens
// ("podz" resolves to Pod). Returns KindUnknown and false when no synonym
// is close enough.
func ResolveKind(token string) (Kind, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return KindUnknown, false
	}
	if kind, ok := kindSynonyms[t]; ok {
		return kind, true
	}
	if len(t) < fuzzyMinLen {
		return KindUnknown, false
	}
	// Ties break on the lexicographically smallest synonym so resolution
	// stays reproducible regardless of map iteration order.
	bestSyn := ""
	for syn := range kindSynonyms {
		if len(syn) < fuzzyMinLen {
			continue
		}
		if levenshtein.ComputeDistance(t, syn) > 1 {
			continue
		}
		if bestSyn == "" || syn < bestSyn {
			bestSyn = syn
		}
	}
	if bestSyn == "" {
		return KindUnknown, false
	}
	return kindSynonyms[bestSyn], true
}

// LookupKind validates a canonical kind name ("Pod", "pod", "pods" all
// accepted) and returns its metadata.
func LookupKind(name string) (KindInfo, bool) {
	kind, ok := ResolveKind(name)
	if !ok {
		return KindInfo{}, false
	}
	info, ok := kindInfos[kind]
	return info, ok
}

// Info returns the metadata for a kind. Unknown kinds yield the zero
// KindInfo; gate with Known() where validity matters.
func (k Kind) Info() KindInfo {
	return kindInfos[k]
}

// Plural returns the lowercase display form ("pods"). Unknown kinds fall
// back to the raw kind string.
func (k Kind) Plural() string {
	if info, ok := kindInfos[k]; ok {
		return info.Plural
	}
	return strings.ToLower(string(k))
}

// Known reports whether the kind is a member of the supported set.
func (k Kind) Known() bool {
	_, ok := kindInfos[k]
	return ok
}

// Kinds returns all supported kinds. The order is unspecified.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindInfos))
	for k := range kindInfos {
		out = append(out, k)
	}
	return out
}
