package k8s

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/opsloom/kubequery/internal/nlq"
)

// kindResources maps every queryable kind to its canonical API
// coordinates. All entries target the stable v1 APIs.
var kindResources = map[nlq.Kind]schema.GroupVersionResource{
	nlq.KindPod:                   {Group: "", Version: "v1", Resource: "pods"},
	nlq.KindService:               {Group: "", Version: "v1", Resource: "services"},
	nlq.KindNode:                  {Group: "", Version: "v1", Resource: "nodes"},
	nlq.KindNamespace:             {Group: "", Version: "v1", Resource: "namespaces"},
	nlq.KindConfigMap:             {Group: "", Version: "v1", Resource: "configmaps"},
	nlq.KindSecret:                {Group: "", Version: "v1", Resource: "secrets"},
	nlq.KindPersistentVolume:      {Group: "", Version: "v1", Resource: "persistentvolumes"},
	nlq.KindPersistentVolumeClaim: {Group: "", Version: "v1", Resource: "persistentvolumeclaims"},
	nlq.KindDeployment:            {Group: "apps", Version: "v1", Resource: "deployments"},
	nlq.KindStatefulSet:           {Group: "apps", Version: "v1", Resource: "statefulsets"},
	nlq.KindDaemonSet:             {Group: "apps", Version: "v1", Resource: "daemonsets"},
	nlq.KindReplicaSet:            {Group: "apps", Version: "v1", Resource: "replicasets"},
	nlq.KindJob:                   {Group: "batch", Version: "v1", Resource: "jobs"},
	nlq.KindCronJob:               {Group: "batch", Version: "v1", Resource: "cronjobs"},
	nlq.KindIngress:               {Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"},
}

// ResourceFor resolves a kind to the GroupVersionResource used for
// dynamic client calls. Unknown kinds return an error rather than a
// zero GVR so callers fail loudly instead of listing nothing.
func ResourceFor(kind nlq.Kind) (schema.GroupVersionResource, error) {
	gvr, ok := kindResources[kind]
	if !ok {
		return schema.GroupVersionResource{}, fmt.Errorf("no API mapping for resource kind %q", kind)
	}
	return gvr, nil
}
