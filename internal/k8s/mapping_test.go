package k8s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsloom/kubequery/internal/nlq"
)

func TestResourceForCoversAllKinds(t *testing.T) {
	for _, kind := range nlq.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			gvr, err := ResourceFor(kind)
			require.NoError(t, err)
			assert.NotEmpty(t, gvr.Resource)
			assert.Equal(t, "v1", gvr.Version)
		})
	}
}

func TestResourceForCoordinates(t *testing.T) {
	tests := []struct {
		kind     nlq.Kind
		group    string
		resource string
	}{
		{nlq.KindPod, "", "pods"},
		{nlq.KindDeployment, "apps", "deployments"},
		{nlq.KindJob, "batch", "jobs"},
		{nlq.KindCronJob, "batch", "cronjobs"},
		{nlq.KindIngress, "networking.k8s.io", "ingresses"},
		{nlq.KindPersistentVolumeClaim, "", "persistentvolumeclaims"},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			gvr, err := ResourceFor(tc.kind)
			require.NoError(t, err)
			assert.Equal(t, tc.group, gvr.Group)
			assert.Equal(t, tc.resource, gvr.Resource)
		})
	}
}

func TestResourceForUnknownKind(t *testing.T) {
	_, err := ResourceFor(nlq.KindUnknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API mapping")
}
