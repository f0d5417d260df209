package cluster

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// CredentialSource turns a registry entry into a usable credential handle.
type CredentialSource interface {
	RESTConfig(ctx context.Context, entry Entry) (*rest.Config, error)
}

// objectStore is the slice of object storage the loader needs. The real
// implementation is Google Cloud Storage; tests substitute a map.
type objectStore interface {
	fetch(ctx context.Context, bucket, object string) ([]byte, error)
}

// KubeconfigLoader loads kubeconfigs from local paths, object storage, or
// the standard loading rules, and parses them into rest.Configs.
type KubeconfigLoader struct {
	store     objectStore
	storeOnce sync.Once
	storeErr  error
}

// NewKubeconfigLoader creates a loader. The object storage client is
// initialized lazily on the first gs:// reference, so clusters with local
// kubeconfigs never require cloud credentials.
func NewKubeconfigLoader() *KubeconfigLoader {
	return &KubeconfigLoader{}
}

const gsScheme = "gs://"

// RESTConfig implements CredentialSource.
func (l *KubeconfigLoader) RESTConfig(ctx context.Context, entry Entry) (*rest.Config, error) {
	switch {
	case entry.Kubeconfig == "":
		cfg, err := l.defaultConfig(entry.Context)
		if err != nil {
			return nil, &CredentialError{ClusterID: entry.ID, Source: "default kubeconfig chain", Err: err}
		}
		return cfg, nil

	case strings.HasPrefix(entry.Kubeconfig, gsScheme):
		data, err := l.fetchObject(ctx, entry.Kubeconfig)
		if err != nil {
			return nil, &CredentialError{ClusterID: entry.ID, Source: entry.Kubeconfig, Err: err}
		}
		cfg, err := restConfigFromBytes(data, entry.Context)
		if err != nil {
			return nil, &CredentialError{ClusterID: entry.ID, Source: entry.Kubeconfig, Err: err}
		}
		return cfg, nil

	default:
		data, err := os.ReadFile(entry.Kubeconfig)
		if err != nil {
			return nil, &CredentialError{ClusterID: entry.ID, Source: entry.Kubeconfig, Err: err}
		}
		cfg, err := restConfigFromBytes(data, entry.Context)
		if err != nil {
			return nil, &CredentialError{ClusterID: entry.ID, Source: entry.Kubeconfig, Err: err}
		}
		return cfg, nil
	}
}

// defaultConfig builds a rest.Config from the standard kubeconfig loading
// rules, optionally overriding the current context.
func (l *KubeconfigLoader) defaultConfig(contextName string) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
}

// restConfigFromBytes parses raw kubeconfig data, optionally selecting a
// non-default context.
func restConfigFromBytes(data []byte, contextName string) (*rest.Config, error) {
	if contextName == "" {
		return clientcmd.RESTConfigFromKubeConfig(data)
	}
	apiConfig, err := clientcmd.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parsing kubeconfig: %w", err)
	}
	return clientcmd.NewNonInteractiveClientConfig(*apiConfig, contextName, &clientcmd.ConfigOverrides{}, nil).ClientConfig()
}

// fetchObject downloads a gs://bucket/key object.
func (l *KubeconfigLoader) fetchObject(ctx context.Context, ref string) ([]byte, error) {
	bucket, object, err := splitObjectRef(ref)
	if err != nil {
		return nil, err
	}
	store, err := l.objectStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.fetch(ctx, bucket, object)
}

func (l *KubeconfigLoader) objectStore(ctx context.Context) (objectStore, error) {
	l.storeOnce.Do(func() {
		if l.store != nil {
			return
		}
		l.store, l.storeErr = newGCSStore(ctx)
	})
	return l.store, l.storeErr
}

func splitObjectRef(ref string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(ref, gsScheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed object reference %q, want gs://bucket/key", ref)
	}
	return parts[0], parts[1], nil
}

// gcsStore reads objects through the Cloud Storage JSON API using
// application default credentials.
type gcsStore struct {
	svc *storage.Service
}

func newGCSStore(ctx context.Context) (*gcsStore, error) {
	ts, err := google.DefaultTokenSource(ctx, storage.DevstorageReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("resolving storage credentials: %w", err)
	}
	svc, err := storage.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &gcsStore{svc: svc}, nil
}

func (s *gcsStore) fetch(ctx context.Context, bucket, object string) ([]byte, error) {
	resp, err := s.svc.Objects.Get(bucket, object).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("downloading gs://%s/%s: %w", bucket, object, err)
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}
