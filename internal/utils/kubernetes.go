package utils

import (
	"context"
	"fmt"

	"github.com/RexQian/kubectl-view-allocations/internal/logging"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

// GetCurrentContext returns the current Kubernetes context from the kubeconfig
func GetCurrentContext() (string, error) {
	// Use the default loading rules (which respect the KUBECONFIG env variable)
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})

	// Get the raw kubeconfig
	rawConfig, err := clientConfig.RawConfig()
	if err != nil {
		return "", err
	}

	if rawConfig.CurrentContext == "" {
		return "", ErrNoCurrentContext
	}

	return rawConfig.CurrentContext, nil
}

// CreateKubernetesClients creates the core and metrics clients for the specified context.
// The boolean reports whether the metrics API answered in namespace (all namespaces when
// empty); a missing metrics API is not an error.
func CreateKubernetesClients(ctx context.Context, kubeContext, namespace string) (*kubernetes.Clientset, *metricsv.Clientset, bool, error) {
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{CurrentContext: kubeContext}).ClientConfig()
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to create Kubernetes config: %w", err)
	}

	// Increase QPS and burst to avoid client-side throttling
	config.QPS = 100
	config.Burst = 100

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}

	// Verify the connection
	_, err = clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to connect to Kubernetes API server: %w", err)
	}

	metricsClient, err := metricsv.NewForConfig(config)
	if err != nil {
		return clientset, nil, false, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return clientset, metricsClient, HasMetrics(ctx, metricsClient, namespace), nil
}

// HasMetrics reports whether pod metrics can be listed in namespace. With
// namespace scoped permissions only the namespaced list is allowed.
func HasMetrics(ctx context.Context, metricsClient metricsv.Interface, namespace string) bool {
	_, err := metricsClient.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		logging.Debug("Metrics API probe in namespace %q failed: %v", namespace, err)
		return false
	}
	return true
}
