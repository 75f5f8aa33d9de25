package collector

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/RexQian/kubectl-view-allocations/internal/utils"
	"github.com/RexQian/kubectl-view-allocations/pkg/aggregate"
	testutils "github.com/RexQian/kubectl-view-allocations/tests"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	v1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	"sigs.k8s.io/yaml"
)

// PerformanceTestConfig defines the overall structure for the performance test YAML config.
type PerformanceTestConfig struct {
	Nodes      NodeConfig        `json:"nodes"`
	Namespaces []NamespaceConfig `json:"namespaces"`
}

// NodeConfig defines the generated nodes, pods are spread over them round robin.
type NodeConfig struct {
	NamePrefix  string            `json:"namePrefix"`
	Count       int               `json:"count"`
	Allocatable map[string]string `json:"allocatable"`
}

// NamespaceConfig defines the configuration for a set of namespaces in the test.
type NamespaceConfig struct {
	NamePrefix string    `json:"namePrefix"` // Prefix for generated namespace names
	Count      int       `json:"count"`      // Number of namespaces to generate with this config
	PodConfig  PodConfig `json:"podConfig"`  // Configuration for pods within each namespace
}

// PodConfig defines the configuration for pods within a namespace.
type PodConfig struct {
	NamePrefix   string            `json:"namePrefix"`
	Count        int               `json:"count"`
	Requests     map[string]string `json:"requests"`
	Limits       map[string]string `json:"limits"`
	InitRequests map[string]string `json:"initRequests"` // optional init container
	Usage        map[string]string `json:"usage"`        // cpu and memory, no metrics when empty
}

func loadPerformanceTestConfig(filePath string) (*PerformanceTestConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read performance test config file %s: %w", filePath, err)
	}

	var config PerformanceTestConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal performance test config from %s: %w", filePath, err)
	}
	return &config, nil
}

// generateMockResources creates fake Kubernetes objects and pod metrics based on the config.
func generateMockResources(config *PerformanceTestConfig) ([]runtime.Object, []*v1beta1.PodMetrics) {
	var kubeObjects []runtime.Object
	var podMetrics []*v1beta1.PodMetrics

	for i := 0; i < config.Nodes.Count; i++ {
		kubeObjects = append(kubeObjects, testutils.NewNode(fmt.Sprintf("%s%d", config.Nodes.NamePrefix, i), config.Nodes.Allocatable))
	}

	scheduled := 0
	for _, nsConfig := range config.Namespaces {
		for i := 0; i < nsConfig.Count; i++ {
			nsName := fmt.Sprintf("%s%d", nsConfig.NamePrefix, i)
			kubeObjects = append(kubeObjects, testutils.NewNamespace(nsName))

			pc := nsConfig.PodConfig
			for j := 0; j < pc.Count; j++ {
				podName := fmt.Sprintf("%s%d", pc.NamePrefix, j)
				nodeName := fmt.Sprintf("%s%d", config.Nodes.NamePrefix, scheduled%max(config.Nodes.Count, 1))
				scheduled++

				pod := testutils.NewPod(nsName, podName, nodeName, pc.Requests, pc.Limits)
				if pc.InitRequests != nil {
					testutils.WithInitContainer(pod, "init", pc.InitRequests, nil)
				}
				kubeObjects = append(kubeObjects, pod)

				if pc.Usage != nil {
					podMetrics = append(podMetrics, testutils.NewPodMetrics(nsName, podName,
						testutils.NewContainerMetrics("app", pc.Usage["cpu"], pc.Usage["memory"])))
				}
			}
		}
	}
	return kubeObjects, podMetrics
}

func BenchmarkCollect(b *testing.B) {
	config, err := loadPerformanceTestConfig("../../tests/data/performance/large_cluster.yaml")
	if err != nil {
		b.Fatalf("Failed to load performance test config: %v", err)
	}

	kubeObjects, podMetrics := generateMockResources(config)
	b.Logf("Generated %d kube objects and %d pod metrics", len(kubeObjects), len(podMetrics))

	clients := Clients{
		Kube:       fake.NewSimpleClientset(kubeObjects...),
		Metrics:    newMetricsClient(podMetrics...),
		HasMetrics: true,
	}
	cfg := &utils.Config{KubeContext: "benchmark-context", NoProgress: true}

	var records, groups int
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

		result, err := Collect(ctx, cfg, clients)
		if err != nil {
			cancel()
			b.Fatalf("Benchmark iteration %d failed: %v", i, err)
		}
		aggregated, err := aggregate.Aggregate(result.Resources, aggregate.DefaultGroupBy, nil)
		cancel()
		if err != nil {
			b.Fatalf("Benchmark iteration %d failed to aggregate: %v", i, err)
		}
		records, groups = len(result.Resources), len(aggregated)
	}

	b.StopTimer()

	b.ReportMetric(float64(records), "records")
	b.ReportMetric(float64(groups), "groups")
}
