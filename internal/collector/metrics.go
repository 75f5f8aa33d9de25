package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/RexQian/kubectl-view-allocations/internal/logging"
	"github.com/RexQian/kubectl-view-allocations/pkg/models"
	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	v1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

const (
	maxRetries = 3
	retryDelay = 500 * time.Millisecond
)

// PodKey identifies a pod across API groups
type PodKey struct {
	Namespace string
	Name      string
}

// ExtractLocations indexes the locations of pod records by namespace and pod
// name. Pod metrics carry no node, the index restores it.
func ExtractLocations(records []models.Resource) map[PodKey]models.Location {
	locations := make(map[PodKey]models.Location)
	for _, r := range records {
		if r.Location.PodName == nil {
			continue
		}
		key := PodKey{Name: *r.Location.PodName}
		if r.Location.Namespace != nil {
			key.Namespace = *r.Location.Namespace
		}
		locations[key] = r.Location
	}
	return locations
}

// CollectFromMetrics returns one cpu and one memory Utilization record per
// pod reported by the metrics API. Each container counts for at least the
// lowest positive quantity so a running container never looks idle.
func CollectFromMetrics(ctx context.Context, metricsClient metricsv.Interface, namespace string, locations map[PodKey]models.Location) ([]models.Resource, error) {
	podMetrics, err := getMetricsWithRetries(ctx, metricsClient, namespace)
	if err != nil {
		return nil, err
	}

	var records []models.Resource
	for _, pm := range podMetrics.Items {
		location, ok := locations[PodKey{Namespace: pm.Namespace, Name: pm.Name}]
		if !ok {
			location = models.PodLocation("", pm.Namespace, pm.Name)
		}

		cpu, memory := qty.Zero(), qty.Zero()
		for _, c := range pm.Containers {
			cpuUsage, err := containerUsage(c, corev1.ResourceCPU)
			if err != nil {
				return nil, fmt.Errorf("pod %s/%s: %w", pm.Namespace, pm.Name, err)
			}
			memoryUsage, err := containerUsage(c, corev1.ResourceMemory)
			if err != nil {
				return nil, fmt.Errorf("pod %s/%s: %w", pm.Namespace, pm.Name, err)
			}
			cpu = cpu.Add(cpuUsage)
			memory = memory.Add(memoryUsage)
		}

		records = append(records,
			models.Resource{Kind: string(corev1.ResourceCPU), Qualifier: models.Utilization, Quantity: cpu, Location: location},
			models.Resource{Kind: string(corev1.ResourceMemory), Qualifier: models.Utilization, Quantity: memory, Location: location},
		)
	}
	logging.Debug("Collected utilization of %d pods", len(podMetrics.Items))
	return records, nil
}

func containerUsage(c v1beta1.ContainerMetrics, name corev1.ResourceName) (qty.Qty, error) {
	q, err := qty.FromQuantity(c.Usage[name])
	if err != nil {
		return qty.Qty{}, fmt.Errorf("container %s, %s usage: %w", c.Name, name, err)
	}
	return q.Max(qty.LowestPositive()), nil
}

// getMetricsWithRetries gets metrics for all pods in a namespace with retry logic
func getMetricsWithRetries(ctx context.Context, metricsClient metricsv.Interface, namespace string) (*v1beta1.PodMetricsList, error) {
	var result *v1beta1.PodMetricsList
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, lastErr = metricsClient.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{})
		if lastErr == nil {
			return result, nil
		}

		// Check if error is likely to be permanent (not found, forbidden, etc.)
		if errors.IsNotFound(lastErr) || errors.IsForbidden(lastErr) || errors.IsUnauthorized(lastErr) {
			logging.Debug("Permanent error getting pod metrics: %v", lastErr)
			return nil, lastErr
		}

		logging.Debug("Failed to get pod metrics (attempt %d/%d): %v", attempt+1, maxRetries, lastErr)

		if attempt == maxRetries-1 {
			break
		}

		// Exponential backoff
		sleepTime := retryDelay * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepTime):
		}
	}

	return nil, fmt.Errorf("failed to get pod metrics after %d attempts: %w", maxRetries, lastErr)
}
