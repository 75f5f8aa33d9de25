// Package collector reads nodes, pods and pod metrics from a cluster and
// turns them into flat resource records ready to be aggregated.
package collector

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/RexQian/kubectl-view-allocations/internal/logging"
	"github.com/RexQian/kubectl-view-allocations/internal/utils"
	"github.com/RexQian/kubectl-view-allocations/pkg/models"
	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Clients groups the API clients used by a collection. Metrics may be nil.
type Clients struct {
	Kube       kubernetes.Interface
	Metrics    metricsv.Interface
	HasMetrics bool
}

// Result is the outcome of a collection
type Result struct {
	Resources      []models.Resource
	HasUtilization bool
}

// Collect gathers allocatable, requested and limit records, then utilization
// when the metrics API answers. A metrics failure is not fatal: the result
// simply has no utilization.
func Collect(ctx context.Context, cfg *utils.Config, clients Clients) (*Result, error) {
	logging.Debug("Collecting resources for context %s", cfg.KubeContext)

	var nodeRecords, podRecords []models.Resource
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := CollectFromNodes(gctx, clients.Kube)
		if err != nil {
			return fmt.Errorf("failed to collect info from nodes: %w", err)
		}
		nodeRecords = records
		return nil
	})
	g.Go(func() error {
		records, err := CollectFromPods(gctx, clients.Kube, cfg.Namespace, cfg.MaxProcessors, !cfg.NoProgress)
		if err != nil {
			return fmt.Errorf("failed to collect info from pods: %w", err)
		}
		podRecords = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Resources: append(nodeRecords, podRecords...)}

	utilization, err := collectUtilization(ctx, clients, cfg.Namespace, ExtractLocations(podRecords))
	switch {
	case err == nil:
		result.Resources = append(result.Resources, utilization...)
		result.HasUtilization = true
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case cfg.Utilization:
		logging.Warn("Utilization is not available: %v", err)
	default:
		logging.Debug("Utilization is not available: %v", err)
	}

	if cfg.HideNames {
		HideNames(result.Resources)
	}

	logging.Success("Collected %d resource records", len(result.Resources))
	return result, nil
}

func collectUtilization(ctx context.Context, clients Clients, namespace string, locations map[PodKey]models.Location) ([]models.Resource, error) {
	if clients.Metrics == nil || !clients.HasMetrics {
		return nil, utils.ErrMetricsUnavailable
	}
	return CollectFromMetrics(ctx, clients.Metrics, namespace, locations)
}

// CollectFromNodes returns one Allocatable record per node and resource kind
func CollectFromNodes(ctx context.Context, clientset kubernetes.Interface) ([]models.Resource, error) {
	nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	if len(nodes.Items) == 0 {
		logging.Warn("No nodes found")
	}

	var records []models.Resource
	for _, node := range nodes.Items {
		location := models.NodeLocation(node.Name)
		for _, kind := range sortedKinds(node.Status.Allocatable) {
			quantity, err := qty.FromQuantity(node.Status.Allocatable[corev1.ResourceName(kind)])
			if err != nil {
				return nil, fmt.Errorf("node %s, allocatable %s: %w", node.Name, kind, err)
			}
			records = append(records, models.Resource{
				Kind:      kind,
				Qualifier: models.Allocatable,
				Quantity:  quantity,
				Location:  location,
			})
		}
	}
	logging.Debug("Collected allocatable of %d nodes", len(nodes.Items))
	return records, nil
}

// IsScheduled reports whether a pod holds its resources on a node: running
// pods, and pending pods the scheduler has already placed. Terminated pods
// and pods in an unknown phase (node down) are ignored.
func IsScheduled(pod *corev1.Pod) bool {
	switch pod.Status.Phase {
	case corev1.PodRunning:
		return true
	case corev1.PodPending:
		return lo.ContainsBy(pod.Status.Conditions, func(c corev1.PodCondition) bool {
			return c.Type == corev1.PodScheduled && c.Status == corev1.ConditionTrue
		})
	default:
		return false
	}
}

// CollectFromPods returns the Requested and Limit records of scheduled pods.
// With an empty namespace, namespaces are listed and fetched concurrently,
// at most maxProcessors at a time.
func CollectFromPods(ctx context.Context, clientset kubernetes.Interface, namespace string, maxProcessors int, showProgress bool) ([]models.Resource, error) {
	if namespace != "" {
		return collectNamespacePods(ctx, clientset, namespace)
	}

	namespaces, err := clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	totalNamespaces := len(namespaces.Items)
	if totalNamespaces == 0 {
		logging.Warn("No namespaces found")
		return nil, nil
	}

	var progress *logging.Progress
	if showProgress {
		progress = logging.NewProgress("Processing namespaces", totalNamespaces)
	}

	if maxProcessors <= 0 {
		maxProcessors = runtime.NumCPU() * 4
	}
	semaphore := make(chan struct{}, maxProcessors)
	logging.Debug("Processing %d namespaces with up to %d concurrent requests", totalNamespaces, maxProcessors)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	errorCh := make(chan error, totalNamespaces)
	byNamespace := make(map[string][]models.Resource, totalNamespaces)

	for _, ns := range namespaces.Items {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(name string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if workerCtx.Err() != nil {
				errorCh <- workerCtx.Err()
				return
			}

			records, err := collectNamespacePods(workerCtx, clientset, name)

			if progress != nil {
				progress.Increment()
			}

			if err != nil {
				errorCh <- fmt.Errorf("namespace %s: %w", name, err)
				return
			}

			mu.Lock()
			byNamespace[name] = records
			mu.Unlock()
		}(ns.Name)
	}

	go func() {
		wg.Wait()
		close(errorCh)
	}()

	var errs *multierror.Error
	for err := range errorCh {
		if !errors.Is(err, context.Canceled) {
			errs = multierror.Append(errs, err)
		}
	}

	if progress != nil {
		progress.Complete()
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	// namespaces are listed sorted by the API server, keep that order
	var records []models.Resource
	for _, ns := range namespaces.Items {
		records = append(records, byNamespace[ns.Name]...)
	}
	return records, nil
}

func collectNamespacePods(ctx context.Context, clientset kubernetes.Interface, namespace string) ([]models.Resource, error) {
	pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	var records []models.Resource
	for i := range pods.Items {
		pod := &pods.Items[i]
		if !IsScheduled(pod) {
			logging.Debug("Skipping pod %s/%s in phase %s", pod.Namespace, pod.Name, pod.Status.Phase)
			continue
		}
		podRecords, err := PodResources(pod)
		if err != nil {
			return nil, err
		}
		records = append(records, podRecords...)
	}
	return records, nil
}

// PodResources returns the Requested and Limit records of one pod, plus one
// "pods" record per qualifier
func PodResources(pod *corev1.Pod) ([]models.Resource, error) {
	requests, limits, err := EffectiveResources(pod)
	if err != nil {
		return nil, fmt.Errorf("pod %s/%s: %w", pod.Namespace, pod.Name, err)
	}

	location := models.PodLocation(pod.Spec.NodeName, pod.Namespace, pod.Name)
	var records []models.Resource
	for _, q := range []struct {
		qualifier models.Qualifier
		values    map[string]qty.Qty
	}{
		{models.Requested, requests},
		{models.Limit, limits},
	} {
		for _, kind := range lo.Keys(q.values) {
			records = append(records, models.Resource{
				Kind:      kind,
				Qualifier: q.qualifier,
				Quantity:  q.values[kind],
				Location:  location,
			})
		}
		records = append(records, models.Resource{
			Kind:      models.KindPods,
			Qualifier: q.qualifier,
			Quantity:  qty.MustParse("1"),
			Location:  location,
		})
	}
	slices.SortStableFunc(records, func(a, b models.Resource) int {
		if a.Qualifier != b.Qualifier {
			return int(a.Qualifier) - int(b.Qualifier)
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	return records, nil
}

// EffectiveResources computes what the scheduler reserves for a pod: the sum
// of its containers, raised to the largest init container, plus the runtime
// overhead on both requests and limits.
func EffectiveResources(pod *corev1.Pod) (requests, limits map[string]qty.Qty, err error) {
	requests = make(map[string]qty.Qty)
	limits = make(map[string]qty.Qty)
	sum := func(a, b qty.Qty) qty.Qty { return a.Add(b) }
	highest := func(a, b qty.Qty) qty.Qty { return a.Max(b) }

	for _, c := range pod.Spec.Containers {
		if err := merge(requests, c.Resources.Requests, sum); err != nil {
			return nil, nil, err
		}
		if err := merge(limits, c.Resources.Limits, sum); err != nil {
			return nil, nil, err
		}
	}
	for _, c := range pod.Spec.InitContainers {
		if err := merge(requests, c.Resources.Requests, highest); err != nil {
			return nil, nil, err
		}
		if err := merge(limits, c.Resources.Limits, highest); err != nil {
			return nil, nil, err
		}
	}
	if err := merge(requests, pod.Spec.Overhead, sum); err != nil {
		return nil, nil, err
	}
	if err := merge(limits, pod.Spec.Overhead, sum); err != nil {
		return nil, nil, err
	}
	return requests, limits, nil
}

func merge(acc map[string]qty.Qty, list corev1.ResourceList, op func(a, b qty.Qty) qty.Qty) error {
	for name, value := range list {
		q, err := qty.FromQuantity(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		kind := string(name)
		if current, ok := acc[kind]; ok {
			acc[kind] = op(current, q)
		} else {
			acc[kind] = q
		}
	}
	return nil
}

func sortedKinds(list corev1.ResourceList) []string {
	kinds := lo.Map(lo.Keys(list), func(name corev1.ResourceName, _ int) string { return string(name) })
	slices.Sort(kinds)
	return kinds
}
