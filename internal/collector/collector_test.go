package collector

import (
	"context"
	"testing"

	"github.com/RexQian/kubectl-view-allocations/pkg/models"
	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
	testutils "github.com/RexQian/kubectl-view-allocations/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"
	v1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"
)

// total sums the records of one kind and qualifier, ok is false when there is none
func total(records []models.Resource, kind string, qualifier models.Qualifier) (qty.Qty, bool) {
	sum, found := qty.Zero(), false
	for _, r := range records {
		if r.Kind == kind && r.Qualifier == qualifier {
			sum = sum.Add(r.Quantity)
			found = true
		}
	}
	return sum, found
}

func assertTotal(t *testing.T, records []models.Resource, kind string, qualifier models.Qualifier, expected string) {
	t.Helper()
	got, ok := total(records, kind, qualifier)
	require.True(t, ok, "no %s %s record", qualifier, kind)
	assert.True(t, got.Equal(qty.MustParse(expected)), "%s %s: expected %s, got %s", qualifier, kind, expected, got.Canonical())
}

// newMetricsClient returns a metrics fake answering pod metrics lists with the given items
func newMetricsClient(items ...*v1beta1.PodMetrics) *metricsfake.Clientset {
	// The metrics fake client does not list PodMetrics from its tracker, so the list is served by a reactor
	list := &v1beta1.PodMetricsList{}
	for _, pm := range items {
		list.Items = append(list.Items, *pm)
	}
	client := metricsfake.NewSimpleClientset()
	client.PrependReactor("list", "pods", func(action clienttesting.Action) (bool, runtime.Object, error) {
		ns := action.GetNamespace()
		filtered := &v1beta1.PodMetricsList{}
		for _, pm := range list.Items {
			if ns == "" || pm.Namespace == ns {
				filtered.Items = append(filtered.Items, pm)
			}
		}
		return true, filtered, nil
	})
	return client
}

func TestIsScheduled(t *testing.T) {
	tests := []struct {
		name      string
		phase     corev1.PodPhase
		scheduled bool
		expected  bool
	}{
		{name: "Running", phase: corev1.PodRunning, expected: true},
		{name: "Pending and scheduled", phase: corev1.PodPending, scheduled: true, expected: true},
		{name: "Pending not scheduled", phase: corev1.PodPending, expected: false},
		{name: "Succeeded", phase: corev1.PodSucceeded, scheduled: true, expected: false},
		{name: "Failed", phase: corev1.PodFailed, scheduled: true, expected: false},
		{name: "Unknown", phase: corev1.PodUnknown, scheduled: true, expected: false},
		{name: "No phase", phase: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pod := testutils.WithPhase(testutils.NewPod("ns", "p", "n1", nil, nil), tt.phase, tt.scheduled)
			assert.Equal(t, tt.expected, IsScheduled(pod))
		})
	}
}

func TestEffectiveResources(t *testing.T) {
	pod := testutils.NewPod("ns", "p", "n1",
		map[string]string{"cpu": "100m", "memory": "64Mi"},
		map[string]string{"cpu": "1"},
	)
	testutils.WithContainer(pod, "sidecar", map[string]string{"cpu": "200m"}, nil)
	testutils.WithInitContainer(pod, "init", map[string]string{"cpu": "500m", "memory": "32Mi"}, map[string]string{"cpu": "2"})
	testutils.WithOverhead(pod, map[string]string{"cpu": "10m", "memory": "1Mi"})

	requests, limits, err := EffectiveResources(pod)
	require.NoError(t, err)

	// max(100m + 200m, 500m) + 10m
	assert.True(t, requests["cpu"].Equal(qty.MustParse("510m")), requests["cpu"].Canonical())
	// max(64Mi, 32Mi) + 1Mi
	assert.True(t, requests["memory"].Equal(qty.MustParse("65Mi")), requests["memory"].Canonical())
	// max(1, 2) + 10m
	assert.True(t, limits["cpu"].Equal(qty.MustParse("2010m")), limits["cpu"].Canonical())
	// only the overhead declares a memory limit
	assert.True(t, limits["memory"].Equal(qty.MustParse("1Mi")), limits["memory"].Canonical())
}

func TestPodResources(t *testing.T) {
	pod := testutils.NewPod("ns", "p", "", map[string]string{"cpu": "250m"}, nil)

	records, err := PodResources(pod)
	require.NoError(t, err)

	assertTotal(t, records, "cpu", models.Requested, "250m")
	assertTotal(t, records, models.KindPods, models.Requested, "1")
	assertTotal(t, records, models.KindPods, models.Limit, "1")
	_, hasCPULimit := total(records, "cpu", models.Limit)
	assert.False(t, hasCPULimit)

	for _, r := range records {
		assert.Nil(t, r.Location.NodeName, "a pod without node has no node location")
		require.NotNil(t, r.Location.PodName)
		assert.Equal(t, "p", *r.Location.PodName)
	}
}

func TestCollectFromNodes(t *testing.T) {
	client := fake.NewSimpleClientset(
		testutils.NewNode("n1", map[string]string{"cpu": "4", "memory": "16Gi", "pods": "110"}),
		testutils.NewNode("n2", map[string]string{"cpu": "3500m", "nvidia.com/gpu": "2"}),
	)

	records, err := CollectFromNodes(context.Background(), client)
	require.NoError(t, err)
	assert.Len(t, records, 5)

	assertTotal(t, records, "cpu", models.Allocatable, "7500m")
	assertTotal(t, records, "memory", models.Allocatable, "16Gi")
	assertTotal(t, records, "nvidia.com/gpu", models.Allocatable, "2")
	for _, r := range records {
		assert.Equal(t, models.Allocatable, r.Qualifier)
		require.NotNil(t, r.Location.NodeName)
		assert.Nil(t, r.Location.PodName)
	}
}

func TestCollectFromPods(t *testing.T) {
	objects := []runtime.Object{
		testutils.NewNamespace("ns-a"),
		testutils.NewNamespace("ns-b"),
		testutils.NewPod("ns-a", "running", "n1", map[string]string{"cpu": "500m"}, map[string]string{"cpu": "1"}),
		testutils.WithPhase(testutils.NewPod("ns-a", "pending-scheduled", "n1", map[string]string{"cpu": "250m"}, nil), corev1.PodPending, true),
		testutils.WithPhase(testutils.NewPod("ns-a", "pending", "", map[string]string{"cpu": "8"}, nil), corev1.PodPending, false),
		testutils.WithPhase(testutils.NewPod("ns-b", "done", "n2", map[string]string{"cpu": "8"}, nil), corev1.PodSucceeded, true),
		testutils.NewPod("ns-b", "other", "n2", map[string]string{"memory": "1Gi"}, nil),
	}

	tests := []struct {
		name          string
		namespace     string
		maxProcessors int
		expectedPods  string
		expectedCPU   string
	}{
		{name: "All namespaces", expectedPods: "3", expectedCPU: "750m"},
		{name: "All namespaces, one at a time", maxProcessors: 1, expectedPods: "3", expectedCPU: "750m"},
		{name: "One namespace", namespace: "ns-a", expectedPods: "2", expectedCPU: "750m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := fake.NewSimpleClientset(objects...)

			records, err := CollectFromPods(context.Background(), client, tt.namespace, tt.maxProcessors, false)
			require.NoError(t, err)

			assertTotal(t, records, models.KindPods, models.Requested, tt.expectedPods)
			assertTotal(t, records, models.KindPods, models.Limit, tt.expectedPods)
			assertTotal(t, records, "cpu", models.Requested, tt.expectedCPU)
			assertTotal(t, records, "cpu", models.Limit, "1")
		})
	}
}

func TestCollectFromPodsListError(t *testing.T) {
	client := fake.NewSimpleClientset(testutils.NewNamespace("ns-a"), testutils.NewNamespace("ns-b"))
	client.PrependReactor("list", "pods", func(action clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "", assert.AnError)
	})

	_, err := CollectFromPods(context.Background(), client, "", 2, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace ns-a")
	assert.Contains(t, err.Error(), "namespace ns-b")
}

func TestExtractLocations(t *testing.T) {
	records := []models.Resource{
		{Kind: "cpu", Qualifier: models.Allocatable, Quantity: qty.MustParse("4"), Location: models.NodeLocation("n1")},
		{Kind: "cpu", Qualifier: models.Requested, Quantity: qty.MustParse("1"), Location: models.PodLocation("n1", "ns", "p1")},
	}

	locations := ExtractLocations(records)
	require.Len(t, locations, 1)
	loc := locations[PodKey{Namespace: "ns", Name: "p1"}]
	require.NotNil(t, loc.NodeName)
	assert.Equal(t, "n1", *loc.NodeName)
}

func TestCollectFromMetrics(t *testing.T) {
	locations := map[PodKey]models.Location{
		{Namespace: "ns", Name: "p1"}: models.PodLocation("n1", "ns", "p1"),
	}
	client := newMetricsClient(
		testutils.NewPodMetrics("ns", "p1",
			testutils.NewContainerMetrics("app", "100m", "64Mi"),
			testutils.NewContainerMetrics("idle", "0", "0"),
		),
		testutils.NewPodMetrics("ns", "unknown", testutils.NewContainerMetrics("app", "5m", "1Mi")),
	)

	records, err := CollectFromMetrics(context.Background(), client, "", locations)
	require.NoError(t, err)
	require.Len(t, records, 4)

	for _, r := range records {
		assert.Equal(t, models.Utilization, r.Qualifier)
		require.NotNil(t, r.Location.PodName)
		if *r.Location.PodName == "p1" {
			require.NotNil(t, r.Location.NodeName)
			assert.Equal(t, "n1", *r.Location.NodeName)
			// the idle container still counts for 1n
			expected := map[string]string{"cpu": "100000001n", "memory": "67108864000000001n"}[r.Kind]
			assert.True(t, r.Quantity.Equal(qty.MustParse(expected)), "%s: %s", r.Kind, r.Quantity.Canonical())
		} else {
			assert.Nil(t, r.Location.NodeName, "pods unknown to the pod listing have no node")
		}
	}
}

func TestCollectFromMetricsPermanentError(t *testing.T) {
	calls := 0
	client := metricsfake.NewSimpleClientset()
	client.PrependReactor("list", "pods", func(action clienttesting.Action) (bool, runtime.Object, error) {
		calls++
		return true, nil, apierrors.NewNotFound(schema.GroupResource{Group: "metrics.k8s.io", Resource: "pods"}, "")
	})

	_, err := CollectFromMetrics(context.Background(), client, "", nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}
