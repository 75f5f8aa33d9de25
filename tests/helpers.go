package tests

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	v1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
)

// ResourceList builds a resource list from name -> quantity text
func ResourceList(values map[string]string) corev1.ResourceList {
	if values == nil {
		return nil
	}
	list := corev1.ResourceList{}
	for name, value := range values {
		list[corev1.ResourceName(name)] = resource.MustParse(value)
	}
	return list
}

// NewNamespace creates a namespace object
func NewNamespace(name string) *corev1.Namespace {
	return &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
}

// NewPod creates a running pod with one "app" container
func NewPod(namespace, name, nodeName string, requests, limits map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Spec: corev1.PodSpec{
			NodeName: nodeName,
			Containers: []corev1.Container{
				{
					Name: "app",
					Resources: corev1.ResourceRequirements{
						Requests: ResourceList(requests),
						Limits:   ResourceList(limits),
					},
				},
			},
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
		},
	}
}

// WithContainer appends a regular container to the pod
func WithContainer(pod *corev1.Pod, name string, requests, limits map[string]string) *corev1.Pod {
	pod.Spec.Containers = append(pod.Spec.Containers, corev1.Container{
		Name: name,
		Resources: corev1.ResourceRequirements{
			Requests: ResourceList(requests),
			Limits:   ResourceList(limits),
		},
	})
	return pod
}

// WithInitContainer appends an init container to the pod
func WithInitContainer(pod *corev1.Pod, name string, requests, limits map[string]string) *corev1.Pod {
	pod.Spec.InitContainers = append(pod.Spec.InitContainers, corev1.Container{
		Name: name,
		Resources: corev1.ResourceRequirements{
			Requests: ResourceList(requests),
			Limits:   ResourceList(limits),
		},
	})
	return pod
}

// WithOverhead sets the runtime class overhead of the pod
func WithOverhead(pod *corev1.Pod, overhead map[string]string) *corev1.Pod {
	pod.Spec.Overhead = ResourceList(overhead)
	return pod
}

// WithPhase sets the phase of the pod, scheduled adds a PodScheduled=True condition
func WithPhase(pod *corev1.Pod, phase corev1.PodPhase, scheduled bool) *corev1.Pod {
	pod.Status.Phase = phase
	pod.Status.Conditions = nil
	if scheduled {
		pod.Status.Conditions = []corev1.PodCondition{
			{Type: corev1.PodScheduled, Status: corev1.ConditionTrue},
		}
	}
	return pod
}

// NewNode creates a node with the given allocatable resources
func NewNode(name string, allocatable map[string]string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
		},
		Status: corev1.NodeStatus{
			Allocatable: ResourceList(allocatable),
		},
	}
}

// NewContainerMetrics creates the usage of one container
func NewContainerMetrics(name, cpuUsage, memUsage string) v1beta1.ContainerMetrics {
	return v1beta1.ContainerMetrics{
		Name: name,
		Usage: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(cpuUsage),
			corev1.ResourceMemory: resource.MustParse(memUsage),
		},
	}
}

// NewPodMetrics creates pod metrics from container usages
func NewPodMetrics(namespace, name string, containers ...v1beta1.ContainerMetrics) *v1beta1.PodMetrics {
	return &v1beta1.PodMetrics{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Containers: containers,
	}
}
