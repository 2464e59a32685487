package cluster

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
)

const (
	labelPrefix       = "node-role.kubernetes.io/"
	labelControlPlane = labelPrefix + "control-plane"

	debugImage = "busybox:1.36"

	defaultPollInterval = 5 * time.Second
)

// KubeClient implements Client against a real (or fake) Kubernetes API.
type KubeClient struct {
	clientset      kubernetes.Interface
	debugNamespace string
	pollInterval   time.Duration
}

// NewKubeClient creates a KubeClient from a kubeconfig file.
func NewKubeClient(kubeconfigPath, debugNamespace string) (*KubeClient, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return NewWithClientset(clientset, debugNamespace), nil
}

// NewWithClientset creates a KubeClient around an existing clientset.
func NewWithClientset(clientset kubernetes.Interface, debugNamespace string) *KubeClient {
	return &KubeClient{
		clientset:      clientset,
		debugNamespace: debugNamespace,
		pollInterval:   defaultPollInterval,
	}
}

// ListNodesByRole returns all nodes carrying the given role. An empty
// role matches every node.
func (c *KubeClient) ListNodesByRole(ctx context.Context, role Role) ([]NodeInfo, error) {
	nodeList, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	var infos []NodeInfo
	for i := range nodeList.Items {
		info := nodeInfoFor(&nodeList.Items[i])
		if role == "" || info.Role == role {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// GetNode returns the current view of a single node.
func (c *KubeClient) GetNode(ctx context.Context, name string) (NodeInfo, error) {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return NodeInfo{}, &NotFoundError{Kind: "node", Name: name}
		}
		return NodeInfo{}, fmt.Errorf("failed to get node %s: %w", name, err)
	}
	return nodeInfoFor(node), nil
}

// Cordon sets spec.unschedulable on the target node.
func (c *KubeClient) Cordon(ctx context.Context, name string) error {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get node %s: %w", name, err)
	}
	if node.Spec.Unschedulable {
		return nil // already cordoned
	}
	node.Spec.Unschedulable = true
	if _, err := c.clientset.CoreV1().Nodes().Update(ctx, node, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to cordon node %s: %w", name, err)
	}
	return nil
}

// Uncordon clears spec.unschedulable and waits until the API server
// reflects the node as schedulable.
func (c *KubeClient) Uncordon(ctx context.Context, name string, timeout time.Duration) error {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get node %s: %w", name, err)
	}
	if node.Spec.Unschedulable {
		node.Spec.Unschedulable = false
		if _, err := c.clientset.CoreV1().Nodes().Update(ctx, node, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("failed to uncordon node %s: %w", name, err)
		}
	}

	err = wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		current, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		return !current.Spec.Unschedulable, nil
	})
	if err != nil {
		return fmt.Errorf("node %s still unschedulable: %w", name, err)
	}
	return nil
}

// EvictWorkloads evicts every evictable pod from the node and waits until
// none remain. The returned count is the number of pods that were
// evictable before any eviction was issued.
func (c *KubeClient) EvictWorkloads(ctx context.Context, name string, timeout time.Duration) (int, error) {
	logger := klog.FromContext(ctx)

	pods, err := c.listEvictablePods(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(pods) == 0 {
		return 0, nil
	}

	for _, pod := range pods {
		eviction := &policyv1.Eviction{
			ObjectMeta: metav1.ObjectMeta{
				Name:      pod.Name,
				Namespace: pod.Namespace,
			},
		}
		if err := c.clientset.PolicyV1().Evictions(pod.Namespace).Evict(ctx, eviction); err != nil {
			// Disruption-budget conflicts clear on their own; the caller
			// retries the whole drain attempt.
			return len(pods), fmt.Errorf("failed to evict pod %s/%s: %w", pod.Namespace, pod.Name, err)
		}
		logger.V(3).Info("Pod evicted", "pod", pod.Namespace+"/"+pod.Name, "node", name)
	}

	err = wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		remaining, err := c.listEvictablePods(ctx, name)
		if err != nil {
			return false, nil
		}
		if len(remaining) > 0 {
			logger.V(3).Info("Waiting for pods to terminate", "node", name, "remaining", len(remaining))
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return len(pods), fmt.Errorf("pods still terminating on node %s: %w", name, err)
	}
	return len(pods), nil
}

// ExecPrivileged runs a command in the node's host namespace through a
// privileged debug pod and waits for it to finish.
func (c *KubeClient) ExecPrivileged(ctx context.Context, name, command string, timeout time.Duration) error {
	pod := debugPod(name, command)

	created, err := c.clientset.CoreV1().Pods(c.debugNamespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create debug pod on node %s: %w", name, err)
	}
	defer func() {
		// Best effort; a leaked pod is harmless and visible.
		_ = c.clientset.CoreV1().Pods(c.debugNamespace).Delete(context.Background(), created.Name, metav1.DeleteOptions{})
	}()

	var phase corev1.PodPhase
	err = wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		current, err := c.clientset.CoreV1().Pods(c.debugNamespace).Get(ctx, created.Name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		phase = current.Status.Phase
		return phase == corev1.PodSucceeded || phase == corev1.PodFailed, nil
	})
	if err != nil {
		return fmt.Errorf("debug command on node %s did not finish: %w", name, err)
	}
	if phase == corev1.PodFailed {
		return fmt.Errorf("debug command on node %s failed", name)
	}
	return nil
}

// listEvictablePods returns all pods on the node that should be evicted.
// It excludes mirror pods (owned by the kubelet), DaemonSet pods, pods
// that are already terminating, and pods in a final phase.
func (c *KubeClient) listEvictablePods(ctx context.Context, name string) ([]corev1.Pod, error) {
	podList, err := c.clientset.CoreV1().Pods("").List(ctx, metav1.ListOptions{
		FieldSelector: fields.SelectorFromSet(fields.Set{
			"spec.nodeName": name,
		}).String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods on node %s: %w", name, err)
	}

	var evictable []corev1.Pod
	for _, pod := range podList.Items {
		if _, isMirror := pod.Annotations[corev1.MirrorPodAnnotationKey]; isMirror {
			continue
		}
		if ownedByDaemonSet(&pod) {
			continue
		}
		if pod.DeletionTimestamp != nil {
			continue
		}
		if pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed {
			continue
		}
		evictable = append(evictable, pod)
	}
	return evictable, nil
}

func ownedByDaemonSet(pod *corev1.Pod) bool {
	for _, ref := range pod.OwnerReferences {
		if ref.Kind == "DaemonSet" {
			return true
		}
	}
	return false
}

// nodeInfoFor derives the role and readiness view of a node.
func nodeInfoFor(node *corev1.Node) NodeInfo {
	return NodeInfo{
		Name:        node.Name,
		Role:        roleOf(node),
		Ready:       isNodeReady(node),
		Schedulable: !node.Spec.Unschedulable,
	}
}

// roleOf maps node-role labels to a Role. Control-plane and master labels
// both count as master; any other node-role label counts as custom.
func roleOf(node *corev1.Node) Role {
	if _, ok := node.Labels[labelPrefix+"master"]; ok {
		return RoleMaster
	}
	if _, ok := node.Labels[labelControlPlane]; ok {
		return RoleMaster
	}
	if _, ok := node.Labels[labelPrefix+"infra"]; ok {
		return RoleInfra
	}
	if _, ok := node.Labels[labelPrefix+"worker"]; ok {
		return RoleWorker
	}
	return RoleCustom
}

// isNodeReady checks the node's Ready condition.
func isNodeReady(node *corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}

// debugPod builds the privileged pod that runs a command against the
// node's host filesystem.
func debugPod(node, command string) *corev1.Pod {
	privileged := true
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: "noderoll-debug-",
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "noderoll",
			},
		},
		Spec: corev1.PodSpec{
			NodeName:      node,
			HostPID:       true,
			RestartPolicy: corev1.RestartPolicyNever,
			Tolerations: []corev1.Toleration{
				{Operator: corev1.TolerationOpExists},
			},
			Containers: []corev1.Container{
				{
					Name:    "debug",
					Image:   debugImage,
					Command: []string{"chroot", "/host", "/bin/sh", "-c", command},
					SecurityContext: &corev1.SecurityContext{
						Privileged: &privileged,
					},
					VolumeMounts: []corev1.VolumeMount{
						{Name: "host", MountPath: "/host"},
					},
				},
			},
			Volumes: []corev1.Volume{
				{
					Name: "host",
					VolumeSource: corev1.VolumeSource{
						HostPath: &corev1.HostPathVolumeSource{Path: "/"},
					},
				},
			},
		},
	}
}
