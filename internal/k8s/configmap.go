package k8s

import (
	"context"
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/sets"
)

// ConfigMapRef points at one data key of a ConfigMap.
type ConfigMapRef struct {
	Namespace string
	Name      string
	// Key may be empty when the ConfigMap holds a single entry
	Key string
}

// ParseConfigMapRef parses "[namespace/]name[:key]". The namespace defaults
// to "default".
func ParseConfigMapRef(ref string) (ConfigMapRef, error) {
	var out ConfigMapRef

	rest := ref
	if ns, name, ok := strings.Cut(rest, "/"); ok {
		out.Namespace = ns
		rest = name
	} else {
		out.Namespace = "default"
	}
	out.Name, out.Key, _ = strings.Cut(rest, ":")

	if out.Namespace == "" || out.Name == "" || strings.Contains(out.Name, "/") {
		return ConfigMapRef{}, fmt.Errorf("invalid ConfigMap reference %q: expected [namespace/]name[:key]", ref)
	}
	return out, nil
}

func (r ConfigMapRef) String() string {
	s := r.Namespace + "/" + r.Name
	if r.Key != "" {
		s += ":" + r.Key
	}
	return s
}

// GetConfigText returns the config text stored under ref.Key. Without a key
// the ConfigMap must have exactly one data entry.
func (c *Client) GetConfigText(ctx context.Context, ref ConfigMapRef) (string, error) {
	cm, err := c.clientset.CoreV1().ConfigMaps(ref.Namespace).Get(ctx, ref.Name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get configmap %s/%s: %w", ref.Namespace, ref.Name, err)
	}

	if ref.Key != "" {
		text, ok := cm.Data[ref.Key]
		if !ok {
			return "", fmt.Errorf("configmap %s/%s has no key %q (keys: %s)",
				ref.Namespace, ref.Name, ref.Key, strings.Join(sortedKeys(cm.Data), ", "))
		}
		return text, nil
	}

	switch len(cm.Data) {
	case 0:
		return "", fmt.Errorf("configmap %s/%s has no data", ref.Namespace, ref.Name)
	case 1:
		for _, text := range cm.Data {
			return text, nil
		}
	}
	return "", fmt.Errorf("configmap %s/%s has several keys, pick one of: %s",
		ref.Namespace, ref.Name, strings.Join(sortedKeys(cm.Data), ", "))
}

func sortedKeys(data map[string]string) []string {
	return sets.List(sets.KeySet(data))
}
