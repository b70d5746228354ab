package k8s

import (
	"context"
	"fmt"

	authv1 "k8s.io/api/authentication/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ValidateToken validates a service account token using the TokenReview API
func (c *Client) ValidateToken(ctx context.Context, tokenReview *authv1.TokenReview) (*authv1.TokenReview, error) {
	result, err := c.clientset.AuthenticationV1().TokenReviews().Create(ctx, tokenReview, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create TokenReview: %w", err)
	}
	return result, nil
}
