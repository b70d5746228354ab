package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authv1 "k8s.io/api/authentication/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/nauticalab/pveconf/internal/k8s"
)

// reviewerFor returns a client whose TokenReviews answer with status for the
// token "good" and reject everything else.
func reviewerFor(t *testing.T, status authv1.TokenReviewStatus) *k8s.Client {
	t.Helper()
	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("create", "tokenreviews", func(action k8stesting.Action) (bool, runtime.Object, error) {
		review := action.(k8stesting.CreateAction).GetObject().(*authv1.TokenReview)
		out := review.DeepCopy()
		if review.Spec.Token == "good" {
			out.Status = status
		}
		return true, out, nil
	})
	return k8s.NewClientWithInterface(clientset)
}

func serviceAccountStatus(username string, audiences ...string) authv1.TokenReviewStatus {
	return authv1.TokenReviewStatus{
		Authenticated: true,
		Audiences:     audiences,
		User:          authv1.UserInfo{Username: username, UID: "uid-1"},
	}
}

func TestK8sSAProvider_Authenticate(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		p := NewK8sSAProvider(reviewerFor(t, serviceAccountStatus("system:serviceaccount:infra:provisioner", "pveconf")), "", nil)

		identity, err := p.Authenticate(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, TypeK8sSA, identity.Type)
		assert.Equal(t, "provisioner", identity.ServiceAccount)
		assert.Equal(t, "infra", identity.Namespace)
		assert.Equal(t, "uid-1", identity.Attributes["uid"])
		assert.Equal(t, "k8s-sa:system:serviceaccount:infra:provisioner", identity.String())
	})

	t.Run("rejected token", func(t *testing.T) {
		p := NewK8sSAProvider(reviewerFor(t, serviceAccountStatus("system:serviceaccount:infra:provisioner")), "", nil)

		_, err := p.Authenticate(context.Background(), "bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token not authenticated")
	})

	t.Run("empty token", func(t *testing.T) {
		p := NewK8sSAProvider(reviewerFor(t, authv1.TokenReviewStatus{}), "", nil)

		_, err := p.Authenticate(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty token")
	})

	t.Run("audience mismatch", func(t *testing.T) {
		p := NewK8sSAProvider(reviewerFor(t, serviceAccountStatus("system:serviceaccount:infra:provisioner", "other")), "pveconf", nil)

		_, err := p.Authenticate(context.Background(), "good")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "audience mismatch")
	})

	t.Run("not a service account", func(t *testing.T) {
		p := NewK8sSAProvider(reviewerFor(t, serviceAccountStatus("alice@example.com")), "", nil)

		_, err := p.Authenticate(context.Background(), "good")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse service account")
	})

	t.Run("namespace allowlist", func(t *testing.T) {
		reviewer := reviewerFor(t, serviceAccountStatus("system:serviceaccount:default:builder"))

		_, err := NewK8sSAProvider(reviewer, "", []string{"infra"}).Authenticate(context.Background(), "good")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `namespace "default" is not allowed`)

		identity, err := NewK8sSAProvider(reviewer, "", []string{"infra", "default"}).Authenticate(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, "builder", identity.ServiceAccount)
	})

	t.Run("review fails", func(t *testing.T) {
		clientset := fake.NewSimpleClientset()
		clientset.PrependReactor("create", "tokenreviews", func(action k8stesting.Action) (bool, runtime.Object, error) {
			return true, nil, errors.New("apiserver unavailable")
		})
		p := NewK8sSAProvider(k8s.NewClientWithInterface(clientset), "", nil)

		_, err := p.Authenticate(context.Background(), "good")
		require.Error(t, err)
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "token validation failed", authErr.Reason)
		assert.Contains(t, err.Error(), "apiserver unavailable")
	})
}

func TestParseServiceAccountUsername(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		wantSAName    string
		wantNamespace string
		wantErr       bool
	}{
		{
			name:          "valid service account",
			username:      "system:serviceaccount:infra:provisioner",
			wantSAName:    "provisioner",
			wantNamespace: "infra",
		},
		{
			name:          "service account with hyphen",
			username:      "system:serviceaccount:infra:pve-provisioner",
			wantSAName:    "pve-provisioner",
			wantNamespace: "infra",
		},
		{
			name:     "non-service account",
			username: "user@example.com",
			wantErr:  true,
		},
		{
			name:     "malformed - missing parts",
			username: "system:serviceaccount:infra",
			wantErr:  true,
		},
		{
			name:     "empty name",
			username: "system:serviceaccount:infra:",
			wantErr:  true,
		},
		{
			name:     "empty username",
			username: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saName, namespace, err := parseServiceAccountUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSAName, saName)
			assert.Equal(t, tt.wantNamespace, namespace)
		})
	}
}
