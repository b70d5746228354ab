package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nauticalab/pveconf/internal/api"
	"github.com/nauticalab/pveconf/internal/auth"
	"github.com/nauticalab/pveconf/internal/k8s"
)

var (
	serveListen           string
	serveRateLimit        int
	serveCloudInit        string
	serveEnableConfigMaps bool
	serveAuth             bool
	serveAuthAudience     string
	serveAuthNamespaces   []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the parse, convert, validate and render operations over HTTP.

Endpoints:
  GET  /api/v1/health
  GET  /api/v1/version
  POST /api/v1/parse
  POST /api/v1/convert?to=config|cli|map
  POST /api/v1/validate
  POST /api/v1/render

With --enable-configmaps, requests may name a ConfigMap instead of sending
the config inline. With --auth, the POST endpoints require a Kubernetes
service account token ("Authorization: Bearer <token>") validated through
the TokenReview API.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var client *k8s.Client
		if serveEnableConfigMaps || serveAuth {
			c, err := k8s.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create Kubernetes client: %w", err)
			}
			client = c
		}

		var k8sClient *k8s.Client
		if serveEnableConfigMaps {
			k8sClient = client
		}

		providers := map[string]auth.AuthProvider{}
		if serveAuth {
			provider := auth.NewK8sSAProvider(client, serveAuthAudience, serveAuthNamespaces)
			providers[provider.Type()] = provider
			logger.Info("authentication enabled", "provider", provider.Name(), "namespaces", serveAuthNamespaces)
		}

		server, err := api.NewServer(api.ServerConfig{
			Addr:      stringFlag(cmd, "listen", serveListen, cliConfig.Listen),
			Logger:    logger,
			K8sClient: k8sClient,
			CloudInit: stringFlag(cmd, "cloud-init", serveCloudInit, cliConfig.CloudInit),
			RateLimit: serveRateLimit,
			Version:   version,
			GitCommit: gitCommit,
			BuildTime: buildTime,
			GoVersion: runtime.Version(),

			AuthProviders: providers,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.StartWithContext(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default :8080)")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", api.DefaultRateLimit, "Requests per minute per client IP")
	serveCmd.Flags().StringVar(&serveCloudInit, "cloud-init", "", "Default cloud-init storage for validation")
	serveCmd.Flags().BoolVar(&serveEnableConfigMaps, "enable-configmaps", false, "Allow reading configs from Kubernetes ConfigMaps")
	serveCmd.Flags().BoolVar(&serveAuth, "auth", false, "Require Kubernetes service account tokens on POST endpoints")
	serveCmd.Flags().StringVar(&serveAuthAudience, "auth-audience", auth.DefaultAudience, "Expected token audience")
	serveCmd.Flags().StringSliceVar(&serveAuthNamespaces, "auth-namespace", nil, "Only accept service accounts from these namespaces (repeatable)")
}
