package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/config"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/httpapi"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/otel"
	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		dev        bool
		apiKey     string
		dbDriver   string
		dbURL      string
		envFile    string
		enableOtel bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := loadEnvFile(envFile); err != nil {
					return err
				}
			}
			home := config.MustHomeFrom(cmd.Context())
			cfg, err := config.LoadServerConfig(home)
			if err != nil {
				return err
			}

			if addr != "" {
				cfg.Addr = addr
			}
			if apiKey != "" {
				cfg.APIKey = apiKey
			}
			if dbDriver != "" {
				cfg.Store = dbDriver
			}
			if dbURL != "" {
				cfg.PostgresDSN = dbURL
			}
			if k := os.Getenv("TANMIWS_API_KEY"); cfg.APIKey == "" && k != "" {
				cfg.APIKey = k
			}

			opts := httpapi.ServerOptions{
				Home:                  home,
				Addr:                  cfg.Addr,
				Dev:                   dev,
				APIKey:                cfg.APIKey,
				DBDriver:              cfg.Store,
				DBURL:                 cfg.PostgresDSN,
				MaxBodyBytes:          cfg.MaxBodyBytes,
				AllowSystemRuleBypass: cfg.AllowSystemRuleBypass,
				WebhookURL:            cfg.WebhookURL,
			}

			ctx := cmd.Context()
			if enableOtel {
				mh, err := otel.InitMeterProvider(ctx, "tanmiws")
				if err != nil {
					return fmt.Errorf("init metrics: %w", err)
				}
				opts.MetricsHandler = mh
				opts.UseOtelHTTP = true
			}

			app, err := httpapi.NewApp(opts)
			if err != nil {
				return err
			}

			if enableOtel {
				countFn := func() (active, archived, errored int64) {
					infos, err := app.Engine.ListWorkspaces(context.Background())
					if err != nil {
						return 0, 0, 0
					}
					for _, info := range infos {
						switch info.Status {
						case models.WorkspaceActive:
							active++
						case models.WorkspaceArchived:
							archived++
						case models.WorkspaceError:
							errored++
						}
					}
					return active, archived, errored
				}
				if err := otel.InitMetricsWithWorkspaceCount(ctx, countFn); err != nil {
					return fmt.Errorf("init metrics: %w", err)
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", cfg.Addr)

			errCh := make(chan error, 1)
			go func() { errCh <- app.Server.ListenAndServe() }()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return app.Server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.yaml: 127.0.0.1:7432)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable dev mode (permissive CORS)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Require this API key (or set TANMIWS_API_KEY)")
	cmd.Flags().StringVar(&dbDriver, "db-driver", "", "Store driver: sqlite or postgres")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Postgres connection string (or set DATABASE_URL)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load env vars from file (KEY=VALUE per line) before starting")
	cmd.Flags().BoolVar(&enableOtel, "otel", true, "Enable OpenTelemetry metrics (Prometheus exporter)")

	return cmd
}

func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.Index(line, "=")
		if i <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		if key != "" {
			_ = os.Setenv(key, value)
		}
	}
	return sc.Err()
}
