package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/reviewflow/internal/cache"
	cachemem "github.com/dropDatabas3/reviewflow/internal/cache/memory"
	cacheredis "github.com/dropDatabas3/reviewflow/internal/cache/redis"
	"github.com/dropDatabas3/reviewflow/internal/config"
	"github.com/dropDatabas3/reviewflow/internal/email"
	httpx "github.com/dropDatabas3/reviewflow/internal/http"
	"github.com/dropDatabas3/reviewflow/internal/metrics"
	"github.com/dropDatabas3/reviewflow/internal/oauth"
	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/provider/facebook"
	"github.com/dropDatabas3/reviewflow/internal/provider/google"
	"github.com/dropDatabas3/reviewflow/internal/provider/instagram"
	"github.com/dropDatabas3/reviewflow/internal/provider/linkedin"
	"github.com/dropDatabas3/reviewflow/internal/reports"
	"github.com/dropDatabas3/reviewflow/internal/security/secretbox"
	"github.com/dropDatabas3/reviewflow/internal/store"
	storemem "github.com/dropDatabas3/reviewflow/internal/store/memory"
	"github.com/dropDatabas3/reviewflow/internal/store/pg"
	migrations "github.com/dropDatabas3/reviewflow/migrations/postgres"
)

func main() {
	// .env es opcional; en prod las variables vienen del entorno real
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "reviewflow",
		Short: "Backend de Reviewflow: conexiones OAuth y reportes programados",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path al config YAML")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newDispatchCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newScheduleCmd(&configPath))
	root.AddCommand(newTokenCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// stores agrupa las implementaciones elegidas por config.
type stores struct {
	credentials store.CredentialStore
	reports     store.ReportStore
	members     store.MemberDirectory
	check       func(ctx context.Context) error
	close       func()
}

func buildStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "postgres":
		var box *secretbox.Box
		if cfg.Tokens.MasterKey != "" {
			b, err := secretbox.FromBase64(cfg.Tokens.MasterKey)
			if err != nil {
				return nil, fmt.Errorf("TOKEN_MASTER_KEY inválida: %w", err)
			}
			box = b
		}
		st, err := pg.Connect(ctx, cfg.Storage.DSN, box)
		if err != nil {
			return nil, err
		}
		return &stores{
			credentials: st,
			reports:     st,
			members:     st,
			check:       st.Pool().Ping,
			close:       st.Close,
		}, nil
	case "memory", "":
		st := storemem.New()
		return &stores{
			credentials: st,
			reports:     st,
			members:     st,
			close:       func() {},
		}, nil
	default:
		return nil, fmt.Errorf("storage driver desconocido: %q", cfg.Storage.Driver)
	}
}

func buildCache(cfg *config.Config) cache.Cache {
	switch strings.ToLower(cfg.Cache.Kind) {
	case "redis":
		return cacheredis.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB)
	case "none":
		return nil
	default:
		return cachemem.New(cfg.MemoryCacheTTL())
	}
}

func smtpSender(cfg *config.Config) email.Sender {
	return email.FromConfig(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromEmail: cfg.SMTP.FromEmail,
		TLSMode:   cfg.SMTP.TLSMode,
	})
}

func buildRegistry(cfg *config.Config) *provider.Registry {
	reg := provider.NewRegistry(cfg, nil)
	reg.Register(provider.Google, google.Factory)
	reg.Register(provider.Facebook, facebook.Factory)
	reg.Register(provider.Instagram, instagram.Factory)
	reg.Register(provider.LinkedIn, linkedin.Factory)
	return reg
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levantar la API HTTP y el loop de reportes programados",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "reviewflow"})
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("falta JWT_SECRET")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sts, err := buildStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer sts.close()

			stateCache := buildCache(cfg)
			registry := buildRegistry(cfg)
			metrics.Register(nil)

			handler := httpx.BuildHandler(httpx.Deps{
				Start: oauth.NewStartService(oauth.StartDeps{
					Registry:   registry,
					Resolver:   cfg,
					StateCache: stateCache,
					StateTTL:   cfg.StateTTL(),
				}),
				Callback: oauth.NewCallbackService(oauth.CallbackDeps{
					Registry:    registry,
					Resolver:    cfg,
					Credentials: sts.credentials,
				}),
				Credentials:        sts.credentials,
				StateCache:         stateCache,
				JWTSecret:          []byte(cfg.Auth.JWTSecret),
				CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
				CheckStore:         sts.check,
			})

			dispatcher := reports.New(reports.Deps{
				Reports:     sts.reports,
				Members:     sts.members,
				Sender:      smtpSender(cfg),
				Concurrency: cfg.Reports.Concurrency,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("http server listening", logger.String("addr", cfg.Server.Addr))
				return httpx.Start(cfg.Server.Addr, handler)
			})
			if cfg.SMTP.Host != "" {
				g.Go(func() error {
					return dispatcher.RunLoop(logger.ToContext(gctx, log), cfg.ReportInterval())
				})
			} else {
				log.Warn("SMTP_HOST vacío: loop de reportes deshabilitado")
			}
			return g.Wait()
		},
	}
}

func newDispatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Correr un ciclo de despacho de reportes y salir",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "reviewflow"})
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			sts, err := buildStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer sts.close()
			metrics.Register(nil)

			dispatcher := reports.New(reports.Deps{
				Reports:     sts.reports,
				Members:     sts.members,
				Sender:      smtpSender(cfg),
				Concurrency: cfg.Reports.Concurrency,
			})

			out, err := dispatcher.RunCycle(logger.ToContext(ctx, logger.L()))
			if err != nil {
				return err
			}
			fmt.Printf("due=%d succeeded=%d failed=%d skipped=%d\n", out.Due, out.Succeeded, out.Failed, out.Skipped)
			return nil
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Aplicar las migraciones embebidas de PostgreSQL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			action := "up"
			if len(args) == 1 {
				action = strings.ToLower(args[0])
			}
			if action != "up" && action != "down" {
				return fmt.Errorf("acción desconocida: %q (up|down)", action)
			}

			ctx := cmd.Context()
			st, err := pg.Connect(ctx, cfg.Storage.DSN, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := migrations.FS.ReadDir(".")
			if err != nil {
				return err
			}
			var files []string
			for _, e := range entries {
				if strings.HasSuffix(e.Name(), "_"+action+".sql") {
					files = append(files, e.Name())
				}
			}
			sort.Strings(files)
			if action == "down" {
				// Revertir en orden inverso
				for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
					files[i], files[j] = files[j], files[i]
				}
			}

			for _, f := range files {
				sql, err := migrations.FS.ReadFile(f)
				if err != nil {
					return err
				}
				if _, err := st.Pool().Exec(ctx, string(sql)); err != nil {
					return fmt.Errorf("exec %s: %w", f, err)
				}
				fmt.Printf("applied %s\n", f)
			}
			return nil
		},
	}
}

func newScheduleCmd(configPath *string) *cobra.Command {
	var (
		tenantID  string
		name      string
		frequency string
		days      int
		emails    []string
		roles     []string
		userIDs   []string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Crear o actualizar un reporte programado",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant es requerido")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sts, err := buildStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer sts.close()

			now := time.Now().UTC()
			sch := store.ReportSchedule{
				ID:         uuid.NewString(),
				TenantID:   tenantID,
				Name:       name,
				Frequency:  store.Frequency(frequency),
				CustomDays: days,
				NextRunAt:  &now, // due en el próximo ciclo
				Enabled:    true,
				Emails:     emails,
				Roles:      roles,
				UserIDs:    userIDs,
			}
			if err := sts.reports.UpsertSchedule(ctx, sch); err != nil {
				return err
			}
			fmt.Printf("schedule %s created\n", sch.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "ID del tenant dueño del reporte")
	cmd.Flags().StringVar(&name, "name", "Review report", "Nombre del reporte")
	cmd.Flags().StringVar(&frequency, "frequency", "weekly", "daily|weekly|monthly|quarterly|custom")
	cmd.Flags().IntVar(&days, "days", 0, "Intervalo en días (solo frequency=custom)")
	cmd.Flags().StringSliceVar(&emails, "email", nil, "Email destinatario (repetible)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Rol destinatario (repetible)")
	cmd.Flags().StringSliceVar(&userIDs, "user", nil, "User ID destinatario (repetible)")
	return cmd
}

// newTokenCmd obtiene un access token vigente para una conexión, refrescando
// si hace falta. Es la herramienta de diagnóstico de conexiones: el mismo
// camino que usan los consumidores internos de tokens.
func newTokenCmd(configPath *string) *cobra.Command {
	var (
		tenantID string
		platform string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Imprimir un access token vigente para una conexión",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant es requerido")
			}
			p, err := provider.Parse(platform)
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "reviewflow"})
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			sts, err := buildStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer sts.close()

			svc := oauth.NewTokenService(oauth.TokenDeps{
				Registry:    buildRegistry(cfg),
				Credentials: sts.credentials,
			})
			tok, err := svc.ValidAccessToken(logger.ToContext(ctx, logger.L()), tenantID, p)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "ID del tenant")
	cmd.Flags().StringVar(&platform, "platform", "", "google|facebook|instagram|linkedin")
	return cmd
}
