package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"desaweb/models"
	"desaweb/pkg/config"
	"desaweb/pkg/logger"
	"desaweb/pkg/ocr"
	"desaweb/pkg/recordstore"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// newRootCommand builds the desaweb CLI. Without a subcommand it serves.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "desaweb",
		Short:         "Website desa: berita dan direktori UMKM",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newCreateAdminCommand(),
		newResetPasswordCommand(),
		newPruneTokensCommand(),
		newHashPasswordCommand(),
		newSeedDemoCommand(),
		newSyncMirrorCommand(),
		newVerifyKTPCommand(),
	)
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	if cfg.JWTSecret == config.DevJWTSecret {
		logger.Log.Warn("JWT_SECRET is not set; using the development secret")
	}
	return cfg, nil
}

// withApp loads the configuration, connects the backends and runs fn.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(a *app) error {
		if a.cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		r := gin.New()
		r.Use(gin.Recovery())
		a.setupRoutes(r)
		a.run(ctx)

		srv := &http.Server{
			Addr:         a.cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  a.cfg.ReadTimeout,
			WriteTimeout: 0, // event streams stay open
		}
		errc := make(chan error, 1)
		go func() {
			logger.WithField("addr", srv.Addr).Info("server listening")
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		logger.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.WriteTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the record store tables and seed roles and the default admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.HasRecordStore() {
				return fmt.Errorf("DB_DSN not set in environment")
			}
			store, err := openRecordStore(cfg.DBDSN, true)
			if err != nil {
				return err
			}
			defer store.Close()
			return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "migration and seeding completed"})
		},
	}
}

func newCreateAdminCommand() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "create-admin <username> <password>",
		Short: "Create an admin panel account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecordStore(func(store *recordstore.Gorm) error {
				err := createUser(store.DB(), args[0], args[1], role)
				if errors.Is(err, errUserExists) {
					return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "exists", "username": args[0]})
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "created", "username": args[0], "role": role})
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", models.RoleAdministrator, "account role (administrator|editor)")
	return cmd
}

// withRecordStore opens the record store for the account commands.
func withRecordStore(fn func(store *recordstore.Gorm) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.HasRecordStore() {
		return fmt.Errorf("DB_DSN not set in environment")
	}
	store, err := openRecordStore(cfg.DBDSN, cfg.DBAutoMigrate)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newResetPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username> <password>",
		Short: "Set a new password and sign the account out everywhere",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecordStore(func(store *recordstore.Gorm) error {
				if err := resetPassword(store.DB(), args[0], args[1]); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "password reset", "username": args[0]})
			})
		},
	}
}

func newPruneTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune-tokens",
		Short: "Delete revoked and expired refresh tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecordStore(func(store *recordstore.Gorm) error {
				n, err := pruneTokens(store.DB(), time.Now())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]int64{"deleted": n})
			})
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(h))
			return err
		},
	}
}

func newSeedDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Fill empty collections with demo berita and UMKM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				rep, err := seedDemo(cmd.Context(), a.svc)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
}

func newSyncMirrorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-mirror",
		Short: "Push records that only exist in the local mirror to the record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				rep, err := a.svc.PushLocal(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
}

func newVerifyKTPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-ktp <image> <nik>",
		Short: "Read the NIK from an id card photo and compare it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			check := ocr.Verify(args[0], args[1])
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"check":    check,
				"duration": time.Since(start).String(),
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
