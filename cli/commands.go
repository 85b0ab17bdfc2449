package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adonese/folio/cms_fields"
	"github.com/spf13/cobra"
)

// newRootCmd returns the folio command tree. Running folio without a subcommand serves.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "folio",
		Short:         "folio - a portfolio and blog backend",
		Long:          `folio serves a public blog and portfolio API with a contact form, page-view analytics and an admin API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(migrateCmd(&configPath))
	root.AddCommand(userCmd(&configPath))
	root.AddCommand(renderConfigCmd(&configPath))
	root.AddCommand(versionCmd())
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	configureLogger(cfg)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	initOTel(ctx, cfg, logrusLogger)
	defer shutdownOTel()

	srv, err := newServer(ctx, cfg, logrusLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logrusLogger.WithError(err).Warn("close resources")
		}
	}()
	return srv.serve(ctx, srv.GetMainEngine())
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, _, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func userCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard users",
	}
	cmd.AddCommand(userCreateCmd(configPath))
	return cmd
}

func userCreateCmd(configPath *string) *cobra.Command {
	var req cms_fields.UserRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a dashboard user",
		Long: `Create a dashboard user. The first account of a fresh install is made this way.

Examples:
  folio user create --email=me@example.com --name="Me" --password='S3cret!pass'
  folio user create --email=ed@example.com --name="Ed" --role=editor --password='S3cret!pass'
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := createUser(cmd.Context(), st, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (id %d)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&req.Role, "role", cms_fields.RoleAdmin, "admin or editor")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (required)")
	for _, name := range []string{"email", "name", "password"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			logrusLogger.Printf("Error marking flag as required: %v", err)
		}
	}
	return cmd
}

func renderConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "render-config",
		Short: "Write .db_path and litestream.yml next to config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := renderConfigFiles(*configPath); err != nil {
				return fmt.Errorf("render config failed: %w", err)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the folio version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
