package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/client"
	"github.com/spec-kit/user-directory/internal/server"
)

func newExportCmd() *cobra.Command {
	var (
		out    string
		remote bool
	)
	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Write every user as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if out == "" {
				// stdout carries the CSV document
				cfg.Logger.Output = "stderr"
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if remote {
				api := client.NewFromEnv()
				data, err := api.ExportCSV(cmd.Context())
				if err != nil {
					return fmt.Errorf("download from %s: %w", api.BaseURL, err)
				}
				if _, err := w.Write(data); err != nil {
					return err
				}
				logger.Info("users downloaded", zap.String("backend", api.BaseURL), zap.Int("bytes", len(data)), zap.String("out", out))
				return nil
			}

			srv, err := server.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer srv.Close()

			rows, err := srv.Users.ExportAllUsersCSV(cmd.Context(), w)
			if err != nil {
				return err
			}
			logger.Info("users exported", zap.Int("rows", rows), zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&remote, "remote", false, "download from the running service at USERDIR_BACKEND_URL")
	return cmd
}
