// -- cmd/launch.go --
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/config"
	"github.com/xkilldash9x/metaxg-cli/internal/observability"
	"github.com/xkilldash9x/metaxg-cli/internal/updater"
)

// newLaunchCmd creates the `launch` command: update the installed binary if a
// newer release exists, then run it forwarding any extra arguments. The
// process exits with the child's exit code.
func newLaunchCmd() *cobra.Command {
	launchCmd := &cobra.Command{
		Use:   "launch [-- child args...]",
		Short: "Self-updates the installed binary and launches it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			var updaterCfg config.UpdaterConfig
			if err := viper.UnmarshalKey("updater", &updaterCfg); err != nil {
				return fmt.Errorf("failed to unmarshal updater config: %w", err)
			}
			if updaterCfg.InstallDir == "" {
				return fmt.Errorf("updater.install_dir is a required configuration field")
			}

			u := updater.New(updaterCfg, logger)

			status, version := u.UpdateIfNewer(ctx)
			logger.Info("Update check finished",
				zap.String("status", string(status)),
				zap.String("version", version))

			code, err := u.RunApp(ctx, args)
			if err != nil {
				return err
			}
			if code != 0 {
				logger.Warn("Child exited with non-zero code", zap.Int("code", code))
				os.Exit(code)
			}
			return nil
		},
	}
	return launchCmd
}
