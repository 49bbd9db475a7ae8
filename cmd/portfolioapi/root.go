package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/config"
)

var (
	logLevel   string
	configPath string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "portfolioapi",
	Short: "Portfolio Analytics API",
	Long: `Serves portfolios and asset price histories over HTTP. Every record
route requires a bearer token issued by the configured trust authority.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		cfg = loaded
		initLogger(cfg.LogLevel)
		return nil
	},
}

// Execute runs the root command
func Execute(ctx context.Context) {
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set the log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional config file layered under the environment")
}

func initLogger(level string) {
	if strings.ToLower(level) == "debug" {
		zap.ReplaceGlobals(zap.Must(zap.NewDevelopment()))
		return
	}
	zapCfg := zap.NewProductionConfig()
	// remove the "caller" key from the log output
	zapCfg.EncoderConfig.CallerKey = zapcore.OmitKey
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	zap.ReplaceGlobals(zap.Must(zapCfg.Build()))
}
