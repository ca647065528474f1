// blogkit is the automation CLI for the blog: it syncs Flomo memos into
// Hugo posts, serves the built site locally, validates content files, and
// runs the Giscus comment-widget diagnostic.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	blog "github.com/ddnio/ddnio.github.io"
	"github.com/ddnio/ddnio.github.io/diagnose"
	"github.com/ddnio/ddnio.github.io/flomo"
	"github.com/ddnio/ddnio.github.io/preview"
)

const version = "0.3.0"

var (
	configPath string
	debug      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "blogkit",
	Short:         "Automation toolchain for the ddnio blog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if debug {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync tagged Flomo memos into content/posts",
	RunE:  runSync,
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve the built site locally",
	RunE:  runPreview,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate front matter and Markdown of all posts",
	RunE:  runCheck,
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Record why the Giscus comment widget fails to load on a page",
	RunE:  runDiagnose,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the blogkit version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("blogkit " + version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", blog.DefaultConfigFile, "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	diagnoseCmd.Flags().String("url", "", "page to diagnose (overrides the config)")
	diagnoseCmd.Flags().Bool("headful", false, "show the browser window")

	rootCmd.AddCommand(syncCmd, previewCmd, checkCmd, diagnoseCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "blogkit:", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := blog.LoadConfig(configPath)
	if err != nil {
		return err
	}
	token, err := blog.FlomoToken()
	if err != nil {
		return err
	}
	api, err := flomo.NewClient(token, flomo.WithLogger(logger))
	if err != nil {
		return err
	}

	var uploader blog.ImageUploader
	if id, secret, err := blog.OSSCredentials(); err == nil {
		if err := cfg.ValidateOSS(); err != nil {
			return err
		}
		ossUploader, err := blog.NewOSSUploader(cfg.OSS, id, secret, logger)
		if err != nil {
			return err
		}
		uploader = ossUploader
	} else {
		logger.Warn("OSS credentials not set, images keep their Flomo URLs")
	}

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := blog.NewSyncer(cfg, api, uploader, logger).Sync(ctx)
	if err != nil {
		return err
	}
	logger.Info("sync finished",
		zap.Int("total", stats.Total),
		zap.Int("new", stats.New),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed),
	)
	if stats.Failed > 0 {
		return fmt.Errorf("sync: %d memos failed", stats.Failed)
	}
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := blog.LoadConfig(configPath)
	if err != nil {
		return err
	}
	srv, err := preview.New(cfg.Preview, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := blog.LoadConfig(configPath)
	if err != nil {
		return err
	}
	problems, err := blog.CheckPosts(cfg.Sync.PostsDir, logger)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Println(p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("check: %d problems in %s", len(problems), cfg.Sync.PostsDir)
	}
	logger.Info("content is clean", zap.String("dir", cfg.Sync.PostsDir))
	return nil
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, err := blog.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		cfg.Diagnose.URL = url
	}
	if headful, _ := cmd.Flags().GetBool("headful"); headful {
		cfg.Diagnose.Headful = true
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := diagnose.Run(ctx, cfg.Diagnose, logger)
	if err != nil {
		return err
	}
	fmt.Print(report.Summary())
	return nil
}
