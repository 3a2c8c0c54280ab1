package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/streamscale/topograph/builder"
	"github.com/streamscale/topograph/graph"
	"github.com/streamscale/topograph/pkg/buildmetrics"
	"github.com/streamscale/topograph/pkg/webapi"
	"github.com/streamscale/topograph/tracker"
)

var rootCmd = &cobra.Command{
	Use:   "topograph",
	Short: "A service that materializes stream topology snapshots in a property graph",

	Run: func(cmd *cobra.Command, args []string) {
		startService()
	},
}

var cfgFile string
var watchCfgFile bool

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "specifies a config file to load")
	rootCmd.Flags().BoolVar(&watchCfgFile, "watch-config", false, "indicates whether to watch the config file for changes")

	configFlags := pflag.NewFlagSet("", pflag.ContinueOnError)
	configFlags.String("log-level", "info", "the log level to run at")
	configFlags.String("tracker-url", "", "the base url of the topology tracker service")
	configFlags.String("graph-host", "", "the base url of the graph store service")
	configFlags.String("bind-address", "0.0.0.0", "the local address to bind to")
	configFlags.Int("web-port", 9091, "the web api/metrics/health port")
	configFlags.String("cluster", "", "the default cluster to resolve topologies in")
	configFlags.String("environ", "", "the default environ to resolve topologies in")
	rootCmd.Flags().AddFlagSet(configFlags)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("tpg")
	viper.AutomaticEnv()

	_ = viper.BindPFlags(configFlags)
}

func getLogger() (zap.AtomicLevel, *zap.Logger) {
	logLevel := zap.NewAtomicLevel()
	logConfig := zap.NewProductionEncoderConfig()
	logConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonEncoder := zapcore.NewJSONEncoder(logConfig)
	core := zapcore.NewTee(
		zapcore.NewCore(jsonEncoder, zapcore.AddSync(os.Stdout), logLevel),
	)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return logLevel, logger
}

type config struct {
	logLevelStr string
	trackerURL  string
	graphHost   string
	bindAddress string
	webPort     int
	cluster     string
	environ     string
}

func readConfig(logger *zap.Logger) *config {
	config := &config{
		logLevelStr: viper.GetString("log-level"),
		trackerURL:  viper.GetString("tracker-url"),
		graphHost:   viper.GetString("graph-host"),
		bindAddress: viper.GetString("bind-address"),
		webPort:     viper.GetInt("web-port"),
		cluster:     viper.GetString("cluster"),
		environ:     viper.GetString("environ"),
	}

	logger.Info("parsed service configuration",
		zap.String("logLevelStr", config.logLevelStr),
		zap.String("trackerURL", config.trackerURL),
		zap.String("graphHost", config.graphHost),
		zap.String("bindAddress", config.bindAddress),
		zap.Int("webPort", config.webPort),
		zap.String("cluster", config.cluster),
		zap.String("environ", config.environ))

	return config
}

func startService() {
	// initialize the logger
	logLevel, logger := getLogger()

	logger.Info("starting topograph")

	logger.Info("parsed launch configuration",
		zap.String("config", cfgFile),
		zap.Bool("watch-config", watchCfgFile))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		err := viper.ReadInConfig()
		if err != nil {
			logger.Panic("failed to load specified config file", zap.Error(err))
		}
	}

	config := readConfig(logger)

	parsedLogLevel, err := zapcore.ParseLevel(config.logLevelStr)
	if err != nil {
		logger.Warn("invalid log level specified, using INFO instead")
		parsedLogLevel = zapcore.InfoLevel
	}
	logLevel.SetLevel(parsedLogLevel)

	// both remote endpoints are required, there are no in-process defaults
	if config.trackerURL == "" {
		logger.Error("must specify tracker-url")
		os.Exit(1)
	}
	if config.graphHost == "" {
		logger.Error("must specify graph-host")
		os.Exit(1)
	}

	trackerClient := tracker.NewClient(tracker.ClientOptions{
		TrackerURL: config.trackerURL,
		Logger:     logger.Named("tracker"),
	})

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	store, err := graph.NewRemoteStore(connectCtx, graph.RemoteStoreOptions{
		GraphHost: config.graphHost,
		Logger:    logger.Named("graph"),
	})
	connectCancel()
	if err != nil {
		logger.Error("failed to connect to the graph service", zap.Error(err))
		os.Exit(1)
	}

	topoBuilder := builder.NewBuilder(builder.Options{
		Logger: logger.Named("builder"),
		Plans:  trackerClient,
		Store:  buildmetrics.WrapStore(store),
	})

	webServer := webapi.NewWebServer(webapi.WebServerOptions{
		Logger:         logger.Named("webapi"),
		ListenAddress:  fmt.Sprintf("%s:%v", config.bindAddress, config.webPort),
		Builder:        topoBuilder,
		DefaultCluster: config.cluster,
		DefaultEnviron: config.environ,
	})

	var configLock sync.Mutex
	reloadConfiguration := func() {
		configLock.Lock()
		defer configLock.Unlock()

		err := viper.ReadInConfig()
		if err != nil {
			logger.Warn("failed to parse configuration file", zap.Error(err))
		}

		newConfig := readConfig(logger)

		if newConfig.trackerURL != config.trackerURL ||
			newConfig.graphHost != config.graphHost {
			logger.Warn("config changes for trackerURL or graphHost require a restart")
		}

		if newConfig.bindAddress != config.bindAddress ||
			newConfig.webPort != config.webPort {
			logger.Warn("config changes for bindAddress or webPort require a restart")
		}

		if newConfig.logLevelStr != config.logLevelStr {
			newParsedLogLevel, err := zapcore.ParseLevel(newConfig.logLevelStr)
			if err != nil {
				logger.Warn("invalid log level specified, using INFO instead")
				newParsedLogLevel = zapcore.InfoLevel
			}

			logLevel.SetLevel(newParsedLogLevel)

			logger.Info("updated log level",
				zap.String("newLevel", newParsedLogLevel.String()))
		}

		config = newConfig
	}

	if watchCfgFile {
		viper.OnConfigChange(func(in fsnotify.Event) {
			logger.Info("configuration file change detected")
			reloadConfiguration()
		})

		go viper.WatchConfig()
	}

	go func() {
		sigCh := make(chan os.Signal, 10)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

		beginGracefulShutdown := func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			err := webServer.Shutdown(shutdownCtx)
			if err != nil {
				logger.Warn("failed to shut down the web server", zap.Error(err))
			}
		}

		hasReceivedSigInt := false
		for sig := range sigCh {
			if sig == syscall.SIGINT {
				if hasReceivedSigInt {
					logger.Info("Received SIGINT a second time, terminating...")
					os.Exit(1)
				} else {
					logger.Info("Received SIGINT, attempting graceful shutdown...")
					hasReceivedSigInt = true
					beginGracefulShutdown()
				}
			} else if sig == syscall.SIGTERM {
				logger.Info("Received SIGTERM, attempting graceful shutdown...")
				beginGracefulShutdown()
			} else if sig == syscall.SIGHUP {
				logger.Info("Received SIGHUP, reloading configuration...")
				reloadConfiguration()
			}
		}
	}()

	logger.Info("starting web api")

	err = webServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to run the web api", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("topograph shutdown gracefully")
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
