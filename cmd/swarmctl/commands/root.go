package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dyluth/swarmstate/internal/config"
	"github.com/dyluth/swarmstate/internal/logging"
	"github.com/dyluth/swarmstate/internal/metrics"
	"github.com/dyluth/swarmstate/internal/printer"
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var versionString = "dev"

// globalOptions holds the persistent flags and the runtime built from them
// before any subcommand runs.
type globalOptions struct {
	configPath string
	redisURL   string
	logLevel   string
	memory     bool

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	backend  swarmstore.Backend
	store    *swarmstore.Store
	closer   io.Closer
}

// NewRootCommand builds the swarmctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "swarmctl",
		Short: "swarmctl - inspect and manage swarm state in Redis",
		Long: `swarmctl reads and writes the persistent state of multi-agent swarms:
lifecycle state, teams, agents, the shared blackboard and resource
allocations.

Connection settings come from swarmstate.yml (if present), then the
REDIS_URL and SWARMSTATE_LOG_LEVEL environment variables, then flags.`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsStore(cmd) {
				return nil
			}
			return opts.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to swarmstate.yml (default: ./swarmstate.yml if present)")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Redis URL, overrides config and REDIS_URL")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&opts.memory, "memory", false, "Use an in-process memory backend (state is discarded on exit)")

	rootCmd.AddCommand(
		newSwarmCmd(opts),
		newTeamCmd(opts),
		newAgentCmd(opts),
		newBlackboardCmd(opts),
		newResourceCmd(opts),
		newServeCmd(opts),
	)

	return rootCmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// needsStore reports whether cmd does real work, as opposed to help,
// completion or a bare group command.
func needsStore(cmd *cobra.Command) bool {
	return cmd.Runnable() && cmd.HasParent() && cmd.Name() != "help" && cmd.Parent().Name() != "completion"
}

func (o *globalOptions) setup(cmd *cobra.Command) error {
	p := o.printer(cmd)

	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return p.ErrorWithContext(
			"failed to load configuration",
			err.Error(),
			map[string]string{"Config": orDefault(path, "(defaults)")},
			[]string{"Check the YAML syntax and field values in swarmstate.yml"},
		)
	}
	if o.redisURL != "" {
		cfg.Redis.URL = o.redisURL
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return p.Error("invalid configuration", err.Error(), nil)
	}
	o.cfg = cfg

	o.logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	if o.memory {
		backend := swarmstore.NewMemoryBackend(nil)
		o.backend, o.closer = backend, backend
	} else {
		redisOpts, err := cfg.RedisOptions()
		if err != nil {
			return err
		}
		backend := swarmstore.NewRedisBackend(redisOpts)
		o.backend, o.closer = backend, backend
	}

	o.registry = prometheus.NewRegistry()
	storeOpts := []swarmstore.Option{
		swarmstore.WithLogger(o.logger),
		swarmstore.WithTTL(cfg.Store.TTL),
		swarmstore.WithRecorder(metrics.New(o.registry)),
	}
	if cfg.Store.ExhaustiveIndexSweep {
		storeOpts = append(storeOpts, swarmstore.WithExhaustiveIndexSweep())
	}

	o.store, err = swarmstore.New(o.backend, storeOpts...)
	return err
}

// run wraps a subcommand body so the backend is released however it exits.
func (o *globalOptions) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if closeErr := o.teardown(); err == nil {
			err = closeErr
		}
		return err
	}
}

func (o *globalOptions) teardown() error {
	var errs []error
	if o.closer != nil {
		errs = append(errs, o.closer.Close())
		o.closer = nil
	}
	if o.logger != nil {
		// Sync on stderr fails with EINVAL on some platforms; not worth surfacing.
		_ = o.logger.Sync()
	}
	return errors.Join(errs...)
}

func (o *globalOptions) printer(cmd *cobra.Command) *printer.Printer {
	return printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
