package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/greenbox/pkg/api"
	"github.com/sdejongh/greenbox/pkg/auth"
	"github.com/sdejongh/greenbox/pkg/config"
	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/manager"
	"github.com/sdejongh/greenbox/pkg/metrics"
	"github.com/sdejongh/greenbox/pkg/output"
	"github.com/sdejongh/greenbox/pkg/ratelimit"
	"github.com/sdejongh/greenbox/pkg/session"
	"github.com/sdejongh/greenbox/pkg/storage"
	"github.com/sdejongh/greenbox/pkg/transfer"
	"github.com/spf13/cobra"
)

var timeNow = time.Now

// App is everything a command needs, built once per invocation from the
// configuration and global flags
type App struct {
	cfg         *config.Config
	flags       *GlobalFlags
	logger      logging.Logger
	metrics     *metrics.Metrics
	client      *api.Client
	auth        *auth.Client
	remote      *storage.HTTPRemote
	sessions    *session.Store
	sessionPath string
	saved       *session.File
	formatter   output.Formatter
	notifier    *output.Notifier
	prompter    *Prompter

	out    io.Writer
	errOut io.Writer
}

func loadConfig(flags *GlobalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigFile != "" {
		cfg, err = config.LoadFromFile(flags.ConfigFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	applyFlagsToConfig(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlagsToConfig overrides configuration with global flags
func applyFlagsToConfig(cfg *config.Config, flags *GlobalFlags) {
	if flags.Server != "" {
		cfg.Server.BaseURL = flags.Server
	}
	if flags.Output != "" {
		cfg.Output.Format = flags.Output
	}
	if flags.Quiet {
		cfg.Output.Quiet = true
	}
	if flags.Verbose {
		cfg.Logging.Level = "debug"
	}
}

func newLogger(cfg config.LoggingConfig, errOut io.Writer) (logging.Logger, error) {
	format := logging.FormatText
	if cfg.Format == "json" {
		format = logging.FormatJSON
	}
	return logging.New(logging.Config{
		Format:     format,
		Level:      logging.ParseLevel(cfg.Level),
		Path:       cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		Output:     errOut,
	})
}

// newApp wires configuration, logging, metrics, transport and the saved
// session
func newApp(cmd *cobra.Command, flags *GlobalFlags) (*App, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	formatter, err := output.New(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	digester, err := auth.NewDigester(cfg.Auth.Digest)
	if err != nil {
		logger.Close()
		return nil, err
	}

	sessionPath, err := cfg.SessionPath()
	if err != nil {
		logger.Close()
		return nil, err
	}

	m := metrics.New()
	client := api.New(api.Config{
		BaseURL:   cfg.Server.BaseURL,
		Timeout:   cfg.Server.Timeout,
		UserAgent: "greenbox/" + Version,
		Logger:    logger,
		Metrics:   m,
	})

	app := &App{
		cfg:         cfg,
		flags:       flags,
		logger:      logger,
		metrics:     m,
		client:      client,
		auth:        auth.NewClient(client, cfg.Server.Endpoints, digester, logger),
		remote:      storage.NewHTTPRemote(client, cfg.Server.Endpoints, logger),
		sessions:    session.NewStore(),
		sessionPath: sessionPath,
		formatter:   formatter,
		notifier:    output.NewNotifier(cmd.ErrOrStderr(), cfg.Output.Quiet, !output.IsTerminal(cmd.ErrOrStderr())),
		prompter:    NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		out:         cmd.OutOrStdout(),
		errOut:      cmd.ErrOrStderr(),
	}
	app.restoreSession(cmd.Context())
	return app, nil
}

// restoreSession loads the saved session into the store. Sessions saved
// for another server or carrying an expired token are ignored.
func (a *App) restoreSession(ctx context.Context) {
	saved, err := session.Load(a.sessionPath)
	if err != nil {
		a.logger.Warn(ctx, "ignoring saved session", logging.Fields{"path": a.sessionPath, "error": err.Error()})
		return
	}
	if saved == nil {
		return
	}
	a.saved = saved

	if saved.Server != "" && saved.Server != a.cfg.Server.BaseURL {
		a.logger.Debug(ctx, "saved session belongs to another server", logging.Fields{"server": saved.Server})
		return
	}
	if session.Expired(saved.Token, timeNow()) {
		a.notify(manager.LevelWarning, "session expired, please log in again")
		return
	}
	a.sessions.Login(saved.Session)
}

func (a *App) notify(level manager.Level, msg string) {
	a.notifier.Notify(manager.Notice{Level: level, Message: msg})
}

// saveSession persists the current session for later invocations
func (a *App) saveSession(s *session.Session) error {
	if err := session.Save(a.sessionPath, a.cfg.Server.BaseURL, s); err != nil {
		return err
	}
	a.logger.Debug(context.Background(), "session saved", logging.Fields{"path": a.sessionPath})
	return nil
}

func (a *App) limiter(override string) (*ratelimit.Limiter, error) {
	raw := a.cfg.Transfer.BandwidthLimit
	if override != "" {
		raw = override
	}
	rate, err := ratelimit.ParseRate(raw)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewLimiter(rate), nil
}

func (a *App) matcher(extra []string) *transfer.Matcher {
	patterns := append(append([]string{}, a.cfg.Exclude...), extra...)
	return transfer.NewMatcher(patterns)
}

// managerOptions configures the view for one command
type managerOptions struct {
	assumeYes bool
	limiter   *ratelimit.Limiter
	observer  *output.Progress
}

func (a *App) newManager(opts managerOptions) *manager.Manager {
	var confirmer manager.Confirmer = a.prompter
	if opts.assumeYes {
		confirmer = manager.AutoConfirm
	}

	var observer transfer.Observer
	if opts.observer != nil {
		observer = opts.observer
	}

	return manager.New(manager.Options{
		Remote:     a.remote,
		Sessions:   a.sessions,
		Confirmer:  confirmer,
		Notifier:   a.notifier,
		Logger:     a.logger,
		Metrics:    a.metrics,
		StorageURL: a.cfg.StorageURL(),
		Fetcher:    a.client,
		Pool: transfer.NewPool(transfer.PoolConfig{
			MaxWorkers: a.cfg.Transfer.MaxWorkers,
			Limiter:    opts.limiter,
			Observer:   observer,
			Logger:     a.logger,
		}),
	})
}

// progress returns a progress bar observer, or nil when bars are disabled
// or stderr is not a terminal
func (a *App) progress(files int, bytes int64) *output.Progress {
	if !a.cfg.Output.Progress || a.cfg.Output.Quiet || a.formatter.Name() != "human" {
		return nil
	}
	if !output.IsTerminal(a.errOut) {
		return nil
	}
	return output.NewProgress(a.errOut, files, bytes)
}

// Close writes the metrics textfile and flushes the logger
func (a *App) Close() error {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn(context.Background(), "failed to write metrics textfile", logging.Fields{"path": a.cfg.Metrics.Textfile, "error": err.Error()})
	}
	return a.logger.Close()
}
