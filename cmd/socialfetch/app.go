package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"socialfetch/pkg/auth"
	"socialfetch/pkg/cache"
	"socialfetch/pkg/config"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/httpclient"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/metrics"
	"socialfetch/pkg/retry"
	"socialfetch/pkg/sink"
	"socialfetch/pkg/storage"
	"socialfetch/pkg/ui"
)

// app carries what every fetch command needs once flags are parsed
type app struct {
	cfg      *config.Config
	log      logger.Logger
	printer  *ui.Printer
	notifier *ui.Notifier
	cache    *cache.Manager
	sink     sink.Sink
	runID    string
}

// flagValues collects the flags set on the command line under their config
// key. Float flags hold seconds and become durations. rename maps a local
// flag onto a config key; an empty target keeps the flag out of the config.
func flagValues(cmd *cobra.Command, rename map[string]string) map[string]interface{} {
	values := make(map[string]interface{})
	fs := cmd.Flags()

	fs.Visit(func(f *pflag.Flag) {
		name := f.Name
		if to, ok := rename[name]; ok {
			if to == "" {
				return
			}
			name = to
		}

		switch f.Value.Type() {
		case "string":
			values[name] = f.Value.String()
		case "bool":
			v, _ := fs.GetBool(f.Name)
			values[name] = v
		case "int":
			v, _ := fs.GetInt(f.Name)
			values[name] = v
		case "float64":
			v, _ := fs.GetFloat64(f.Name)
			values[name] = seconds(v)
		}
	})

	switch {
	case quiet:
		values["log-level"] = "error"
	case verbose:
		values["log-level"] = "debug"
	}
	return values
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// setup loads configuration, fills secrets from the credential store and
// starts the optional metrics endpoint, cache and Postgres export
func setup(cmd *cobra.Command, rename map[string]string) (*app, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(configFile, flagValues(cmd, rename))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, err, "invalid configuration")
	}

	creds, credErr := auth.NewManager()
	if credErr == nil {
		creds.ApplyTo(cfg)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, err, "failed to initialize logger")
	}
	log := logger.GetLogger()
	if credErr != nil {
		log.WithError(credErr).Debug("Credential store unavailable")
	}

	ui.SetNoColor(cfg.Logging.NoColor)
	a := &app{
		cfg:      cfg,
		log:      log,
		printer:  ui.Stderr(),
		notifier: ui.NewNotifier(ui.Stderr(), notify),
		sink:     sink.Nop{},
		runID:    uuid.NewString(),
	}

	if cfg.Metrics.Addr != "" {
		metrics.Serve(ctx, cfg.Metrics.Addr, log)
	}

	if cfg.Cache.RedisAddr != "" {
		m, err := cache.Connect(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.TTL, log)
		if err != nil {
			log.WithError(err).Warn("Redis cache unavailable, continuing without it")
		} else {
			a.cache = m
		}
	}

	if cfg.Sink.PostgresDSN != "" {
		s, err := sink.New(ctx, cfg.Sink.PostgresDSN, log)
		if err != nil {
			a.close()
			return nil, err
		}
		a.sink = s
	}

	log.WithFields(map[string]interface{}{
		"command": cmd.CommandPath(),
		"run_id":  a.runID,
		"version": version,
	}).Debug("socialfetch starting")

	return a, nil
}

func (a *app) close() {
	a.sink.Close()
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

func (a *app) httpCache() httpclient.Cache {
	if a.cache == nil {
		return nil
	}
	return a.cache
}

// retryPolicy doubles from backoff for up to maxRetries retries, capped by
// retry.max_backoff
func (a *app) retryPolicy(ctx context.Context, maxRetries int, backoff time.Duration) *retry.Config {
	policy := retry.NewConfig(ctx, maxRetries, backoff, a.log)
	if eb, ok := policy.Backoff.(*retry.ExponentialBackoff); ok {
		eb.MaxDelay = a.cfg.Retry.MaxBackoff
	}
	return policy
}

func (a *app) newClient(service string, timeout time.Duration, headers map[string]string, credential string, policy *retry.Config) *httpclient.Client {
	return httpclient.New(httpclient.Options{
		Service:    service,
		Timeout:    timeout,
		Headers:    headers,
		Retry:      policy,
		Cache:      a.httpCache(),
		Credential: credential,
		Logger:     a.log,
	})
}

// progress returns a download progress line, or nil in quiet mode
func (a *app) progress(label string) *ui.Progress {
	if quiet {
		return nil
	}
	return ui.NewProgress(a.printer, label, 0)
}

// writeOutput writes v as indented JSON to path, or to stdout when path is
// empty or "-"
func (a *app) writeOutput(path string, v interface{}) error {
	if path == "" || path == "-" {
		return storage.EncodeJSON(os.Stdout, v)
	}
	if err := storage.WriteJSON(path, v); err != nil {
		return err
	}
	a.printer.Info("Saved", path)
	return nil
}

// export hands the run's items to the Postgres sink, if one is configured
func (a *app) export(ctx context.Context, records []sink.Record) error {
	return a.sink.Upsert(ctx, records)
}

func requireSecret(value, envVar, service string) error {
	if value == "" {
		return errs.New(errs.ErrorTypeAuth, "%s is not set (export it or run 'socialfetch auth set %s')", envVar, service)
	}
	return nil
}
