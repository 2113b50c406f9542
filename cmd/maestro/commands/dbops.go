package commands

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/logger"
	"github.com/teranos/maestro/pulse/async"
	"github.com/teranos/maestro/pulse/schedule"
	"github.com/teranos/maestro/scheduler"
	"github.com/teranos/maestro/sym"
)

// DbOpsCmd runs the job queue processor.
var DbOpsCmd = &cobra.Command{
	Use:   "dbops",
	Short: sym.DbOps + " Run the candidate job processor",
	Long: sym.DbOps + ` dbops — candidate database job processor

Reads control lines from stdin and writes responses to stdout:

  DbOps: Ping!                 answers "DbOps: Pong!"
  DbOps: Jobs                  reports current, completed and failed jobs
  DbOps: NewJob:<json>         queues a job ({"jobType", "arguments", "retries"})
  DbOps: Kill                  closes the store and exits

When [dbops] websocket_addr is set the same protocol is served at /dbops.
When [scheduler] nightly_cron is set, scheduling runs fire on that schedule.`,
	RunE: runDbOps,
}

var dbopsJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show journaled jobs",
	RunE:  runDbOpsJobs,
}

var (
	jobsStatusFlag string
	jobsLimitFlag  int
)

func init() {
	dbopsJobsCmd.Flags().StringVar(&jobsStatusFlag, "status", "", "Filter by status: waiting, completed, failed")
	dbopsJobsCmd.Flags().IntVar(&jobsLimitFlag, "limit", 50, "Maximum number of jobs to show")
	DbOpsCmd.AddCommand(dbopsJobsCmd)
}

func runDbOps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.Logger

	handlers := async.NewHandlerRegistry()
	handlers.RegisterAll(candidate.Handlers(store)...)

	var ws *async.WebSocketServer
	stdout := async.NewLineWriter(os.Stdout)
	out := async.ResponderFunc(func(line string) {
		stdout.Respond(line)
		if ws != nil {
			ws.Respond(line)
		}
	})

	proc := async.NewProcessor(handlers, store, out, async.ConfigFromAM(cfg.DbOps), log)
	if cfg.DbOps.Journal {
		proc.Queue().Subscribe(async.NewJournal(store.DB(), log).Subscriber(ctx))
	}

	if cfg.DbOps.WebSocketAddr != "" {
		ws = async.NewWebSocketServer(proc, cfg.DbOps.RatePerSecond, log)
		go func() {
			if err := ws.ListenAndServe(ctx, cfg.DbOps.WebSocketAddr); err != nil {
				log.Errorw("Websocket listener stopped", logger.FieldError, err)
			}
		}()
	}
	if cfg.DbOps.MetricsAddr != "" {
		metrics := async.NewMetrics()
		proc.WithMetrics(metrics)
		go func() {
			if err := proc.ServeMetrics(ctx, cfg.DbOps.MetricsAddr, metrics); err != nil {
				log.Errorw("Metrics listener stopped", logger.FieldError, err)
			}
		}()
	}

	trigger, registry, err := startNightly(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	if trigger != nil {
		defer trigger.Stop()
		if watcher := watchConfig(ctx, registry, store, log); watcher != nil {
			defer watcher.Stop()
		}
	}

	go func() {
		if err := proc.Listen(ctx, os.Stdin); err != nil {
			log.Errorw("Control channel closed", logger.FieldError, err)
		}
	}()

	notify(log, daemon.SdNotifyReady)
	err = proc.Run(ctx)
	notify(log, daemon.SdNotifyStopping)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// startNightly schedules scheduling runs when nightly_cron is set.
func startNightly(ctx context.Context, cfg *am.Config, store *candidate.Store, log *zap.SugaredLogger) (*schedule.Trigger, *scheduler.Registry, error) {
	if cfg.Scheduler.NightlyCron == "" {
		return nil, nil, nil
	}
	runner, registry, err := newRunner(ctx, cfg, store)
	if err != nil {
		return nil, nil, err
	}
	trigger, err := schedule.NewTrigger(ctx, cfg.Scheduler.NightlyCron, func(ctx context.Context) error {
		_, err := runner.Run(ctx, scheduler.RunOptions{})
		return err
	}, log)
	if err != nil {
		return nil, nil, err
	}
	trigger.Start()
	return trigger, registry, nil
}

// watchConfig reapplies per-type tunables to registry when the config file
// changes, so the next nightly run sees them. It returns nil when there is no
// file to watch.
func watchConfig(ctx context.Context, registry *scheduler.Registry, store *candidate.Store, log *zap.SugaredLogger) *am.ConfigWatcher {
	path := ConfigFile
	if path == "" {
		path = am.ConfigPath()
	}
	if path == "" {
		return nil
	}
	watcher, err := am.NewConfigWatcher(path, log)
	if err != nil {
		log.Warnw("Config hot reload disabled", logger.FieldFile, path, logger.FieldError, err)
		return nil
	}
	watcher.OnReload(func(cfg *am.Config) error {
		return configureRegistry(ctx, registry, cfg, store.DB(), log)
	})
	am.SetGlobalWatcher(watcher)
	watcher.Start()
	return watcher
}

func notify(log *zap.SugaredLogger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Debugw("sd_notify failed", "state", state, logger.FieldError, err)
	}
}

func runDbOpsJobs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	jobs, err := async.NewJournal(conn, logger.Logger).List(cmd.Context(), async.JobStatus(jobsStatusFlag), jobsLimitFlag)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		pterm.Info.Println("No journaled jobs")
		return nil
	}

	data := pterm.TableData{{"Job", "Status", "Retries", "Error", "Updated"}}
	for _, j := range jobs {
		data = append(data, []string{
			j.Label(),
			string(j.Status),
			strconv.Itoa(j.Retries),
			j.Error,
			j.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return errors.Wrap(err, "failed to render jobs")
	}
	return nil
}
