package commands

import (
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/scheduler"
	"github.com/teranos/maestro/sky"
	"github.com/teranos/maestro/sym"
)

// ScheduleCmd builds tonight's schedule once.
var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: sym.Plan + " Build a schedule for the coming night",
	Long: sym.Plan + ` schedule — build a telescope schedule

Selects candidates of every active type, places them greedily by tier within
the night and writes the schedule file. Scheduled candidates are marked in
the database with their observability window and transit time.

Examples:
  maestro schedule                                   # tonight, config output format
  maestro schedule --format json --out tonight.json
  maestro schedule --start 2026-10-15T03:00:00Z --end 2026-10-15T11:00:00Z`,
	RunE: runSchedule,
}

var (
	scheduleStartFlag  string
	scheduleEndFlag    string
	scheduleOutFlag    string
	scheduleFormatFlag string
)

func init() {
	ScheduleCmd.Flags().StringVar(&scheduleStartFlag, "start", "", "Window start (RFC3339), default sunset")
	ScheduleCmd.Flags().StringVar(&scheduleEndFlag, "end", "", "Window end (RFC3339), default sunrise")
	ScheduleCmd.Flags().StringVar(&scheduleOutFlag, "out", "", "Output file, default <output_dir>/schedule_<date>.<format>")
	ScheduleCmd.Flags().StringVar(&scheduleFormatFlag, "format", "", "Output format: txt, json, yaml")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := scheduler.RunOptions{OutputPath: scheduleOutFlag}
	if scheduleFormatFlag != "" {
		if opts.Format, err = scheduler.ParseFormat(scheduleFormatFlag); err != nil {
			return err
		}
	}
	if opts.Window, err = windowFromFlags(scheduleStartFlag, scheduleEndFlag); err != nil {
		return err
	}

	runner, _, err := newRunner(cmd.Context(), cfg, store)
	if err != nil {
		return err
	}
	result, err := runner.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	printSchedule(result)
	return nil
}

// windowFromFlags parses --start/--end. Both or neither must be given.
func windowFromFlags(start, end string) (sky.Window, error) {
	if start == "" && end == "" {
		return sky.Window{}, nil
	}
	if start == "" || end == "" {
		return sky.Window{}, errors.WithHint(
			errors.Wrap(errors.ErrInvalidRequest, "--start and --end go together"),
			"omit both to schedule the coming night",
		)
	}
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return sky.Window{}, errors.Wrapf(errors.ErrInvalidRequest, "--start: %v", err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return sky.Window{}, errors.Wrapf(errors.ErrInvalidRequest, "--end: %v", err)
	}
	w := sky.Window{Start: s.UTC(), End: e.UTC()}
	if w.IsZero() {
		return sky.Window{}, errors.Wrap(errors.ErrInvalidRequest, "--end must be after --start")
	}
	return w, nil
}

func printSchedule(result *scheduler.Result) {
	sched := result.Schedule
	pterm.DefaultHeader.WithFullWidth().Printf("%s Schedule %s to %s",
		sym.Plan,
		sched.WindowStart.Format("2006-01-02 15:04"),
		sched.WindowEnd.Format("15:04 MST"),
	)

	data := pterm.TableData{{"Start", "Target", "Filter", "Exp", "N", "Move", "Guide", "Candidate"}}
	for _, l := range sched.Lines {
		id := ""
		if l.CandidateID != nil {
			id = strconv.FormatInt(*l.CandidateID, 10)
		}
		data = append(data, []string{
			l.Start.UTC().Format("15:04:05"),
			l.Target,
			l.Filter,
			strconv.FormatFloat(l.ExposureTime, 'f', -1, 64),
			strconv.Itoa(l.NumExposures),
			yesNo(l.Move),
			yesNo(l.Guiding),
			id,
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	pterm.Info.Printf("%d candidates selected, %d observations placed\n", result.Selected, sched.Observations())
	if len(result.Unscheduled) > 0 {
		pterm.Warning.Printf("Not scheduled: %v\n", result.Unscheduled)
	}
	if result.WriteBackFailures > 0 {
		pterm.Warning.Printf("%d candidates could not be marked scheduled\n", result.WriteBackFailures)
	}
	if result.OutputPath != "" {
		pterm.Success.Printf("Wrote %s\n", result.OutputPath)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
