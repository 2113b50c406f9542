package commands

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"

	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/pulse/async"
	"github.com/teranos/maestro/sym"
)

// CandidatesCmd gives operators direct store access without a running dbops.
var CandidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: sym.DB + " Inspect and edit candidates",
	Long: sym.DB + ` candidates — direct candidate store access

Edits run through the same job handlers as "dbops", so reasons and
timestamps match what a NewJob would record.

Examples:
  maestro candidates list --type UserFixed
  maestro candidates add targets.json      # JSON array of candidate objects, comments allowed
  maestro candidates remove 12 13
  maestro candidates reject 14`,
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates",
	RunE:  runCandidatesList,
}

var candidatesAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Insert candidates from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", args[0])
		}
		return runCandidateJob(cmd.Context(), candidate.JobJSONAdd, []json.RawMessage{jsonc.ToJSON(data)})
	},
}

var candidatesRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Soft-delete candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  idCommand(candidate.JobRemove),
}

var candidatesRejectCmd = &cobra.Command{
	Use:   "reject <id>...",
	Short: "Reject candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  idCommand(candidate.JobReject),
}

var (
	candidatesTypeFlag string
	candidatesAllFlag  bool
)

func init() {
	candidatesListCmd.Flags().StringVar(&candidatesTypeFlag, "type", "", "Only this candidate type")
	candidatesListCmd.Flags().BoolVar(&candidatesAllFlag, "all", false, "Include removed and rejected candidates")

	CandidatesCmd.AddCommand(candidatesListCmd)
	CandidatesCmd.AddCommand(candidatesAddCmd)
	CandidatesCmd.AddCommand(candidatesRemoveCmd)
	CandidatesCmd.AddCommand(candidatesRejectCmd)
}

func runCandidatesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	where := "1=1"
	var qargs []interface{}
	if !candidatesAllFlag {
		where += " AND RemovedReason IS NULL AND RejectedReason IS NULL"
	}
	if candidatesTypeFlag != "" {
		where += " AND CandidateType = ?"
		qargs = append(qargs, candidatesTypeFlag)
	}
	rows, err := store.Query(cmd.Context(), where, qargs...)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		pterm.Info.Println("No candidates")
		return nil
	}

	data := pterm.TableData{{"ID", "Name", "Type", "Priority", "RA", "Dec", "Window", "Status"}}
	for _, c := range rows {
		data = append(data, []string{
			strconv.FormatInt(c.ID, 10),
			c.CandidateName,
			c.CandidateType,
			strconv.Itoa(c.Priority),
			degrees(c.RA),
			degrees(c.Dec),
			window(&c),
			status(&c),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func idCommand(jobType string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := strconv.ParseInt(a, 10, 64)
			if err != nil {
				return errors.Wrapf(errors.ErrInvalidRequest, "candidate id %q is not an integer", a)
			}
			ids = append(ids, id)
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return runCandidateJob(cmd.Context(), jobType, []json.RawMessage{raw})
	}
}

// runCandidateJob executes one job handler directly against the store.
func runCandidateJob(ctx context.Context, jobType string, arguments []json.RawMessage) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	handlers := async.NewHandlerRegistry()
	handlers.RegisterAll(candidate.Handlers(store)...)
	handler := handlers.Get(jobType)
	if handler == nil {
		return errors.NewInvalidJobTypeError(jobType)
	}

	job := async.NewJob(jobType, arguments, 0)
	if err := handler.Execute(ctx, job); err != nil {
		return err
	}
	pterm.Success.Printf("%s done\n", jobType)
	return nil
}

func degrees(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func window(c *candidate.Candidate) string {
	w := c.Window()
	if w.IsZero() {
		return ""
	}
	return w.Start.Format("01-02 15:04") + " to " + w.End.Format("01-02 15:04")
}

func status(c *candidate.Candidate) string {
	switch {
	case c.IsRemoved() && c.IsRejected():
		return "removed, rejected"
	case c.IsRemoved():
		return "removed"
	case c.IsRejected():
		return "rejected"
	case c.Scheduled == 1:
		return "scheduled"
	}
	return ""
}
