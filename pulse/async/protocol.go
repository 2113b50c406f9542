package async

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teranos/maestro/sym"
)

// CommandKind identifies a control-channel command.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandKill
	CommandPing
	CommandJobs
	CommandNewJob
)

func (k CommandKind) String() string {
	switch k {
	case CommandKill:
		return "Kill"
	case CommandPing:
		return "Ping"
	case CommandJobs:
		return "Jobs"
	case CommandNewJob:
		return "NewJob"
	default:
		return "Unknown"
	}
}

// Command is one parsed control line.
type Command struct {
	Kind    CommandKind
	Payload string // NewJob JSON
	Line    string // trimmed input
}

// ParseCommand parses a control line. The "DbOps: " prefix is optional.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)
	body := strings.TrimPrefix(line, sym.Prefix(sym.DbOps))

	cmd := Command{Line: line}
	switch {
	case body == "Kill":
		cmd.Kind = CommandKill
	case body == "Ping" || body == "Ping!":
		cmd.Kind = CommandPing
	case body == "Jobs":
		cmd.Kind = CommandJobs
	case strings.HasPrefix(body, "NewJob:"):
		cmd.Kind = CommandNewJob
		cmd.Payload = strings.TrimPrefix(body, "NewJob:")
	}
	return cmd
}

func respond(format string, args ...interface{}) string {
	return sym.Prefix(sym.DbOps) + fmt.Sprintf(format, args...)
}

// Response lines written to the control channel.
func PongResponse() string { return respond("Pong!") }
func KillingResponse() string { return respond("Status:Killing self") }
func UnknownResponse(line string) string {
	return respond("Unknown command: %s", line)
}

func AcceptedResponse(job *Job) string { return respond("Accepted %s", job.Label()) }

func RejectedResponse(err error) string { return respond("Rejected: %v", err) }

func CompletedResponse(job *Job) string {
	return respond("Result:Completed job '%s'", job.Label())
}

func RetryingResponse(job *Job, err error) string {
	return respond("Status:Retrying job '%s' (%d retries left) after error: %v", job.Label(), job.Retries, err)
}

func FatalResponse(job *Job, err error) string {
	return respond("Error:Fatal error encountered during job '%s': %v", job.Label(), err)
}

func FailedResponse(job *Job, err error) string {
	return respond("Failed:Failed job '%s': %v", job.Label(), err)
}

// JobsResponse renders a status snapshot as "DbOps: Jobs:{json}".
func JobsResponse(s Status) (string, error) {
	if s.Completed == nil {
		s.Completed = []Job{}
	}
	if s.Failed == nil {
		s.Failed = []Job{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return respond("Jobs:%s", b), nil
}
