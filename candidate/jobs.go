package candidate

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/pulse/async"
)

// Job types understood by the DbOps processor.
const (
	JobRemove      = "remove"
	JobReject      = "reject"
	JobUnremove    = "unremove"
	JobUnreject    = "unreject"
	JobJSONAdd     = "jsonAdd"
	JobWhitelist   = "whitelist"
	JobDeWhitelist = "de_whitelist"
	JobBlacklist   = "blacklist"
	JobDeBlacklist = "de_blacklist"
)

// Reasons recorded by the remove and reject jobs.
const (
	ManualRemovalReason   = "User manual removal"
	ManualRejectionReason = "User manual rejection"
)

// Handlers returns the job handlers backed by store.
func Handlers(store *Store) []async.JobHandler {
	return []async.JobHandler{
		idJob(JobRemove, func(ctx context.Context, id int64) error {
			return store.RemoveCandidateByID(ctx, id, ManualRemovalReason)
		}),
		idJob(JobReject, func(ctx context.Context, id int64) error {
			return store.RejectCandidateByID(ctx, id, ManualRejectionReason)
		}),
		idJob(JobUnremove, func(ctx context.Context, id int64) error {
			if err := store.SetFieldNullByID(ctx, id, "RemovedReason"); err != nil {
				return err
			}
			return store.SetFieldNullByID(ctx, id, "RemovedDt")
		}),
		idJob(JobUnreject, func(ctx context.Context, id int64) error {
			return store.SetFieldNullByID(ctx, id, "RejectedReason")
		}),
		idJob(JobWhitelist, func(ctx context.Context, id int64) error {
			return store.AddToList(ctx, id, Whitelist)
		}),
		idJob(JobDeWhitelist, func(ctx context.Context, id int64) error {
			return store.RemoveFromList(ctx, id, Whitelist)
		}),
		idJob(JobBlacklist, func(ctx context.Context, id int64) error {
			return store.AddToList(ctx, id, Blacklist)
		}),
		idJob(JobDeBlacklist, func(ctx context.Context, id int64) error {
			return store.RemoveFromList(ctx, id, Blacklist)
		}),
		async.HandlerFunc{JobType: JobJSONAdd, Fn: func(ctx context.Context, job *async.Job) error {
			return addFromJSON(ctx, store, job)
		}},
	}
}

// idJob applies fn to every candidate ID in the job's arguments. On error
// the job keeps only the IDs not yet done.
func idJob(jobType string, fn func(ctx context.Context, id int64) error) async.JobHandler {
	return async.HandlerFunc{JobType: jobType, Fn: func(ctx context.Context, job *async.Job) error {
		ids, err := ParseIDs(job.Arguments)
		if err != nil {
			return err
		}
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, id); err != nil {
				job.Arguments = encodeRemaining(ids[i:])
				return errors.Wrapf(err, "%s candidate %d", jobType, id)
			}
		}
		return nil
	}}
}

// ParseIDs flattens job arguments into candidate IDs. Each argument may be a
// number, a numeric string, or a (nested) list of those.
func ParseIDs(args []json.RawMessage) ([]int64, error) {
	var ids []int64
	for _, raw := range args {
		var v interface{}
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidRequest, "candidate id argument is not JSON")
		}
		if err := collectIDs(v, &ids); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func collectIDs(v interface{}, ids *[]int64) error {
	switch val := v.(type) {
	case json.Number:
		id, err := val.Int64()
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidRequest, "candidate id %s is not an integer", val)
		}
		*ids = append(*ids, id)
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidRequest, "candidate id %q is not an integer", val)
		}
		*ids = append(*ids, id)
	case []interface{}:
		for _, item := range val {
			if err := collectIDs(item, ids); err != nil {
				return err
			}
		}
	default:
		return errors.Wrapf(errors.ErrInvalidRequest, "unexpected candidate id argument %v", v)
	}
	return nil
}

func encodeRemaining(ids []int64) []json.RawMessage {
	b, _ := json.Marshal(ids)
	return []json.RawMessage{b}
}

// addFromJSON inserts each candidate object in the job's arguments. An
// argument may be a JSON-encoded string, an array of objects, or one object.
func addFromJSON(ctx context.Context, store *Store, job *async.Job) error {
	var objects []map[string]interface{}
	for _, raw := range job.Arguments {
		objs, err := decodeCandidateObjects(raw)
		if err != nil {
			return err
		}
		objects = append(objects, objs...)
	}

	for i, obj := range objects {
		if _, err := store.InsertFields(ctx, obj); err != nil {
			rest, _ := json.Marshal(objects[i:])
			job.Arguments = []json.RawMessage{rest}
			return errors.Wrapf(err, "insert candidate %d of %d", i+1, len(objects))
		}
	}
	return nil
}

func decodeCandidateObjects(raw json.RawMessage) ([]map[string]interface{}, error) {
	data := []byte(strings.TrimSpace(string(raw)))
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidRequest, "jsonAdd argument is not a JSON string")
		}
		data = []byte(strings.TrimSpace(s))
	}
	if len(data) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "empty jsonAdd argument")
	}

	if data[0] == '{' {
		var obj map[string]interface{}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidRequest, "jsonAdd object does not parse")
		}
		return []map[string]interface{}{obj}, nil
	}
	var objs []map[string]interface{}
	if err := json.Unmarshal(data, &objs); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "jsonAdd argument must be an object or a list of objects")
	}
	return objs, nil
}
