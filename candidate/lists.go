package candidate

import (
	"context"

	"github.com/teranos/maestro/errors"
)

// List names a membership list in the candidate_lists table.
type List string

const (
	Whitelist List = "whitelist"
	Blacklist List = "blacklist"
)

// WhitelistPriority is the scheduling tier given to whitelisted candidates.
// Everyone else is scheduled at Priority+1.
const WhitelistPriority = 1

func (l List) valid() bool { return l == Whitelist || l == Blacklist }

// AddToList puts a candidate on a list. Adding twice is a no-op.
func (s *Store) AddToList(ctx context.Context, id int64, list List) error {
	if err := s.check(); err != nil {
		return err
	}
	if !list.valid() {
		return errors.Wrapf(errors.ErrInvalidRequest, "unknown list %q", list)
	}
	if _, err := s.GetCandidateByID(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO candidate_lists (candidate_id, list, added_at) VALUES (?, ?, ?)`,
		id, string(list), FormatTime(s.now()))
	if err != nil {
		return errors.WithDetailf(s.fail(err, "add to "+string(list)), "candidate_id: %d", id)
	}
	s.log.Infow("Candidate listed", "candidate_id", id, "list", list)
	return nil
}

// RemoveFromList takes a candidate off a list. Removing an unlisted
// candidate is a no-op.
func (s *Store) RemoveFromList(ctx context.Context, id int64, list List) error {
	if err := s.check(); err != nil {
		return err
	}
	if !list.valid() {
		return errors.Wrapf(errors.ErrInvalidRequest, "unknown list %q", list)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM candidate_lists WHERE candidate_id = ? AND list = ?`, id, string(list))
	if err != nil {
		return errors.WithDetailf(s.fail(err, "remove from "+string(list)), "candidate_id: %d", id)
	}
	s.log.Infow("Candidate unlisted", "candidate_id", id, "list", list)
	return nil
}

// ListMembers returns the IDs on a list.
func (s *Store) ListMembers(ctx context.Context, list List) (map[int64]bool, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id FROM candidate_lists WHERE list = ?`, string(list))
	if err != nil {
		return nil, s.fail(err, "list "+string(list))
	}
	defer rows.Close()

	members := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan list member")
		}
		members[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(err, "list "+string(list))
	}
	return members, nil
}
