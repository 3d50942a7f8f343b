package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"time"

	"github.com/mr-tron/base58"

	"github.com/lumenweave/lumen/errors"
)

// Snapshot is one persisted resolution result.
type Snapshot struct {
	Network       string
	ContractID    string
	Path          string
	Viewer        string
	Digest        string
	Content       string
	CycleDetected bool
	ResolvedKeys  int
	CreatedAt     time.Time
}

// ContentDigest returns the base58-encoded SHA-256 of content, used to
// detect unchanged re-resolutions without comparing full bodies.
func ContentDigest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return base58.Encode(sum[:])
}

// Save upserts a snapshot for its (network, contract, path, viewer)
// tuple. The digest is computed from the content; CreatedAt is set by
// the database.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	digest := ContentDigest(snap.Content)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (network, contract_id, path, viewer, digest, content, cycle_detected, resolved_keys)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (network, contract_id, path, viewer) DO UPDATE SET
			digest = excluded.digest,
			content = excluded.content,
			cycle_detected = excluded.cycle_detected,
			resolved_keys = excluded.resolved_keys,
			created_at = CURRENT_TIMESTAMP`,
		snap.Network, snap.ContractID, snap.Path, snap.Viewer,
		digest, snap.Content, snap.CycleDetected, snap.ResolvedKeys,
	)
	if err != nil {
		return errors.Wrapf(err, "save snapshot for %s", snap.ContractID)
	}

	s.logger.Debugw("snapshot saved",
		"contract", snap.ContractID,
		"path", snap.Path,
		"digest", digest,
	)
	return nil
}

// Get returns the snapshot for the given tuple, or nil when none exists.
func (s *Store) Get(ctx context.Context, network, contractID, path, viewer string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT network, contract_id, path, viewer, digest, content, cycle_detected, resolved_keys, created_at
		FROM snapshots
		WHERE network = ? AND contract_id = ? AND path = ? AND viewer = ?`,
		network, contractID, path, viewer,
	)

	var snap Snapshot
	err := row.Scan(
		&snap.Network, &snap.ContractID, &snap.Path, &snap.Viewer,
		&snap.Digest, &snap.Content, &snap.CycleDetected, &snap.ResolvedKeys, &snap.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get snapshot for %s", contractID)
	}
	return &snap, nil
}

// List returns every snapshot for a contract on a network, newest first.
func (s *Store) List(ctx context.Context, network, contractID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT network, contract_id, path, viewer, digest, content, cycle_detected, resolved_keys, created_at
		FROM snapshots
		WHERE network = ? AND contract_id = ?
		ORDER BY created_at DESC, id DESC`,
		network, contractID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "list snapshots for %s", contractID)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.Network, &snap.ContractID, &snap.Path, &snap.Viewer,
			&snap.Digest, &snap.Content, &snap.CycleDetected, &snap.ResolvedKeys, &snap.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan snapshot")
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Delete removes the snapshot for the given tuple. Deleting a missing
// snapshot is not an error.
func (s *Store) Delete(ctx context.Context, network, contractID, path, viewer string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE network = ? AND contract_id = ? AND path = ? AND viewer = ?`,
		network, contractID, path, viewer,
	)
	if err != nil {
		return errors.Wrapf(err, "delete snapshot for %s", contractID)
	}
	return nil
}

// Prune deletes snapshots older than the given age and reports how
// many were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, errors.Wrap(err, "prune snapshots")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "prune snapshots rows affected")
	}
	if n > 0 {
		s.logger.Infow("pruned snapshots", "count", n, "older_than", olderThan.String())
	}
	return n, nil
}
