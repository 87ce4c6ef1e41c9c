// Package history keeps a record of every track the daemon managed to
// start, so listening habits survive restarts. Recording failures are never
// allowed to disturb playback.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/huahuadeliaoliao/RoseSong/internal/playlist"
)

type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

type Entry struct {
	ID        int64
	Bvid      string
	Cid       string
	Title     string
	Owner     string
	StartedAt time.Time
}

// Record stores one successfully started track.
func (r *Repo) Record(ctx context.Context, t playlist.Track) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plays(bvid, cid, title, owner) VALUES (?,?,?,?)`,
		t.Bvid, t.Cid, t.Title, t.Owner,
	)
	return err
}

// Recent returns the latest plays, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, bvid, cid, title, owner, started_at
	FROM plays ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Bvid, &e.Cid, &e.Title, &e.Owner, &e.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
