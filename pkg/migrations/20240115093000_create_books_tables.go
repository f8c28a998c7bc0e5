package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE books (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				genre TEXT NOT NULL,
				publication_date TIMESTAMPTZ NOT NULL,
				edition TEXT,
				summary TEXT,
				availability_status TEXT NOT NULL DEFAULT 'Available'
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Duplicate-triple guard: no two books may share (title, author,
		// edition), with a missing edition treated as the empty string.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_books_title_author_edition ON books (title, author, IFNULL(edition, ''))`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE borrow_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id TEXT REFERENCES books (id) ON DELETE CASCADE NOT NULL,
				borrowed_by TEXT NOT NULL,
				borrowed_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				return_date TIMESTAMPTZ
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_borrow_records_book_id ON borrow_records (book_id)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS borrow_records")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS books")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
