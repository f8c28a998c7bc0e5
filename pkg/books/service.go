package books

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stacksbooks/stacks/pkg/errcodes"
	"github.com/stacksbooks/stacks/pkg/models"
	"github.com/uptrace/bun"
)

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateBook inserts a new book after checking the duplicate triple (title,
// author, edition). The check and the insert share a transaction, and the
// unique index backs the check up in case another insert slips in between.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	if book.AvailabilityStatus == "" {
		book.AvailabilityStatus = models.AvailabilityStatusAvailable
	}

	edition := ""
	if book.Edition != nil {
		edition = *book.Edition
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.
			NewSelect().
			Model((*models.Book)(nil)).
			Where("title = ?", book.Title).
			Where("author = ?", book.Author).
			Where("IFNULL(edition, '') = ?", edition).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return errcodes.Conflict("This book (with the same title, author, and edition) has already been added.")
		}

		_, err = tx.
			NewInsert().
			Model(book).
			Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return errcodes.Conflict("This book (with the same title, author, and edition) has already been added.")
			}
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if book.BorrowingHistory == nil {
		book.BorrowingHistory = []*models.BorrowRecord{}
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, id string) (*models.Book, error) {
	book := &models.Book{}

	err := svc.db.
		NewSelect().
		Model(book).
		Column("b.*").
		Relation("BorrowingHistory", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("id ASC")
		}).
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	if book.BorrowingHistory == nil {
		book.BorrowingHistory = []*models.BorrowRecord{}
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context) ([]*models.Book, int, error) {
	bookList := []*models.Book{}

	total, err := svc.db.
		NewSelect().
		Model(&bookList).
		Column("b.*").
		Relation("BorrowingHistory", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("id ASC")
		}).
		Order("b.created_at ASC").
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, book := range bookList {
		if book.BorrowingHistory == nil {
			book.BorrowingHistory = []*models.BorrowRecord{}
		}
	}

	return bookList, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	book.UpdatedAt = time.Now()
	opts.Columns = append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(book).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return errcodes.Conflict("This book (with the same title, author, and edition) has already been added.")
		}
		return errors.WithStack(err)
	}

	return nil
}

// DeleteBook removes the book and returns the deleted record so callers can
// name it in the confirmation.
func (svc *Service) DeleteBook(ctx context.Context, id string) (*models.Book, error) {
	book := &models.Book{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.
			NewSelect().
			Model(book).
			Where("b.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.BorrowRecord)(nil)).
			Where("book_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

// BorrowBook transitions an available book to borrowed, appending one history
// entry. The read-check-write runs in a transaction so two concurrent borrows
// of the same book serialize at the store and the loser fails the
// availability check.
func (svc *Service) BorrowBook(ctx context.Context, id string, record *models.BorrowRecord) (*models.Book, error) {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.
			NewSelect().
			Model(book).
			Where("b.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		if book.AvailabilityStatus == models.AvailabilityStatusBorrowed {
			return errcodes.InvalidState("Book is currently unavailable for borrowing")
		}

		record.BookID = book.ID
		if record.BorrowedDate.IsZero() {
			record.BorrowedDate = time.Now()
		}
		_, err = tx.
			NewInsert().
			Model(record).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		book.AvailabilityStatus = models.AvailabilityStatusBorrowed
		book.UpdatedAt = time.Now()
		_, err = tx.
			NewUpdate().
			Model(book).
			Column("availability_status", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveBook(ctx, id)
}

// ReturnBook transitions a borrowed book back to available and stamps the
// last history entry's return date. Same transactional shape as BorrowBook.
func (svc *Service) ReturnBook(ctx context.Context, id string) (*models.Book, error) {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.
			NewSelect().
			Model(book).
			Where("b.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		if book.AvailabilityStatus == models.AvailabilityStatusAvailable {
			return errcodes.InvalidState("Book is already available, no need to return")
		}

		last := &models.BorrowRecord{}
		err = tx.
			NewSelect().
			Model(last).
			Where("book_id = ?", id).
			Order("id DESC").
			Limit(1).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return errors.WithStack(err)
		}
		if err == nil {
			last.ReturnDate = pointerutil.Time(time.Now())
			_, err = tx.
				NewUpdate().
				Model(last).
				Column("return_date").
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		book.AvailabilityStatus = models.AvailabilityStatusAvailable
		book.UpdatedAt = time.Now()
		_, err = tx.
			NewUpdate().
			Model(book).
			Column("availability_status", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveBook(ctx, id)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
