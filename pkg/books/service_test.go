package books

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stacksbooks/stacks/pkg/errcodes"
	"github.com/stacksbooks/stacks/pkg/migrations"
	"github.com/stacksbooks/stacks/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newBook(title string) *models.Book {
	return &models.Book{
		Title:           title,
		Author:          "Frank Herbert",
		Genre:           "SciFi",
		PublicationDate: time.Date(1965, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestServiceCreateBook_SetsDefaults(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	err := svc.CreateBook(ctx, book)
	require.NoError(t, err)

	assert.NotEmpty(t, book.ID)
	assert.Equal(t, models.AvailabilityStatusAvailable, book.AvailabilityStatus)
	assert.Empty(t, book.BorrowingHistory)
	assert.NotNil(t, book.BorrowingHistory)
	assert.False(t, book.CreatedAt.IsZero())
	assert.Equal(t, book.CreatedAt, book.UpdatedAt)
}

func TestServiceCreateBook_DuplicateTriple(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	require.NoError(t, svc.CreateBook(ctx, newBook("Dune")))

	err := svc.CreateBook(ctx, newBook("Dune"))
	require.Error(t, err)

	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 409, codeErr.HTTPCode)
	assert.Equal(t, "conflict", codeErr.Code)

	// A different edition of the same title/author is a different book.
	other := newBook("Dune")
	other.Edition = pointerutil.String("2nd")
	require.NoError(t, svc.CreateBook(ctx, other))
}

func TestServiceRetrieveBook_NotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.RetrieveBook(context.Background(), "4b91e8c0-79aa-4f3e-a4c1-d34a2bb6c001")
	require.Error(t, err)

	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 404, codeErr.HTTPCode)
}

func TestServiceListBooks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	bookList, total, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, bookList)

	require.NoError(t, svc.CreateBook(ctx, newBook("Dune")))
	require.NoError(t, svc.CreateBook(ctx, newBook("Dune Messiah")))

	bookList, total, err = svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, bookList, 2)
	assert.NotNil(t, bookList[0].BorrowingHistory)
}

func TestServiceUpdateBook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	require.NoError(t, svc.CreateBook(ctx, book))

	book.Genre = "Science Fiction"
	err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"genre"}})
	require.NoError(t, err)

	updated, err := svc.RetrieveBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Science Fiction", updated.Genre)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
}

func TestServiceUpdateBook_NoColumnsIsNoop(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	require.NoError(t, svc.CreateBook(ctx, book))

	err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{}})
	require.NoError(t, err)
}

func TestServiceDeleteBook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	require.NoError(t, svc.CreateBook(ctx, book))

	deleted, err := svc.DeleteBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", deleted.Title)

	_, err = svc.RetrieveBook(ctx, book.ID)
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 404, codeErr.HTTPCode)
}

func TestServiceDeleteBook_NotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.DeleteBook(context.Background(), "4b91e8c0-79aa-4f3e-a4c1-d34a2bb6c001")
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 404, codeErr.HTTPCode)
}

func TestServiceBorrowBook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	require.NoError(t, svc.CreateBook(ctx, book))

	borrowed, err := svc.BorrowBook(ctx, book.ID, &models.BorrowRecord{BorrowedBy: "Paul"})
	require.NoError(t, err)

	assert.Equal(t, models.AvailabilityStatusBorrowed, borrowed.AvailabilityStatus)
	require.Len(t, borrowed.BorrowingHistory, 1)
	assert.Equal(t, "Paul", borrowed.BorrowingHistory[0].BorrowedBy)
	assert.False(t, borrowed.BorrowingHistory[0].BorrowedDate.IsZero())
	assert.Nil(t, borrowed.BorrowingHistory[0].ReturnDate)
}

func TestServiceBorrowBook_AlreadyBorrowed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	require.NoError(t, svc.CreateBook(ctx, book))

	_, err := svc.BorrowBook(ctx, book.ID, &models.BorrowRecord{BorrowedBy: "Paul"})
	require.NoError(t, err)

	_, err = svc.BorrowBook(ctx, book.ID, &models.BorrowRecord{BorrowedBy: "Leto"})
	require.Error(t, err)

	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 400, codeErr.HTTPCode)
	assert.Equal(t, "Book is currently unavailable for borrowing", codeErr.Message)

	// State is unchanged: still one history entry.
	current, err := svc.RetrieveBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, current.BorrowingHistory, 1)
	assert.Equal(t, models.AvailabilityStatusBorrowed, current.AvailabilityStatus)
}

func TestServiceReturnBook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	require.NoError(t, svc.CreateBook(ctx, book))

	_, err := svc.BorrowBook(ctx, book.ID, &models.BorrowRecord{BorrowedBy: "Paul"})
	require.NoError(t, err)

	returned, err := svc.ReturnBook(ctx, book.ID)
	require.NoError(t, err)

	assert.Equal(t, models.AvailabilityStatusAvailable, returned.AvailabilityStatus)
	require.Len(t, returned.BorrowingHistory, 1)
	assert.NotNil(t, returned.BorrowingHistory[0].ReturnDate)
}

func TestServiceReturnBook_AlreadyAvailable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	require.NoError(t, svc.CreateBook(ctx, book))

	_, err := svc.ReturnBook(ctx, book.ID)
	require.Error(t, err)

	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 400, codeErr.HTTPCode)
	assert.Equal(t, "Book is already available, no need to return", codeErr.Message)
}

func TestServiceReturnBook_OnlyLastEntryStamped(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newBook("Dune")
	require.NoError(t, svc.CreateBook(ctx, book))

	// First loan cycle.
	_, err := svc.BorrowBook(ctx, book.ID, &models.BorrowRecord{BorrowedBy: "Paul"})
	require.NoError(t, err)
	first, err := svc.ReturnBook(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, first.BorrowingHistory, 1)
	firstReturn := first.BorrowingHistory[0].ReturnDate
	require.NotNil(t, firstReturn)

	// Second loan cycle.
	_, err = svc.BorrowBook(ctx, book.ID, &models.BorrowRecord{BorrowedBy: "Leto"})
	require.NoError(t, err)
	second, err := svc.ReturnBook(ctx, book.ID)
	require.NoError(t, err)

	require.Len(t, second.BorrowingHistory, 2)
	assert.Equal(t, "Paul", second.BorrowingHistory[0].BorrowedBy)
	assert.Equal(t, firstReturn.Unix(), second.BorrowingHistory[0].ReturnDate.Unix())
	assert.Equal(t, "Leto", second.BorrowingHistory[1].BorrowedBy)
	assert.NotNil(t, second.BorrowingHistory[1].ReturnDate)
}
