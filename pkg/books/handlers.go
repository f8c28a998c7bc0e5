package books

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stacksbooks/stacks/pkg/binder"
	"github.com/stacksbooks/stacks/pkg/errcodes"
	"github.com/stacksbooks/stacks/pkg/models"
)

type handler struct {
	bookService *Service
}

type bookResponse struct {
	Message string       `json:"message"`
	Data    *models.Book `json:"data"`
}

type listBooksResponse struct {
	TotalNumberOfBooks int            `json:"totalNumberOfBooks"`
	Message            string         `json:"message"`
	Data               []*models.Book `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// bookID pulls the :id param and rejects anything that isn't a well-formed
// identifier before the store is ever queried.
func bookID(c echo.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", errcodes.ValidationError("Invalid book ID")
	}
	return id, nil
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	publicationDate, ok := binder.ParseDate(params.PublicationDate)
	if !ok {
		return errcodes.ValidationError("A valid publication date is required.")
	}

	book := &models.Book{
		Title:           params.Title,
		Author:          params.Author,
		Genre:           params.Genre,
		PublicationDate: publicationDate,
		Edition:         params.Edition,
	}
	if params.Summary != nil {
		book.Summary = pointerutil.String(strings.TrimSpace(*params.Summary))
	}

	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return errcodes.Internal("add book", err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, bookResponse{
		Message: "New book added successfully.",
		Data:    book,
	}))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	bookList, total, err := h.bookService.ListBooks(ctx)
	if err != nil {
		return errcodes.Internal("retrieve books", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listBooksResponse{
		TotalNumberOfBooks: total,
		Message:            "All books retrieved successfully.",
		Data:               bookList,
	}))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := bookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.RetrieveBook(ctx, id)
	if err != nil {
		return errcodes.Internal("retrieve book", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, bookResponse{
		Message: "Book retrieved successfully.",
		Data:    book,
	}))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := bookID(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the book.
	book, err := h.bookService.RetrieveBook(ctx, id)
	if err != nil {
		return errcodes.Internal("update book", err)
	}

	// Keep track of what's been changed. Empty strings mean "not supplied"
	// and are skipped; see UpdateBookPayload.
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != "" && params.Title != book.Title {
		book.Title = params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Author != "" && params.Author != book.Author {
		book.Author = params.Author
		opts.Columns = append(opts.Columns, "author")
	}
	if params.Genre != "" && params.Genre != book.Genre {
		book.Genre = params.Genre
		opts.Columns = append(opts.Columns, "genre")
	}
	if params.PublicationDate != "" {
		publicationDate, ok := binder.ParseDate(params.PublicationDate)
		if !ok {
			return errcodes.ValidationError("A valid publication date is required")
		}
		if !publicationDate.Equal(book.PublicationDate) {
			book.PublicationDate = publicationDate
			opts.Columns = append(opts.Columns, "publication_date")
		}
	}
	if params.Edition != "" {
		book.Edition = pointerutil.String(params.Edition)
		opts.Columns = append(opts.Columns, "edition")
	}
	if params.Summary != "" {
		book.Summary = pointerutil.String(strings.TrimSpace(params.Summary))
		opts.Columns = append(opts.Columns, "summary")
	}

	// Update the model.
	if err := h.bookService.UpdateBook(ctx, book, opts); err != nil {
		return errcodes.Internal("update book", err)
	}

	// Reload the model.
	book, err = h.bookService.RetrieveBook(ctx, id)
	if err != nil {
		return errcodes.Internal("update book", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, bookResponse{
		Message: "Book updated successfully",
		Data:    book,
	}))
}

func (h *handler) remove(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := bookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.DeleteBook(ctx, id)
	if err != nil {
		return errcodes.Internal("delete book", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Book titled '%s' has been deleted successfully.", book.Title),
	}))
}

func (h *handler) borrow(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := bookID(c)
	if err != nil {
		return err
	}

	// The borrow body is entirely optional.
	c.Set("disallow_empty_body", false)
	params := BorrowBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	record := &models.BorrowRecord{
		BorrowedBy: params.BorrowedBy,
	}
	if params.ReturnDate != "" {
		if returnDate, ok := binder.ParseDate(params.ReturnDate); ok {
			record.ReturnDate = &returnDate
		}
	}

	book, err := h.bookService.BorrowBook(ctx, id, record)
	if err != nil {
		return errcodes.Internal("borrow book", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, bookResponse{
		Message: fmt.Sprintf("Book '%s' has been borrowed successfully.", book.Title),
		Data:    book,
	}))
}

func (h *handler) returnBook(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := bookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.ReturnBook(ctx, id)
	if err != nil {
		return errcodes.Internal("return book", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, bookResponse{
		Message: fmt.Sprintf("Book '%s' has been returned successfully.", book.Title),
		Data:    book,
	}))
}
