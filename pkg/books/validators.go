package books

// CreateBookPayload is the body for POST /addbook. Field declaration order is
// the order violations are reported in, since binding stops at the first
// failing field.
type CreateBookPayload struct {
	Title           string  `json:"title" mod:"trim" validate:"required,min=3"`
	Author          string  `json:"author" mod:"trim" validate:"required,min=3"`
	Genre           string  `json:"genre" mod:"trim" validate:"required,min=3"`
	PublicationDate string  `json:"publicationDate" validate:"required,date"`
	Edition         *string `json:"edition,omitempty" mod:"trim" validate:"omitempty,notblank"`
	Summary         *string `json:"summary,omitempty" validate:"omitempty,max=1000"`
}

// UpdateBookPayload is the body for PUT /updatebook/:id. Fields are plain
// strings on purpose: an empty string is indistinguishable from an absent
// field and is skipped, both for validation and for the update itself. That
// skip-on-empty behavior is part of the API contract, surprising as it is, so
// callers can't blank out a field with "".
type UpdateBookPayload struct {
	Title           string `json:"title" mod:"trim" validate:"omitempty,min=3"`
	Author          string `json:"author" mod:"trim" validate:"omitempty,min=3"`
	Genre           string `json:"genre" mod:"trim" validate:"omitempty,min=3"`
	PublicationDate string `json:"publicationDate" validate:"omitempty,date"`
	Edition         string `json:"edition" mod:"trim"`
	Summary         string `json:"summary" validate:"omitempty,max=1000"`
}

// BorrowBookPayload is the optional body for POST /books/:id/borrow. The
// return date, when given, is the borrower's expected return date and goes
// straight onto the new history entry.
type BorrowBookPayload struct {
	BorrowedBy string `json:"borrowedBy" mod:"trim" default:"Unknown"`
	ReturnDate string `json:"returnDate" validate:"omitempty,date"`
}
