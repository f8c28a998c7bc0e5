package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AvailabilityStatus is the two-state flag gating whether a book may
// currently be borrowed.
type AvailabilityStatus string

const (
	AvailabilityStatusAvailable AvailabilityStatus = "Available"
	AvailabilityStatusBorrowed  AvailabilityStatus = "Borrowed"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID                 string             `bun:",pk,nullzero" json:"id"`
	Title              string             `bun:",nullzero" json:"title"`
	Author             string             `bun:",nullzero" json:"author"`
	Genre              string             `bun:",nullzero" json:"genre"`
	PublicationDate    time.Time          `json:"publicationDate"`
	Edition            *string            `json:"edition,omitempty"`
	Summary            *string            `json:"summary,omitempty"`
	AvailabilityStatus AvailabilityStatus `bun:",nullzero" json:"availabilityStatus"`
	BorrowingHistory   []*BorrowRecord    `bun:"rel:has-many,join:id=book_id" json:"borrowingHistory"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// BorrowRecord is one loan in a book's history. Records are append-only;
// only the last record's return_date is ever set, when the book comes back.
type BorrowRecord struct {
	bun.BaseModel `bun:"table:borrow_records,alias:br"`

	ID           int        `bun:",pk,autoincrement" json:"-"`
	BookID       string     `bun:",nullzero" json:"-"`
	BorrowedBy   string     `bun:",nullzero" json:"borrowedBy"`
	BorrowedDate time.Time  `json:"borrowedDate"`
	ReturnDate   *time.Time `json:"returnDate"`
}
