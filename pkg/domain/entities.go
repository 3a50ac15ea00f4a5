// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by bookclub.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies a community member.
	EntityUser EntityType = "user"
	// EntityGenre identifies a genre label.
	EntityGenre EntityType = "genre"
	// EntityAuthor identifies an author record.
	EntityAuthor EntityType = "author"
	// EntityAbstractBook identifies a catalog work.
	EntityAbstractBook EntityType = "abstract_book"
	// EntityActualBook identifies a physical copy.
	EntityActualBook EntityType = "actual_book"
	// EntityTransaction identifies a lending transaction.
	EntityTransaction EntityType = "transaction"
	// EntityMessage identifies a message posted on a transaction thread.
	EntityMessage EntityType = "message"
)

// Location is the area code a member lives in.
type Location string

// Area codes recognised for members.
const (
	LocationHigashiyama Location = "nh"
	LocationNisekoTown  Location = "nt"
	LocationKondo       Location = "nk"
	LocationHirafu      Location = "kh"
	LocationKabayama    Location = "kk"
	LocationKutchan     Location = "kt"
	LocationOther       Location = "oo"
)

// DefaultLocation is assigned to members registered without an area.
const DefaultLocation = LocationNisekoTown

var locationLabels = map[Location]string{
	LocationHigashiyama: "Higashiyama (Niseko-cho)",
	LocationNisekoTown:  "Niseko-cho town",
	LocationKondo:       "Kondo Niseko-cho",
	LocationHirafu:      "Hirafu (Kutchan-cho)",
	LocationKabayama:    "Kabayama (Kutchan-cho)",
	LocationKutchan:     "Kutchan town center",
	LocationOther:       "Others",
}

// Valid reports whether the location is a known area code.
func (l Location) Valid() bool {
	_, ok := locationLabels[l]
	return ok
}

// Label returns the display name of the area.
func (l Location) Label() string {
	return locationLabels[l]
}

// BookStatus is the market status of a physical copy.
type BookStatus string

// Copy statuses.
const (
	// StatusAvailable marks a copy that may be requested.
	StatusAvailable BookStatus = "available"
	// StatusUnavailable marks a copy that is lost, damaged or withdrawn by its owner.
	StatusUnavailable BookStatus = "unavailable"
	// StatusOutForRent marks a copy with an active transaction.
	StatusOutForRent BookStatus = "out_for_rent"
)

// Valid reports whether the status is one of the known copy statuses.
func (s BookStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusUnavailable, StatusOutForRent:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Timestamps carries the store-managed audit times of a record.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a community member. Accounts and sessions live outside the core.
type User struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Location Location `json:"location"`
	Timestamps
}

// Genre labels abstract books.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Timestamps
}

// Author is a book author. Authors are never deleted.
type Author struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Timestamps
}

// DisplayName renders the author the way the catalog lists them, last name first.
func (a Author) DisplayName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	return a.LastName + " " + a.FirstName
}

// AbstractBook is a catalog work independent of any physical copy.
type AbstractBook struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	ISBN      string  `json:"isbn"`
	AuthorIDs []int64 `json:"author_ids"`
	GenreIDs  []int64 `json:"genre_ids"`
	Timestamps
}

// HasAuthor reports whether id is among the book's authors.
func (b AbstractBook) HasAuthor(id int64) bool {
	for _, a := range b.AuthorIDs {
		if a == id {
			return true
		}
	}
	return false
}

// ActualBook is a physical copy owned by a member.
type ActualBook struct {
	ID             uuid.UUID  `json:"id"`
	AbstractBookID int64      `json:"abstract_book_id"`
	OwnerID        int64      `json:"owner_id"`
	Status         BookStatus `json:"status"`
	Timestamps
}

// Transaction is a lending transaction on one physical copy.
type Transaction struct {
	ID         uuid.UUID        `json:"id"`
	BookID     uuid.UUID        `json:"book_id"`
	LenderID   int64            `json:"lender_id"`
	BorrowerID int64            `json:"borrower_id"`
	State      TransactionState `json:"state"`
	LendDate   time.Time        `json:"lend_date"`
	ReturnDate time.Time        `json:"return_date"`
	Timestamps
}

// Party reports whether the member is the lender or the borrower.
func (t Transaction) Party(userID int64) bool {
	return userID == t.LenderID || userID == t.BorrowerID
}

// Counterparty returns the other side of the transaction for userID.
func (t Transaction) Counterparty(userID int64) int64 {
	if userID == t.LenderID {
		return t.BorrowerID
	}
	return t.LenderID
}

// Message is a note posted on a transaction thread. TransactionID is nil once
// the transaction has been deleted.
type Message struct {
	ID            uuid.UUID  `json:"id"`
	AuthorID      int64      `json:"author_id"`
	DestinationID int64      `json:"destination_id"`
	TransactionID *uuid.UUID `json:"transaction_id"`
	Text          string     `json:"text"`
	Read          bool       `json:"read"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "transaction blocked by rules: " + v.Rule + ": " + v.Message
		}
	}
	return "transaction blocked by rules"
}
