package core

import (
	"errors"
	"strings"
	"time"
)

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
)

type (
	Visibility string

	// Income is a single income record owned by exactly one user.
	Income struct {
		ID          string    `json:"id"`
		UserID      string    `json:"userId"`
		Source      string    `json:"source"`
		Icon        string    `json:"icon"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Date        time.Time `json:"date"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// Expense is a single expense record owned by exactly one user.
	// TripID is set when the expense belongs to a shared trip thread.
	Expense struct {
		ID          string    `json:"id"`
		UserID      string    `json:"userId"`
		Category    string    `json:"category"`
		Icon        string    `json:"icon"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Date        time.Time `json:"date"`
		TripID      string    `json:"tripId,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// Trip is a shared expense thread. The creator always has access;
	// participants have access unless visibility is private.
	Trip struct {
		ID           string     `json:"id"`
		UserID       string     `json:"userId"`
		Name         string     `json:"name"`
		Participants []string   `json:"participants"`
		Visibility   Visibility `json:"visibility"`
		CreatedAt    time.Time  `json:"createdAt"`
	}

	// TripMessage is an append-only chat message. Immutable once created.
	TripMessage struct {
		ID         string    `json:"id"`
		TripID     string    `json:"tripId"`
		UserID     string    `json:"userId"`
		AuthorName string    `json:"authorName,omitempty"`
		Text       string    `json:"message"`
		CreatedAt  time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyUserID        = errors.New("empty user id")
	ErrEmptySource        = errors.New("empty source")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyText          = errors.New("empty message text")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyTripName      = errors.New("empty trip name")
	ErrInvalidVisibility  = errors.New("invalid visibility")
)

func (v Visibility) Validate() error {
	switch v {
	case VisibilityPrivate, VisibilityShared:
		return nil
	default:
		return ErrInvalidVisibility
	}
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if i.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(i.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (t Trip) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyTripName
	}
	return t.Visibility.Validate()
}

func (m TripMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(m.TripID) == "" {
		return errors.New("empty trip id")
	}
	if strings.TrimSpace(m.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// CanAccess reports whether userID may read the trip's chat. The creator
// always can; participants can unless the trip is private.
func (t Trip) CanAccess(userID string) bool {
	if userID == t.UserID {
		return true
	}
	if t.Visibility == VisibilityPrivate {
		return false
	}
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// DayKey returns the ISO calendar date (YYYY-MM-DD) used to group
// transactions by local day.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayBounds returns the inclusive local-day window around t, from
// midnight to 23:59:59.999999999.
func DayBounds(t time.Time) (from, to time.Time) {
	from = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	to = from.Add(24*time.Hour - time.Nanosecond)
	return from, to
}
