package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusApproved  BookingStatus = "APPROVED"
	StatusRejected  BookingStatus = "REJECTED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// BookingStatuses is the closed set of booking statuses.
var BookingStatuses = []BookingStatus{StatusPending, StatusApproved, StatusRejected, StatusCancelled}

// ActiveStatuses are the statuses that occupy a device's time slot.
var ActiveStatuses = []BookingStatus{StatusPending, StatusApproved}

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled},
}

// ParseBookingStatus accepts any casing and returns the canonical status.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(BookingStatuses, status) {
		return status, nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

func (s BookingStatus) String() string {
	return string(s)
}

func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusApproved
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Same-status moves are never allowed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	ID        string        `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID   string        `json:"owner_id" bson:"owner_id"`
	DeviceID  string        `json:"device_id" bson:"device_id"`
	Start     time.Time     `json:"start_time" bson:"start_time"`
	End       time.Time     `json:"end_time" bson:"end_time"`
	Status    BookingStatus `json:"status" bson:"status"`
	Notes     string        `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
}

// Overlaps uses half-open intervals, so bookings that only touch do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

type BookingRequest struct {
	DeviceID   string    `json:"device_id" validate:"required,mongodb"`
	Start      time.Time `json:"start_time" validate:"required"`
	End        time.Time `json:"end_time" validate:"required"`
	Notes      string    `json:"notes,omitempty" validate:"omitempty,max=500"`
	OwnerEmail string    `json:"owner_email,omitempty" validate:"omitempty,email"`
}

type BookingStatusUpdate struct {
	Status string `json:"status" validate:"required"`
}
