// Package conflict finds bookings that would double-book a device.
package conflict

import (
	"context"
	"time"

	"labbook/pkg/model"
)

// BookingFinder lists a device's bookings filtered by status.
type BookingFinder interface {
	FindByDevice(ctx context.Context, deviceID string, statuses []model.BookingStatus) ([]*model.Booking, error)
}

type Detector struct {
	finder BookingFinder
}

func NewDetector(finder BookingFinder) *Detector {
	return &Detector{finder: finder}
}

// FindConflict returns the earliest active booking on deviceID that overlaps
// [start, end), ignoring excludeID. It returns nil when the slot is free.
func (d *Detector) FindConflict(ctx context.Context, deviceID string, start, end time.Time, excludeID string) (*model.Booking, error) {
	bookings, err := d.finder.FindByDevice(ctx, deviceID, model.ActiveStatuses)
	if err != nil {
		return nil, err
	}
	return FirstOverlap(bookings, start, end, excludeID), nil
}

func (d *Detector) HasConflict(ctx context.Context, deviceID string, start, end time.Time, excludeID string) (bool, error) {
	b, err := d.FindConflict(ctx, deviceID, start, end, excludeID)
	return b != nil, err
}

// FirstOverlap scans bookings for the earliest-starting active overlap.
func FirstOverlap(bookings []*model.Booking, start, end time.Time, excludeID string) *model.Booking {
	var found *model.Booking
	for _, b := range bookings {
		if b == nil || !b.Status.IsActive() {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if !b.Overlaps(start, end) {
			continue
		}
		if found == nil || b.Start.Before(found.Start) {
			found = b
		}
	}
	return found
}
