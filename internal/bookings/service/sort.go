package service

import (
	"slices"

	"labbook/pkg/model"
)

// sortByStart orders bookings by start time, breaking ties by id so listings
// are stable across calls.
func sortByStart(bookings []*model.Booking) {
	slices.SortStableFunc(bookings, func(a, b *model.Booking) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
