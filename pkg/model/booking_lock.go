package model

import "time"

// DeviceLock is an advisory lock document held while a booking is checked and inserted
// for one device. ExpiresAt backs a TTL index so an abandoned lock clears itself.
type DeviceLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
