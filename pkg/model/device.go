package model

import "time"

type Device struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DeviceID  string    `json:"device_id" bson:"device_id" validate:"required,min=1,max=64"`
	Lab       string    `json:"lab" bson:"lab" validate:"required,min=1,max=100"`
	IPAddress string    `json:"ip_address" bson:"ip_address" validate:"required,ip|hostname_rfc1123"`
	Port      int       `json:"port" bson:"port" validate:"required,min=1,max=65535"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type DeviceUpdate struct {
	DeviceID  string `json:"device_id,omitempty" validate:"omitempty,min=1,max=64"`
	Lab       string `json:"lab,omitempty" validate:"omitempty,min=1,max=100"`
	IPAddress string `json:"ip_address,omitempty" validate:"omitempty,ip|hostname_rfc1123"`
	Port      *int   `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
}
