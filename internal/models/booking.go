package models

import (
	"strings"
	"time"
)

// Booking is a single appointment held in a session's store.
type Booking struct {
	ID        int64     `json:"id"`
	Time      string    `json:"time"` // HH:MM
	Date      string    `json:"date"` // YYYY-MM-DD
	Client    string    `json:"client"`
	Service   Service   `json:"service"`
	Barber    string    `json:"barber"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingFields is the caller-editable part of a booking.
type BookingFields struct {
	Time    string  `json:"time" yaml:"time"`
	Date    string  `json:"date" yaml:"date"`
	Client  string  `json:"client" yaml:"client"`
	Service Service `json:"service" yaml:"service"`
	Barber  string  `json:"barber" yaml:"barber"`
}

// Fields returns the editable part of the booking.
func (b Booking) Fields() BookingFields {
	return BookingFields{
		Time:    b.Time,
		Date:    b.Date,
		Client:  b.Client,
		Service: b.Service,
		Barber:  b.Barber,
	}
}

// Apply overwrites every editable field. ID and Status are left alone.
func (b *Booking) Apply(f BookingFields) {
	b.Time = f.Time
	b.Date = f.Date
	b.Client = f.Client
	b.Service = f.Service
	b.Barber = f.Barber
}

// AssignedTo reports whether the booking belongs to the given barber, ignoring case.
func (b Booking) AssignedTo(username string) bool {
	return strings.EqualFold(strings.TrimSpace(b.Barber), strings.TrimSpace(username))
}

// Stats summarises a list of bookings.
type Stats struct {
	Total    int `json:"total"`
	Waiting  int `json:"waiting"`
	Approved int `json:"approved"`
}

// ComputeStats counts bookings by status.
func ComputeStats(bookings []Booking) Stats {
	var s Stats
	for _, b := range bookings {
		switch b.Status {
		case StatusWaiting:
			s.Waiting++
		case StatusApproved:
			s.Approved++
		}
	}
	s.Total = s.Waiting + s.Approved
	return s
}
