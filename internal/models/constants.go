package models

import "strings"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusApproved Status = "approved"
)

// Service is one of the fixed salon services.
type Service string

const (
	ServiceHaircut      Service = "Haircut"
	ServiceBeard        Service = "Beard"
	ServiceHaircutBeard Service = "Haircut+Beard"
)

// Services lists the bookable services in display order.
var Services = []Service{ServiceHaircut, ServiceBeard, ServiceHaircutBeard}

// ParseService resolves a service name. Matching is case-insensitive and
// accepts the Italian labels used by the first version of the dashboard.
func ParseService(raw string) (Service, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "haircut", "taglio":
		return ServiceHaircut, true
	case "beard", "barba":
		return ServiceBeard, true
	case "haircut+beard", "haircut + beard", "haircut-beard", "taglio-barba", "taglio + barba", "taglio+barba":
		return ServiceHaircutBeard, true
	default:
		return "", false
	}
}

// Valid reports whether s is one of Services.
func (s Service) Valid() bool {
	for _, known := range Services {
		if s == known {
			return true
		}
	}
	return false
}

// ToastKind is the flavour of a notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Date and time formats used on the wire.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const (
	// DefaultToastTTL время жизни уведомления в миллисекундах
	DefaultToastTTL = 3000

	// DefaultMaxToasts максимальное количество одновременных уведомлений
	DefaultMaxToasts = 20

	// DefaultSessionTTL время жизни сессии в секундах
	DefaultSessionTTL = 12 * 60 * 60
)
