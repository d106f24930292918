package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw     string
		want    Role
		wantErr bool
	}{
		{raw: "admin", want: RoleAdmin},
		{raw: "Super Admin", want: RoleAdmin},
		{raw: "staff", want: RoleStaff},
		{raw: " Barber ", want: RoleStaff},
		{raw: "owner", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRole(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseService(t *testing.T) {
	s, ok := ParseService("haircut")
	assert.True(t, ok)
	assert.Equal(t, ServiceHaircut, s)

	s, ok = ParseService("Taglio-Barba")
	assert.True(t, ok)
	assert.Equal(t, ServiceHaircutBeard, s)

	_, ok = ParseService("shave")
	assert.False(t, ok)

	assert.True(t, ServiceBeard.Valid())
	assert.False(t, Service("").Valid())
}

func TestCanManage(t *testing.T) {
	admin := Identity{Username: "salvatore", Role: RoleAdmin}
	staff := Identity{Username: "emanuele", Role: RoleStaff}

	own := Booking{ID: 1, Barber: "Emanuele"}
	other := Booking{ID: 2, Barber: "Salvatore"}

	assert.True(t, CanManage(admin, own))
	assert.True(t, CanManage(admin, other))
	assert.True(t, CanManage(staff, own))
	assert.False(t, CanManage(staff, other))
	assert.False(t, CanManage(Identity{Role: RoleStaff}, Booking{}))
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats([]Booking{
		{Status: StatusWaiting},
		{Status: StatusApproved},
		{Status: StatusWaiting},
	})
	assert.Equal(t, Stats{Total: 3, Waiting: 2, Approved: 1}, stats)
	assert.Equal(t, stats.Total, stats.Waiting+stats.Approved)

	assert.Equal(t, Stats{}, ComputeStats(nil))
}

func TestBookingApplyKeepsIdentityAndStatus(t *testing.T) {
	b := Booking{ID: 7, Client: "Mario", Service: ServiceHaircut, Barber: "Salvatore", Status: StatusApproved}
	b.Apply(BookingFields{Client: "Luigi", Service: ServiceBeard, Barber: "Emanuele", Date: "2025-03-01", Time: "10:30"})

	assert.Equal(t, int64(7), b.ID)
	assert.Equal(t, StatusApproved, b.Status)
	assert.Equal(t, BookingFields{Client: "Luigi", Service: ServiceBeard, Barber: "Emanuele", Date: "2025-03-01", Time: "10:30"}, b.Fields())
}
