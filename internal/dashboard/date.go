package dashboard

import (
	"context"
	"time"

	"salondesk/internal/models"
)

func (c *Controller) SelectedDate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Loading reports whether a day change is still reloading.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloading > 0
}

// AdvanceDate moves the selected day one step back (-1) or forward (+1).
func (c *Controller) AdvanceDate(ctx context.Context, direction int) (time.Time, error) {
	if direction != -1 && direction != 1 {
		return c.SelectedDate(), ErrInvalidDirection
	}
	c.mu.Lock()
	day := c.selected.AddDate(0, 0, direction)
	c.selected = day
	c.reloading++
	c.mu.Unlock()
	return c.reloadDay(ctx, day)
}

// SetDate selects a day and runs the reload hook. The day stays selected even
// if the reload is cancelled.
func (c *Controller) SetDate(ctx context.Context, date time.Time) (time.Time, error) {
	day := truncateDay(date)

	c.mu.Lock()
	c.selected = day
	c.reloading++
	c.mu.Unlock()
	return c.reloadDay(ctx, day)
}

func (c *Controller) reloadDay(ctx context.Context, day time.Time) (time.Time, error) {
	err := c.reload(ctx, day)

	c.mu.Lock()
	c.reloading--
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn().Err(err).Str("date", day.Format(models.DateLayout)).Msg("reload bookings failed")
		return day, err
	}
	return day, nil
}
