package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Leganyst/consulting-platform/internal/domain"
)

type windowInput struct {
	Day      int    `json:"day_of_week" validate:"min=0,max=6"`
	Start    string `json:"start" validate:"required,clock"`
	TimeZone string `json:"time_zone" validate:"omitempty,iana_tz"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func TestStructOK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(windowInput{Day: 6, Start: "09:30", TimeZone: "Europe/Moscow"}))
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	v := New()
	err := v.Struct(windowInput{Day: 7, Start: "25:00", TimeZone: "Mars/Base", Email: "nope"})

	assert.ErrorIs(t, err, domain.ErrValidation)
	msg := err.Error()
	assert.Contains(t, msg, "day_of_week must be at most 6")
	assert.Contains(t, msg, "start must be a time of day HH:MM")
	assert.Contains(t, msg, "time_zone must be an IANA time zone")
	assert.Contains(t, msg, "email must be a valid email")
}
