package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/consultorio/turnos/internal/platform/calendar"
)

// PGTime encodes a time of day for a TIME column.
func PGTime(t calendar.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(time.Duration(t) * time.Minute / time.Microsecond), Valid: true}
}

// TimeOfDay decodes a TIME column, dropping seconds.
func TimeOfDay(t pgtype.Time) calendar.TimeOfDay {
	return calendar.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond / time.Minute)
}
