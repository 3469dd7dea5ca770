package utils

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ToText converts a domain's primitive string to a pgtype.Text.
// An empty string is considered invalid (NULL).
func ToText(s string) pgtype.Text {
	return pgtype.Text{
		String: s,
		Valid:  s != "",
	}
}

// FromText converts a pgtype.Text to a domain's primitive string.
// A NULL value is converted to an empty string ("").
func FromText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// ToTimestamptz converts a *time.Time to a pgtype.Timestamptz.
// A nil pointer is considered invalid (NULL).
func ToTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// FromTimestamptz converts a pgtype.Timestamptz to a *time.Time.
func FromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

// ToInt4 converts an *int to a pgtype.Int4.
func ToInt4(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}

// FromInt4 converts a pgtype.Int4 to an *int.
func FromInt4(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}
