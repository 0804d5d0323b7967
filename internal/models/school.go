package models

import (
	"time"

	"github.com/lib/pq"
)

// School is a top-level organisation owning an ordered list of classes.
type School struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Description    string         `db:"description" json:"description"`
	UniqueName     string         `db:"unique_name" json:"uniqueName"`
	TimezoneOffset float64        `db:"timezone_offset" json:"timezoneOffset"`
	ClassIDs       pq.StringArray `db:"class_ids" json:"classes"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// timezoneOffsets lists the UTC offsets (in hours) in use worldwide.
var timezoneOffsets = []float64{
	-12, -11, -10, -9.5, -9, -8, -7, -6, -5, -4, -3.5, -3, -2, -1,
	0, 1, 2, 3, 3.5, 4, 4.5, 5, 5.5, 5.75, 6, 6.5, 7, 8, 8.75, 9, 9.5,
	10, 10.5, 11, 12, 12.75, 13, 14,
}

// ValidTimezoneOffset reports whether offset is a real-world UTC offset.
func ValidTimezoneOffset(offset float64) bool {
	for _, o := range timezoneOffsets {
		if o == offset {
			return true
		}
	}
	return false
}
