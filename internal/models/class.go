package models

import (
	"time"

	"github.com/lib/pq"
)

// Class belongs to a school and holds the set of its members' user ids.
// (name, school_id) is unique.
type Class struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	SchoolID  string         `db:"school_id" json:"school"`
	MemberIDs pq.StringArray `db:"member_ids" json:"members"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// Occupied reports whether the class has at least one member.
func (c *Class) Occupied() bool {
	return len(c.MemberIDs) > 0
}
