// Package identity holds the users and office visits the workflow references.
// The workflow never mutates these; they are resolved, not owned.
package identity

import "time"

// User maps to the app_user table.
type User struct {
	Username    string    `db:"username" json:"username"`
	Role        string    `db:"role" json:"role"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Visit maps to the office_visit table. One lab order is always tied to
// exactly one visit, and the visit names the patient it belongs to.
type Visit struct {
	ID        int64     `db:"id" json:"id"`
	Patient   string    `db:"patient" json:"patient"`
	VisitedAt time.Time `db:"visited_at" json:"visited_at"`
}
