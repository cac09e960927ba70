package diary

import (
	"time"

	"github.com/carelab/carelab/internal/domain/errs"
)

// DateLayout is the wire and storage format for diary dates. Entries carry a
// calendar date only, no time of day.
const DateLayout = "2006-01-02"

// Entry maps to the blood_sugar_entry table. One row per patient per date;
// resubmitting the same date replaces the readings.
type Entry struct {
	ID        int64     `db:"id" json:"id"`
	Patient   string    `db:"patient" json:"patient"`
	Date      string    `db:"entry_date" json:"date"`
	Fasting   int       `db:"fasting" json:"fasting"`
	Breakfast int       `db:"breakfast" json:"breakfast"`
	Lunch     int       `db:"lunch" json:"lunch"`
	Dinner    int       `db:"dinner" json:"dinner"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the entry field by field in a fixed order and reports the
// first failure only, so callers get a stable error for a given input.
func (e *Entry) Validate(now time.Time) error {
	d, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return errs.Validation("date", "must be a date in YYYY-MM-DD form")
	}
	if d.After(now) {
		return errs.Validation("date", "must not be in the future")
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"fasting", e.Fasting},
		{"breakfast", e.Breakfast},
		{"lunch", e.Lunch},
		{"dinner", e.Dinner},
	} {
		if f.value < 0 {
			return errs.Validation(f.name, "must be a non-negative integer")
		}
	}
	return nil
}
