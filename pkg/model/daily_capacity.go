package model

import "time"

const DayLayout = "2006-01-02"

// DailyCapacity is the confirmed-booking quota of one doctor on one calendar day.
type DailyCapacity struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	DoctorID    int64     `json:"doctor_id" bson:"doctor_id"`
	Day         string    `json:"day" bson:"day"`
	Capacity    int       `json:"capacity" bson:"capacity"`
	BookedCount int       `json:"booked_count" bson:"booked_count"`
	Revision    int64     `json:"revision" bson:"revision"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

func (c *DailyCapacity) IsFull() bool {
	return c.BookedCount >= c.Capacity
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}
