package models

import "time"

// CheckIn is one member's gym check-in for one calendar day.
// (user_id, check_date) is unique; a retake replaces ProofURL in place.
type CheckIn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_checkin_user_date,unique" json:"user_id"`
	CheckDate string    `gorm:"size:10;not null;index;index:idx_checkin_user_date,unique" json:"date"` // YYYY-MM-DD in the group timezone
	ProofURL  string    `gorm:"size:1024;not null" json:"proof_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table so the unique index lands on check_ins.
func (CheckIn) TableName() string {
	return "check_ins"
}
