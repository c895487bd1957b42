package models

import "time"

// ProofFile records a stored proof photo so superseded ones can be removed later.
type ProofFile struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index:idx_proof_user_date" json:"user_id"`
	CheckDate  string     `gorm:"size:10;not null;index:idx_proof_user_date" json:"date"`
	FilePath   string     `gorm:"size:1024;not null" json:"file_path"` // absolute or relative filesystem path
	URL        string     `gorm:"size:1024;not null" json:"url"`       // public URL like /static/proofs/...
	ReplacedAt *time.Time `gorm:"index" json:"replaced_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
