package model

import "time"

// Setting is one entry of the local key-value store (auth token and the like).
type Setting struct {
	Name      string `gorm:"primaryKey"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
