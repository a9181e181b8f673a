package model

import "time"

type Session struct {
	ID        string    `gorm:"size:64;primaryKey"`
	User1ID   string    `gorm:"size:64;index;not null"`
	User2ID   string    `gorm:"size:64;index;not null"`
	Active    bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	LastSeen  time.Time `gorm:"not null"`
}
