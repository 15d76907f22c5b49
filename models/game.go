package models

import (
	"time"
)

type Game struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"not null;index"`
	Name        string     `json:"name" gorm:"size:255;not null"`
	Difficulty  string     `json:"difficulty" gorm:"size:20;not null"`
	Genre       string     `json:"genre" gorm:"size:100;default:'Unknown'"`
	Progress    int        `json:"progress" gorm:"not null;default:0"` // 0-100
	Playtime    int        `json:"playtime" gorm:"not null;default:0"` // seconds
	Status      GameStatus `json:"status" gorm:"type:varchar(20);not null;default:'playing'"`
	CoverImage  *string    `json:"cover_image"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"index"`

	// Relationships
	User   *User   `json:"-"`
	Quests []Quest `json:"-" gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}
