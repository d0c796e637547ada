package db

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	TotalScore  int       `gorm:"not null;default:0" json:"total_score"`
	GamesPlayed int       `gorm:"not null;default:0" json:"games_played"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// Session remembers the last room a user joined so they can be put back into
// it after a reload.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64"`
	RoomCode  string    `gorm:"size:6"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Word struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	Word       string `gorm:"size:64;not null;uniqueIndex:idx_words_pair" json:"word"`
	WordEn     string `gorm:"size:64;not null;uniqueIndex:idx_words_pair" json:"word_en"`
	Category   string `gorm:"size:64;not null" json:"category"`
	CategoryEn string `gorm:"size:64;not null" json:"category_en"`
	Length     int    `gorm:"not null" json:"length"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RoomID    string         `gorm:"size:36;index;not null" json:"room_id"`
	RoundID   *string        `gorm:"size:36;index" json:"round_id,omitempty"`
	UserID    *string        `gorm:"size:64;index" json:"user_id,omitempty"`
	Type      string         `gorm:"size:64;not null" json:"type"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}
