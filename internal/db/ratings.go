package db

import "time"

const (
	RatingHeart = "heart"
	RatingPoop  = "poop"
)

type RoundRating struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	RoundID   string    `gorm:"size:36;not null;uniqueIndex:idx_round_ratings_voter" json:"round_id"`
	VoterID   string    `gorm:"size:64;not null;uniqueIndex:idx_round_ratings_voter" json:"voter_id"`
	PickerID  string    `gorm:"size:64;not null;index" json:"picker_id"`
	Rating    string    `gorm:"size:8;not null" json:"rating"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// PickerStat is the post-game rating tally for one picker in one room.
type PickerStat struct {
	RoomID    string    `gorm:"primaryKey;size:36" json:"room_id"`
	PickerID  string    `gorm:"primaryKey;size:64" json:"picker_id"`
	Nickname  string    `gorm:"size:32;not null" json:"nickname"`
	Hearts    int       `gorm:"not null;default:0" json:"hearts"`
	Poops     int       `gorm:"not null;default:0" json:"poops"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
