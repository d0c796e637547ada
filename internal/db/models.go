package db

import "time"

const (
	RoomWaiting  = "waiting"
	RoomPlaying  = "playing"
	RoomFinished = "finished"

	RoundSelecting = "selecting"
	RoundGuessing  = "guessing"
	RoundEnded     = "ended"

	EndAllCorrect = "all_correct"
	EndTimeout    = "timeout"
	EndPickerLeft = "picker_left"
)

type Room struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Code               string    `gorm:"size:6;uniqueIndex;not null" json:"code"`
	Name               string    `gorm:"size:64;not null" json:"name"`
	IsPublic           bool      `gorm:"not null;default:false;index" json:"is_public"`
	Status             string    `gorm:"size:16;not null;index" json:"status"`
	CurrentRound       int       `gorm:"not null;default:0" json:"current_round"`
	CurrentPickerOrder int       `gorm:"not null;default:0" json:"current_picker_order"`
	MaxPlayers         int       `gorm:"not null" json:"max_players"`
	CreatedBy          string    `gorm:"size:64;not null" json:"created_by"`
	Finalized          bool      `gorm:"not null;default:false" json:"finalized"`
	CreatedAt          time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

type Player struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	RoomID      string    `gorm:"size:36;not null;uniqueIndex:idx_players_room_user" json:"room_id"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:idx_players_room_user" json:"user_id"`
	Nickname    string    `gorm:"size:32;not null" json:"nickname"`
	IsAdmin     bool      `gorm:"not null;default:false" json:"is_admin"`
	IsReady     bool      `gorm:"not null;default:false" json:"is_ready"`
	Score       int       `gorm:"not null;default:0" json:"score"`
	PlayerOrder int       `gorm:"not null" json:"player_order"`
	IsOnline    bool      `gorm:"not null;default:true" json:"is_online"`
	LastSeen    time.Time `gorm:"not null" json:"last_seen"`
	Guest       bool      `gorm:"not null;default:false" json:"guest"`
	JoinedAt    time.Time `gorm:"not null" json:"joined_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

type Round struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	RoomID       string     `gorm:"size:36;not null;uniqueIndex:idx_rounds_room_number" json:"room_id"`
	RoundNumber  int        `gorm:"not null;uniqueIndex:idx_rounds_room_number" json:"round_number"`
	PickerID     string     `gorm:"size:64;not null" json:"picker_id"`
	Word         string     `gorm:"size:64" json:"word,omitempty"`
	WordEn       string     `gorm:"size:64" json:"word_en,omitempty"`
	Category     string     `gorm:"size:64" json:"category,omitempty"`
	CategoryEn   string     `gorm:"size:64" json:"category_en,omitempty"`
	WordLength   int        `gorm:"not null;default:0" json:"word_length,omitempty"`
	WordLengthEn int        `gorm:"not null;default:0" json:"word_length_en,omitempty"`
	Status       string     `gorm:"size:16;not null" json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	EndReason    string     `gorm:"size:16" json:"end_reason,omitempty"`
	PickerScored bool       `gorm:"not null;default:false" json:"picker_scored"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

type Guess struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	RoundID    string    `gorm:"size:36;not null;index" json:"round_id"`
	UserID     string    `gorm:"size:64;not null" json:"user_id"`
	Nickname   string    `gorm:"size:32;not null" json:"nickname"`
	Text       string    `gorm:"size:120;not null" json:"text"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"is_correct"`
	Points     int       `gorm:"not null;default:0" json:"points"`
	GuessOrder *int      `json:"guess_order,omitempty"`
	GuessedAt  time.Time `gorm:"not null;index" json:"guessed_at"`
}
