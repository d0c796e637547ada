package db

import "time"

type HintType struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	Name      string       `gorm:"size:32;not null" json:"name"`
	NameEn    string       `gorm:"size:32;not null" json:"name_en"`
	Icon      string       `gorm:"size:16" json:"icon"`
	SortOrder int          `gorm:"not null;default:0" json:"sort_order"`
	Options   []HintOption `gorm:"foreignKey:TypeID" json:"options,omitempty"`
}

type HintOption struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	TypeID    string `gorm:"size:36;not null;index" json:"type_id"`
	Value     string `gorm:"size:64;not null" json:"value"`
	ValueEn   string `gorm:"size:64;not null" json:"value_en"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

// RoundHint occupies one of the five slots of a round. A hint type appears at
// most once per round.
type RoundHint struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	RoundID      string      `gorm:"size:36;not null;uniqueIndex:idx_round_hints_slot;uniqueIndex:idx_round_hints_type" json:"round_id"`
	HintTypeID   string      `gorm:"size:36;not null;uniqueIndex:idx_round_hints_type" json:"hint_type_id"`
	HintOptionID string      `gorm:"size:36;not null" json:"hint_option_id"`
	SlotNumber   int         `gorm:"not null;uniqueIndex:idx_round_hints_slot" json:"slot_number"`
	HintType     *HintType   `gorm:"foreignKey:HintTypeID" json:"hint_type,omitempty"`
	HintOption   *HintOption `gorm:"foreignKey:HintOptionID" json:"hint_option,omitempty"`
	CreatedAt    time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updated_at"`
}
