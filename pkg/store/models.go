package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Seq gives history lists a stable
// newest-first order independent of the display date strings.
type UploadRecordModel struct {
	Seq       uint   `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex;not null"`
	Name      string `gorm:"not null"`
	Type      string `gorm:"not null"`
	Date      string `gorm:"not null"`
	Time      string `gorm:"not null"`
	Status    string `gorm:"not null"`
	Size      string `gorm:"not null"`
	CreatedAt time.Time
}

type QueryRecordModel struct {
	Seq          uint   `gorm:"primaryKey;autoIncrement"`
	ID           string `gorm:"uniqueIndex;not null"`
	Query        string `gorm:"type:text;not null"`
	Date         string `gorm:"not null"`
	Time         string `gorm:"not null"`
	SourcesCount int    `gorm:"not null"`
	CreatedAt    time.Time
}

type NotificationModel struct {
	Email     string         `gorm:"primaryKey"`
	Prefs     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

type ChunkModel struct {
	ID        string         `gorm:"primaryKey"`
	SourceID  string         `gorm:"not null;index"`
	Content   string         `gorm:"type:text;not null"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}
