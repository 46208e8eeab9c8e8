package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Property struct {
	ID          string `gorm:"primaryKey;size:36"`
	LandlordID  string `gorm:"size:64;not null;index"`
	Title       string `gorm:"size:200;not null"`
	Description string
	Address     string `gorm:"size:300"`
	City        string `gorm:"size:100;index"`
	// MonthlyRent is in minor currency units.
	MonthlyRent int64
	Bedrooms    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Property) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Application struct {
	ID          string   `gorm:"primaryKey;size:36"`
	PropertyID  string   `gorm:"size:36;not null;index"`
	Property    Property `gorm:"foreignKey:PropertyID"`
	ApplicantID string   `gorm:"size:64;not null;index"`
	// Status is stored text. It is read through applications.Normalize and
	// only written through applications.ToStorage.
	Status      string   `gorm:"size:32;not null;index"`
	Message     string
	Timeline    Timeline
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
	DecisionAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Tour struct {
	ID          string    `gorm:"primaryKey;size:36"`
	PropertyID  string    `gorm:"size:36;not null;index"`
	LandlordID  string    `gorm:"size:64;not null;index"`
	TenantID    string    `gorm:"size:64;not null;index"`
	ScheduledAt time.Time `gorm:"not null"`
	Status      string    `gorm:"size:32;not null"`
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Tour) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type Message struct {
	ID          string `gorm:"primaryKey;size:36"`
	SenderID    string `gorm:"size:64;not null;index"`
	RecipientID string `gorm:"size:64;not null;index"`
	PropertyID  string `gorm:"size:36;index"`
	Body        string `gorm:"not null"`
	ReadAt      *time.Time
	CreatedAt   time.Time
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type Favorite struct {
	UserID     string `gorm:"primaryKey;size:64"`
	PropertyID string `gorm:"primaryKey;size:36"`
	CreatedAt  time.Time
}

// Models lists every table, in dependency order, for AutoMigrate.
func Models() []any {
	return []any{&Property{}, &Application{}, &Tour{}, &Message{}, &Favorite{}}
}
