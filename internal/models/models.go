package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JSON is a custom type for handling JSON data in PostgreSQL
type JSON map[string]interface{}

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("cannot scan non-[]byte into JSON")
	}

	if len(bytes) == 0 {
		*j = make(JSON)
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return json.Marshal(make(JSON))
	}
	return json.Marshal(j)
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a journal account holder
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Username string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"`
	Email    string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Role     string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Settings JSON      `gorm:"type:jsonb" json:"settings"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Trade is a journal trade row. Trades arrive from many places (manual entry,
// broker imports, copy events); this service only reads them, except for the
// copy-event ingestion path which records the target-side trade.
type Trade struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	// SourceTradeID is the provenance key: the identifier the originating
	// system used for this trade.
	SourceTradeID *string          `gorm:"type:varchar(255);index" json:"source_trade_id,omitempty"`
	OwnerID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"owner_id"`
	Symbol        string           `gorm:"type:varchar(50);not null" json:"symbol"`
	Side          string           `gorm:"type:varchar(10)" json:"side"`
	PnL           *decimal.Decimal `gorm:"column:pnl;type:numeric(20,8)" json:"pnl,omitempty"`
	ExitPrice     *decimal.Decimal `gorm:"type:numeric(20,8)" json:"exit_price,omitempty"`
	ClosedAt      *time.Time       `json:"closed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Trade) TableName() string {
	return "trades"
}

func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// EventStatusProcessed marks a copy event whose effects are committed.
const EventStatusProcessed = "processed"

// EventProcessing represents inbound copy event processing tracking
type EventProcessing struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	EventID      string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"event_id"`
	EventType    string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	AppID        *uuid.UUID `gorm:"type:uuid;index" json:"app_id,omitempty"`
	ProcessedAt  time.Time  `gorm:"index" json:"processed_at"`
	Status       string     `gorm:"type:varchar(20);default:'processed';index" json:"status"`
	RetryCount   int        `gorm:"default:0" json:"retry_count"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	Info         JSON       `gorm:"type:jsonb" json:"info"`
}

func (EventProcessing) TableName() string {
	return "event_processing"
}

func (e *EventProcessing) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}
	return nil
}

// AllModels lists every model for AutoMigrate in tests.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Trade{},
		&EventProcessing{},
		&LinkToken{},
		&ConnectedApp{},
		&CopyParams{},
		&CopiedTrade{},
		&Connection{},
		&SyncEvent{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
