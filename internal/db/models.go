// internal/db/models.go
package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// genres
type Genre struct {
	GenreID   uint   `gorm:"primaryKey;column:genre_id"`
	NameGenre string `gorm:"column:name_genre;size:50;not null;uniqueIndex"`
}

func (Genre) TableName() string { return "genres" }

// authors
type Author struct {
	AuthorID   uint   `gorm:"primaryKey;column:author_id"`
	NameAuthor string `gorm:"column:name_author;size:100;not null;uniqueIndex"`
}

func (Author) TableName() string { return "authors" }

// books
type Book struct {
	BookID   uint            `gorm:"primaryKey;column:book_id"`
	Title    string          `gorm:"size:100;not null;index"`
	AuthorID uint            `gorm:"column:author_id;not null"`
	GenreID  uint            `gorm:"column:genre_id;not null"`
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Amount   int             `gorm:"not null;default:0"`

	Author Author `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT"`
	Genre  Genre  `gorm:"foreignKey:GenreID;constraint:OnDelete:RESTRICT"`
}

func (Book) TableName() string { return "books" }

// cities
type City struct {
	CityID       uint   `gorm:"primaryKey;column:city_id"`
	NameCity     string `gorm:"column:name_city;size:50;not null;uniqueIndex"`
	DeliveryDays int    `gorm:"not null;default:1"`
}

func (City) TableName() string { return "cities" }

// clients
type Client struct {
	ClientID   uint   `gorm:"primaryKey;column:client_id"`
	NameClient string `gorm:"column:name_client;size:100;not null"`
	CityID     *uint  `gorm:"column:city_id;index"`
	Email      string `gorm:"size:100;not null;uniqueIndex"`

	City *City `gorm:"foreignKey:CityID;constraint:OnDelete:RESTRICT"`
}

func (Client) TableName() string { return "clients" }

// buy. created_at is set once by the service layer and never updated after.
type Buy struct {
	BuyID          uint      `gorm:"primaryKey;column:buy_id"`
	BuyDescription string    `gorm:"column:buy_description;size:200"`
	ClientID       uint      `gorm:"column:client_id;not null;index"`
	CreatedAt      time.Time `gorm:"not null"`

	Client Client `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
}

func (Buy) TableName() string { return "buy" }

// steps: open-ended lookup of fulfillment stage names, not a code enum.
type Step struct {
	StepID   uint   `gorm:"primaryKey;column:step_id"`
	NameStep string `gorm:"column:name_step;size:50;not null;uniqueIndex"`
}

func (Step) TableName() string { return "steps" }

// buy_steps: history of stage occurrences; DateStepEnd == nil means the
// stage is currently open.
type BuyStep struct {
	BuyStepID   uint       `gorm:"primaryKey;column:buy_step_id"`
	BuyID       uint       `gorm:"column:buy_id;not null;index"`
	StepID      uint       `gorm:"column:step_id;not null;index"`
	DateStepBeg time.Time  `gorm:"column:date_step_beg;not null"`
	DateStepEnd *time.Time `gorm:"column:date_step_end"`

	Buy  Buy  `gorm:"foreignKey:BuyID;constraint:OnDelete:RESTRICT"`
	Step Step `gorm:"foreignKey:StepID;constraint:OnDelete:RESTRICT"`
}

func (BuyStep) TableName() string { return "buy_steps" }

// buy_book: line items; Price is frozen at purchase time and never
// recomputed from books.price.
type BuyBook struct {
	BuyBookID uint            `gorm:"primaryKey;column:buy_book_id"`
	BuyID     uint            `gorm:"column:buy_id;not null;index"`
	BookID    uint            `gorm:"column:book_id;not null;index"`
	Amount    int             `gorm:"not null;default:1"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	Buy  Buy  `gorm:"foreignKey:BuyID;constraint:OnDelete:RESTRICT"`
	Book Book `gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT"`
}

func (BuyBook) TableName() string { return "buy_book" }

// feed_files: supplier feed ingestion log.
type FeedFile struct {
	FeedID      uint   `gorm:"primaryKey;column:feed_id"`
	Filename    string `gorm:"uniqueIndex"`
	SHA256      string `gorm:"uniqueIndex"`
	SizeBytes   int64
	Status      int       `gorm:"index"` // 0=pending, 1=done, 2=error
	LastError   string    `gorm:"type:text"`
	ReceivedAt  time.Time `gorm:"autoCreateTime"`
	ProcessedAt *time.Time
}

func (FeedFile) TableName() string { return "feed_files" }
