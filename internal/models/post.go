package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// URLHexBytes is the number of random bytes behind a post's public identifier.
const URLHexBytes = 8

// Post is a blog post. URLHex is the public identifier used in URLs; the
// UUID never leaves the server.
type Post struct {
	ID        uuid.UUID      `gorm:"type:text;primary_key" json:"-"`
	URLHex    string         `gorm:"uniqueIndex;size:32;not null" json:"url_hex"`
	AuthorID  uuid.UUID      `gorm:"type:text;index;not null" json:"-"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title     string         `gorm:"not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	LikeCount int64          `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the UUID and a random URLHex.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.URLHex == "" {
		h, err := NewURLHex()
		if err != nil {
			return err
		}
		p.URLHex = h
	}
	return nil
}

// NewURLHex returns a random lowercase hex identifier.
func NewURLHex() (string, error) {
	b := make([]byte, URLHexBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// PostLike records that a user likes a post. A user likes a post at most once.
type PostLike struct {
	PostID    uuid.UUID `gorm:"type:text;primaryKey" json:"post_id"`
	UserID    uuid.UUID `gorm:"type:text;primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
