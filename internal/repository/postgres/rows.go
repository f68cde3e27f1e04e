package postgres

import (
	"time"

	"github.com/sakif/coursehub/internal/model"
)

type userRow struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"not null"`
	PasswordHash string `gorm:"not null;default:''"`
	Image        string `gorm:"not null;default:''"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Image:        r.Image,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type oauthAccountRow struct {
	Provider          string  `gorm:"primaryKey"`
	ProviderAccountID string  `gorm:"primaryKey"`
	UserID            int64   `gorm:"not null;index"`
	User              userRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (oauthAccountRow) TableName() string { return "oauth_accounts" }

type courseRow struct {
	ID      int64  `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	NameKey string `gorm:"column:name_key;not null;uniqueIndex"`
}

func (courseRow) TableName() string { return "courses" }

type reviewRow struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;index"`
	User      userRow   `gorm:"foreignKey:UserID"`
	CourseID  int64     `gorm:"not null;index"`
	Course    courseRow `gorm:"foreignKey:CourseID"`
	Rating    int       `gorm:"not null;check:rating >= 0 AND rating <= 5"`
	Comment   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (reviewRow) TableName() string { return "reviews" }

// reviewJoinRow is one row of the reviews ⋈ courses ⋈ users query.
type reviewJoinRow struct {
	ID         int64
	UserID     int64
	CourseID   int64
	Rating     int
	Comment    string
	CreatedAt  time.Time
	CourseName string
	UserName   string
	UserImage  string
}

func (r reviewJoinRow) toModel() model.Review {
	return model.Review{
		ID:        r.ID,
		UserID:    r.UserID,
		CourseID:  r.CourseID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		Course:    model.Course{ID: r.CourseID, Name: r.CourseName},
		User:      model.PublicUser{ID: r.UserID, Name: r.UserName, Image: r.UserImage},
	}
}
