package domain

import "time"

// MaxTitleLength is the longest todo title accepted, counted in characters.
const MaxTitleLength = 100

type Todo struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"`
	Title     string    `gorm:"not null"`
	Completed bool      `gorm:"column:is_completed;not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TodoPatch lists the fields of a partial update. Nil fields are left as they are.
type TodoPatch struct {
	Title     *string
	Completed *bool
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Completed == nil
}
