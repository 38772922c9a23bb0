package models

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName     string `gorm:"not null"             json:"fullname"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null"             json:"-"`
}

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null"     json:"name"`
}

// UserRole links a user to exactly one role. The unique index on UserID is
// what turns the many-to-many shape into one role per user.
type UserRole struct {
	ID     uint `gorm:"primaryKey"           json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	RoleID uint `gorm:"index;not null"       json:"role_id"`
}

// RefreshTokenInfo holds the single live refresh token for a user.
// Rotation overwrites Token in place; rows are never deleted.
type RefreshTokenInfo struct {
	ID     uint   `gorm:"primaryKey"           json:"id"`
	UserID uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Token  string `gorm:"uniqueIndex;not null" json:"-"`
}
