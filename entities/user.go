package entities

// User is a registered account. Password always holds the bcrypt hash once
// the user has been stored. Usernames never contain "@" so a login string
// cannot name one user by username and another by email.
type User struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:50;not null;uniqueIndex:idx_users_username" json:"username" validate:"required,min=3,max=50,excludes=@"`
	Email    string `gorm:"not null;uniqueIndex:idx_users_email" json:"email" validate:"required,email"`
	Password string `gorm:"not null" json:"-" validate:"required,min=6,max=72"`
	Enabled  bool   `gorm:"not null;default:true" json:"enabled"`

	// SessionVersion is stamped into every session token; bumping it
	// revokes all tokens issued before.
	SessionVersion uint64 `gorm:"not null;default:0" json:"-"`

	TodoItems []TodoItem `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-" validate:"-"`
}

// Resolved reports whether u refers to a stored user.
func (u *User) Resolved() bool {
	return u != nil && u.ID != 0
}
