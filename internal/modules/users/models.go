package users

import "time"

type User struct {
	ID    string `gorm:"type:char(36);primaryKey"`
	Email string `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`

	PasswordHash []byte `gorm:"type:varbinary(72);not null"`

	FirstName *string `gorm:"type:varchar(100)"`
	LastName  *string `gorm:"type:varchar(100)"`
	PhoneE164 *string `gorm:"type:varchar(20)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (User) TableName() string { return "users" }

func (u User) DisplayName() string {
	switch {
	case u.FirstName != nil && u.LastName != nil:
		return *u.FirstName + " " + *u.LastName
	case u.FirstName != nil:
		return *u.FirstName
	default:
		return u.Email
	}
}

// Address is a saved shipping address. Orders snapshot the chosen address as
// JSON; editing a saved address never rewrites history.
type Address struct {
	ID     string `gorm:"type:char(36);primaryKey"`
	UserID string `gorm:"type:char(36);not null;index:ix_addresses_user_id"`

	Label         string  `gorm:"type:varchar(50);not null"`
	RecipientName string  `gorm:"type:varchar(200);not null"`
	Phone         string  `gorm:"type:varchar(20);not null"`
	Line1         string  `gorm:"type:varchar(255);not null"`
	Line2         *string `gorm:"type:varchar(255)"`
	City          string  `gorm:"type:varchar(100);not null"`
	District      string  `gorm:"type:varchar(100);not null"`
	PostalCode    *string `gorm:"type:varchar(20)"`

	IsDefault bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Address) TableName() string { return "addresses" }
