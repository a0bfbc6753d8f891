package domain

type Recipient struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Email  string `gorm:"size:150;not null" json:"email"`
	UserID uint   `gorm:"not null;index" json:"userId"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Recipient) TableName() string { return "recipients" }
