package domain

import "time"

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Surname      string     `gorm:"size:100;not null" json:"surname"`
	Email        string     `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Agency       Agency     `gorm:"size:150;not null" json:"agency"`
	PasswordHash string     `gorm:"size:256;not null" json:"-"`
	Status       UserStatus `gorm:"size:50;not null;default:pracownik;index" json:"status"`
	Theme        Theme      `gorm:"size:50;not null;default:default" json:"theme"`
	AcceptedTOS  bool       `gorm:"column:accepted_tos;not null;default:false" json:"acceptedTos"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string { return u.Name + " " + u.Surname }

func (u *User) CanManage() bool { return CanManage(u.Status) }
