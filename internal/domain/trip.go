package domain

import "time"

const (
	// MinSpots/MaxSpots 仅约束手动新增
	MinSpots = 1
	MaxSpots = 7

	DateLayout = "2006-01-02"
)

type Trip struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Title               string    `gorm:"size:200;not null" json:"title"`
	TripDate            time.Time `gorm:"type:date;not null;index" json:"tripDate"`
	IsConfirmed         bool      `gorm:"not null;default:false" json:"isConfirmed"`
	Spots               *int      `gorm:"default:1" json:"spots"`
	StartTime           *Clock    `gorm:"size:8" json:"startTime"`
	DepartureTime       *Clock    `gorm:"size:8" json:"departureTime"`
	WorkStartTime       *Clock    `gorm:"size:8" json:"workStartTime"`
	WorkEndTime         *Clock    `gorm:"size:8" json:"workEndTime"`
	Notes               string    `gorm:"type:text" json:"notes"`
	Kilometers          *float64  `json:"kilometers"`
	ManagerWasPassenger bool      `gorm:"not null;default:false" json:"managerWasPassenger"`
	IsArchived          bool      `gorm:"not null;default:false;index" json:"isArchived"`
	LastModified        time.Time `json:"lastModified"` // 由服务层按注入时钟写入

	// 删除 manager 时保留行程
	ManagerID *uint `gorm:"index" json:"managerId"`
	Manager   *User `gorm:"foreignKey:ManagerID;constraint:OnDelete:SET NULL" json:"manager,omitempty"`
}

func (Trip) TableName() string { return "trips" }

// IsPast 行程日期早于 today（按日比较）
func (t *Trip) IsPast(today time.Time) bool {
	return t.TripDate.Before(DateOnly(today))
}

// DateOnly 截断到 UTC 零点，所有 trip_date 都以此形式存取
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(v string) (time.Time, error) {
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, NewValidationError("trip_date", v, "Nieprawidłowa data.")
	}
	return t, nil
}

func IntPtr(v int) *int { return &v }
