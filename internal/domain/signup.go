package domain

// Signup 用户与行程的报名关系，(trip_id, user_id) 唯一
type Signup struct {
	ID     uint         `gorm:"primaryKey" json:"id"`
	TripID uint         `gorm:"not null;uniqueIndex:idx_signup_trip_user" json:"tripId"`
	UserID uint         `gorm:"not null;uniqueIndex:idx_signup_trip_user;index" json:"userId"`
	Status SignupStatus `gorm:"size:50;not null" json:"status"`

	Trip *Trip `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (Signup) TableName() string { return "signups" }

// Occupied 占用名额 = potwierdzony + wstępnie zapisany
func Occupied(signups []Signup) int {
	n := 0
	for _, s := range signups {
		if s.Status.Occupies() {
			n++
		}
	}
	return n
}

// Available spots 为空按 0 处理，结果可以为负（金牌员工不受名额限制）
func Available(spots *int, occupied int) int {
	capacity := 0
	if spots != nil {
		capacity = *spots
	}
	return capacity - occupied
}
