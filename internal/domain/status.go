package domain

import "strings"

// UserStatus 用户角色/状态，值与界面展示一致
type UserStatus string

const (
	StatusWorker       UserStatus = "pracownik"
	StatusGoldenWorker UserStatus = "złoty pracownik"
	StatusManager      UserStatus = "kierownik"
	StatusAdmin        UserStatus = "admin"
	StatusBlocked      UserStatus = "zablokowany"
)

var userStatuses = []UserStatus{StatusWorker, StatusGoldenWorker, StatusManager, StatusAdmin, StatusBlocked}

func UserStatuses() []UserStatus { return append([]UserStatus(nil), userStatuses...) }

func (s UserStatus) String() string { return string(s) }

func (s UserStatus) IsValid() bool {
	for _, v := range userStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ParseUserStatus(v string) (UserStatus, error) {
	s := UserStatus(strings.TrimSpace(v))
	if !s.IsValid() {
		return "", NewValidationError("status", v, "Nieprawidłowy status.")
	}
	return s, nil
}

// CanManage admin 与 kierownik 拥有管理权限
func CanManage(s UserStatus) bool { return s == StatusAdmin || s == StatusManager }

// ReceivesTripMail 新行程通知的收件人
func ReceivesTripMail(s UserStatus) bool { return s == StatusWorker || s == StatusGoldenWorker }

type Agency string

const (
	AgencyDPL Agency = "DPL"
	AgencyJMG Agency = "JMG"
	AgencySJ  Agency = "SJ"
	AgencyWP  Agency = "WP"
)

var agencies = []Agency{AgencyDPL, AgencyJMG, AgencySJ, AgencyWP}

func Agencies() []Agency { return append([]Agency(nil), agencies...) }

func (a Agency) IsValid() bool {
	for _, v := range agencies {
		if v == a {
			return true
		}
	}
	return false
}

func ParseAgency(v string) (Agency, error) {
	a := Agency(strings.TrimSpace(v))
	if !a.IsValid() {
		return "", NewValidationError("agency", v, "Nieprawidłowa agencja.")
	}
	return a, nil
}

type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeDark    Theme = "default_dark"
)

func (t Theme) IsValid() bool { return t == ThemeDefault || t == ThemeDark }

func ParseTheme(v string) (Theme, error) {
	t := Theme(strings.TrimSpace(v))
	if !t.IsValid() {
		return "", NewValidationError("theme", v, "Nieprawidłowy motyw.")
	}
	return t, nil
}

type SignupStatus string

const (
	SignupConfirmed   SignupStatus = "potwierdzony"
	SignupTentative   SignupStatus = "wstępnie zapisany"
	SignupReserve     SignupStatus = "rezerwowy"
	SignupUnavailable SignupStatus = "niedyspozycyjny"
)

func (s SignupStatus) IsValid() bool {
	switch s {
	case SignupConfirmed, SignupTentative, SignupReserve, SignupUnavailable:
		return true
	}
	return false
}

// Occupies 只有确认与预报名占用名额
func (s SignupStatus) Occupies() bool { return s == SignupConfirmed || s == SignupTentative }

// SignupAction 报名动作
type SignupAction string

const (
	ActionSignup  SignupAction = "signup"
	ActionDecline SignupAction = "decline"
	ActionConfirm SignupAction = "confirm"
	ActionCancel  SignupAction = "cancel"
)

func ParseSignupAction(v string) (SignupAction, error) {
	a := SignupAction(strings.TrimSpace(v))
	switch a {
	case ActionSignup, ActionDecline, ActionConfirm, ActionCancel:
		return a, nil
	}
	return "", NewValidationError("action", v, "Nieznana akcja.")
}
