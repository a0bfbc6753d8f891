package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"grafik/internal/domain"
	"grafik/internal/notify"
	"grafik/internal/repo"
	"grafik/pkg/utils"
)

// activityEvery last_activity 最小刷新间隔
const activityEvery = time.Minute

type UserService struct{ d *Deps }

type RegisterInput struct {
	Name            string
	Surname         string
	Email           string
	Agency          string
	Password        string
	ConfirmPassword string
	AcceptTOS       bool
}

// Register 第一个注册的用户成为 admin；欢迎邮件失败不影响注册，mailFailed=true
func (s *UserService) Register(ctx context.Context, in RegisterInput) (u *domain.User, mailFailed bool, err error) {
	name, surname := strings.TrimSpace(in.Name), strings.TrimSpace(in.Surname)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err = checkName("name", name, "Imię musi mieć co najmniej 2 znaki."); err != nil {
		return nil, false, err
	}
	if err = checkName("surname", surname, "Nazwisko musi mieć co najmniej 2 znaki."); err != nil {
		return nil, false, err
	}
	if err = checkEmail("email", email); err != nil {
		return nil, false, err
	}
	agency, err := domain.ParseAgency(in.Agency)
	if err != nil {
		return nil, false, err
	}
	if err = checkNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, false, err
	}
	if !in.AcceptTOS {
		return nil, false, domain.NewValidationError("accept_tos", "", "Musisz zaakceptować regulamin.")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, false, err
	}

	u = &domain.User{
		Name:         name,
		Surname:      surname,
		Email:        email,
		Agency:       agency,
		PasswordHash: hash,
		Status:       domain.StatusWorker,
		Theme:        domain.ThemeDefault,
		AcceptedTOS:  true,
	}
	err = s.d.Store.Transaction(ctx, func(tx *repo.Store) error {
		if _, err := tx.Users.FindByEmail(ctx, email); err == nil {
			return domain.ErrEmailTaken
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		n, err := tx.Users.Count(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			u.Status = domain.StatusAdmin
		}
		return tx.Users.Create(ctx, u)
	})
	if err != nil {
		return nil, false, err
	}
	s.d.Log.Info("user registered", zap.Uint("user_id", u.ID), zap.String("status", string(u.Status)))

	msg := notify.Message{
		To:       []string{u.Email},
		Subject:  "Witaj w Grafiku!",
		Template: notify.TemplateWelcome,
		Data:     map[string]any{"user": notify.UserData(u), "url": strings.TrimRight(s.d.BaseURL, "/") + "/login"},
	}
	return u, s.d.notifyAll(ctx, []notify.Message{msg}) > 0, nil
}

// Login 邮箱或密码错误统一返回 ErrInvalidCredentials
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.d.Store.Users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}
	if u.Status == domain.StatusBlocked {
		return nil, "", domain.ErrAccountBlocked
	}
	token, err := s.d.JWT.Issue(u.ID, string(u.Status))
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	s.touch(ctx, u)
	return u, token, nil
}

// Authenticate 校验会话 token 并重新加载用户；被封禁的用户拒绝
func (s *UserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.d.JWT.Parse(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	u, err := s.d.Store.Users.FindByID(ctx, claims.UID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if u.Status == domain.StatusBlocked {
		return nil, domain.ErrAccountBlocked
	}
	s.touch(ctx, u)
	return u, nil
}

func (s *UserService) touch(ctx context.Context, u *domain.User) {
	now := s.d.now()
	if u.LastActivity != nil && now.Sub(*u.LastActivity) < activityEvery {
		return
	}
	if err := s.d.Store.Users.Touch(ctx, u.ID, now); err != nil {
		s.d.Log.Warn("touch last_activity", zap.Uint("user_id", u.ID), zap.Error(err))
		return
	}
	u.LastActivity = &now
}

// RequestReset 对外结果与账号是否存在无关；返回 true 表示邮件投递失败
func (s *UserService) RequestReset(ctx context.Context, email string) bool {
	u, err := s.d.Store.Users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.d.Log.Error("reset lookup", zap.Error(err))
		}
		return false
	}
	token, err := s.d.JWT.IssueReset(u.ID)
	if err != nil {
		s.d.Log.Error("issue reset token", zap.Uint("user_id", u.ID), zap.Error(err))
		return true
	}
	msg := notify.Message{
		To:       []string{u.Email},
		Subject:  "Resetowanie hasła - Grafik",
		Template: notify.TemplateResetPwd,
		Data: map[string]any{
			"user": notify.UserData(u),
			"url":  strings.TrimRight(s.d.BaseURL, "/") + "/reset_password/" + token,
		},
	}
	return s.d.notifyAll(ctx, []notify.Message{msg}) > 0
}

func (s *UserService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	claims, err := s.d.JWT.ParseReset(token)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	err = s.d.Store.Users.UpdateFields(ctx, claims.UID, map[string]any{"password_hash": hash})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidToken
	}
	return err
}

func (s *UserService) ChangePassword(ctx context.Context, u *domain.User, old, password, confirm string) error {
	if !utils.CheckPassword(old, u.PasswordHash) {
		return domain.NewValidationError("old_password", "", "Nieprawidłowe stare hasło.")
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.d.Store.Users.UpdateFields(ctx, u.ID, map[string]any{"password_hash": hash}); err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (s *UserService) UpdateDetails(ctx context.Context, u *domain.User, name, surname, agency string) error {
	name, surname = strings.TrimSpace(name), strings.TrimSpace(surname)
	if err := checkName("name", name, "Imię musi mieć co najmniej 2 znaki."); err != nil {
		return err
	}
	if err := checkName("surname", surname, "Nazwisko musi mieć co najmniej 2 znaki."); err != nil {
		return err
	}
	a, err := domain.ParseAgency(agency)
	if err != nil {
		return err
	}
	if err := s.d.Store.Users.UpdateFields(ctx, u.ID, map[string]any{"name": name, "surname": surname, "agency": a}); err != nil {
		return err
	}
	u.Name, u.Surname, u.Agency = name, surname, a
	return nil
}

func (s *UserService) ChangeAgency(ctx context.Context, u *domain.User, agency string) error {
	a, err := domain.ParseAgency(agency)
	if err != nil {
		return err
	}
	if err := s.d.Store.Users.UpdateFields(ctx, u.ID, map[string]any{"agency": a}); err != nil {
		return err
	}
	u.Agency = a
	return nil
}

func (s *UserService) ChangeTheme(ctx context.Context, u *domain.User, theme string) error {
	t, err := domain.ParseTheme(theme)
	if err != nil {
		return err
	}
	if err := s.d.Store.Users.UpdateFields(ctx, u.ID, map[string]any{"theme": t}); err != nil {
		return err
	}
	u.Theme = t
	return nil
}

// Profile 个人资料 + 收件人
type Profile struct {
	User       *domain.User       `json:"user"`
	Recipients []domain.Recipient `json:"recipients"`
}

func (s *UserService) Profile(ctx context.Context, u *domain.User) (*Profile, error) {
	rs, err := s.d.Store.Recipients.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, Recipients: rs}, nil
}

func (s *UserService) AddRecipient(ctx context.Context, u *domain.User, email string) (*domain.Recipient, error) {
	email = strings.TrimSpace(email)
	if err := checkEmail("email", email); err != nil {
		return nil, err
	}
	rc := &domain.Recipient{Email: email, UserID: u.ID}
	if err := s.d.Store.Recipients.Create(ctx, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

func (s *UserService) DeleteRecipient(ctx context.Context, u *domain.User, id uint) error {
	return s.d.Store.Recipients.DeleteOwned(ctx, id, u.ID)
}
