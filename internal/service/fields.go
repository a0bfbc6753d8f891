package service

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"grafik/internal/domain"
)

var validate = validator.New()

func checkEmail(field, v string) error {
	if err := validate.Var(v, "required,email,max=150"); err != nil {
		return domain.NewValidationError(field, v, "Podaj poprawny adres e-mail.")
	}
	return nil
}

func checkName(field, v, msg string) error {
	if err := validate.Var(v, "required,min=2,max=100"); err != nil {
		return domain.NewValidationError(field, v, msg)
	}
	return nil
}

func checkNewPassword(pw, confirm string) error {
	if len([]rune(pw)) < 6 {
		return domain.NewValidationError("password", "", "Hasło musi mieć co najmniej 6 znaków.")
	}
	if pw != confirm {
		return domain.NewValidationError("confirm_password", "", "Hasła muszą być takie same.")
	}
	return nil
}

// parseClockField 空串 -> nil
func parseClockField(field, v string) (*domain.Clock, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	c, err := domain.ParseClock(v)
	if err != nil {
		return nil, domain.NewValidationError(field, v, "Nieprawidłowy format godziny: "+v)
	}
	return &c, nil
}

// parseSpotsField 空串 -> 1
func parseSpotsField(v string) (*int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.IntPtr(1), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, domain.NewValidationError("spots", v, "Liczba miejsc musi być liczbą całkowitą: "+v)
	}
	return &n, nil
}

// parseKilometers 接受逗号或点作小数分隔符，空串 -> nil
func parseKilometers(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.Replace(v, ",", ".", 1))
	if err != nil {
		return nil, domain.NewValidationError("km", v, "Nieprawidłowa liczba kilometrów: "+v)
	}
	km := d.Round(2).InexactFloat64()
	return &km, nil
}
