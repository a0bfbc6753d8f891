package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"grafik/internal/domain"
	resp "grafik/internal/transport/http/response"
)

// AErr 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code  int
	Msg   string
	Level string // 表单请求的 flash 级别，默认 error
	Err   error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: http.StatusBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: http.StatusUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: http.StatusForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: http.StatusNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: http.StatusConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: http.StatusInternalServerError, Msg: msg, Err: err}
}

func TooLarge() *AErr {
	return &AErr{Code: http.StatusRequestEntityTooLarge, Msg: resp.CodeMsgMap[http.StatusRequestEntityTooLarge]}
}

// Warning 400，但表单请求里按 warning 提示
func Warning(msg string) error {
	return &AErr{Code: http.StatusBadRequest, Msg: msg, Level: resp.StatusWarning}
}

var domainErrors = []struct {
	err  error
	code int
	msg  string
}{
	{domain.ErrNotFound, http.StatusNotFound, ""},
	{domain.ErrUnauthorized, http.StatusUnauthorized, ""},
	{domain.ErrForbidden, http.StatusForbidden, ""},
	{domain.ErrConflict, http.StatusConflict, ""},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Nieprawidłowy e-mail lub hasło."},
	{domain.ErrAccountBlocked, http.StatusForbidden, "Twoje konto jest zablokowane. Skontaktuj się z administratorem."},
	{domain.ErrLastAdmin, http.StatusConflict, "Nie można zmienić statusu jedynemu administratorowi."},
	{domain.ErrEmailTaken, http.StatusConflict, "Ten adres e-mail jest już zarejestrowany."},
	{domain.ErrInvalidToken, http.StatusBadRequest, "Link do resetowania hasła jest nieprawidłowy lub wygasł."},
	{domain.ErrNoRecipients, http.StatusBadRequest, "Nie zdefiniowano żadnych odbiorców w Twoim profilu."},
	{domain.ErrTripArchived, http.StatusForbidden, "To zlecenie zostało zarchiwizowane i nie jest już dostępne."},
	{domain.ErrExportNotAllowed, http.StatusForbidden, "Ta funkcja jest dostępna tylko dla użytkowników agencji DPL."},
	{domain.ErrDeliveryFailed, http.StatusBadGateway, ""},
}

// FromError 任意错误 -> AErr；未知错误一律 500 + 通用提示，细节只进日志
func FromError(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		out := *ae
		if out.Msg == "" {
			out.Msg = resp.CodeMsgMap[out.Code]
		}
		return &out
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return &AErr{Code: http.StatusBadRequest, Msg: ve.Msg, Err: err}
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		ae := TooLarge()
		ae.Err = err
		return ae
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			msg := m.msg
			if msg == "" {
				msg = resp.CodeMsgMap[m.code]
			}
			return &AErr{Code: m.code, Msg: msg, Err: err}
		}
	}
	return &AErr{Code: http.StatusInternalServerError, Msg: resp.CodeMsgMap[http.StatusInternalServerError], Err: err}
}

var tagMessages = map[string]string{
	"required": "Pole %s jest wymagane.",
	"email":    "Podaj poprawny adres e-mail.",
	"min":      "Pole %s jest za krótkie.",
	"max":      "Pole %s jest za długie.",
	"eqfield":  "Hasła muszą być takie same.",
	"agency":   "Wybrano nieprawidłową agencję.",
	"oneof":    "Pole %s ma nieprawidłową wartość.",
}

// BindError 绑定/校验失败 -> 400，只取第一个字段
func BindError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return FromError(err)
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		tpl, ok := tagMessages[fe.Tag()]
		if !ok {
			tpl = "Pole %s jest nieprawidłowe."
		}
		msg := tpl
		if strings.Contains(tpl, "%s") {
			msg = fmt.Sprintf(tpl, fe.Field())
		}
		return &AErr{Code: http.StatusBadRequest, Msg: msg, Err: err}
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		// JSON 类型不符（如数字字段给了字符串），不做隐式转换
		return &AErr{Code: http.StatusBadRequest, Msg: fmt.Sprintf("Pole %s ma nieprawidłowy typ.", ute.Field), Err: err}
	}
	if errors.Is(err, io.EOF) {
		return &AErr{Code: http.StatusBadRequest, Msg: "Brak danych JSON.", Err: err}
	}
	return &AErr{Code: http.StatusBadRequest, Msg: "Nieprawidłowe dane formularza.", Err: err}
}
