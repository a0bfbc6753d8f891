package response

import "net/http"

// 错误码直接使用 HTTP 状态码
const (
	CodeOK              = 0
	CodeBadRequest      = http.StatusBadRequest
	CodeUnauthorized    = http.StatusUnauthorized
	CodeForbidden       = http.StatusForbidden
	CodeNotFound        = http.StatusNotFound
	CodeConflict        = http.StatusConflict
	CodeTooLarge        = http.StatusRequestEntityTooLarge
	CodeTooManyRequests = http.StatusTooManyRequests
	CodeServerError     = http.StatusInternalServerError
	CodeBadGateway      = http.StatusBadGateway
	CodeUnavailable     = http.StatusServiceUnavailable
	CodeTimeout         = http.StatusGatewayTimeout
)

// CodeMsgMap 默认提示文案
var CodeMsgMap = map[int]string{
	CodeOK:              "OK",
	CodeBadRequest:      "Nieprawidłowe żądanie.",
	CodeUnauthorized:    "Zaloguj się, aby kontynuować.",
	CodeForbidden:       "Brak uprawnień.",
	CodeNotFound:        "Nie znaleziono.",
	CodeConflict:        "Operacja koliduje z istniejącymi danymi.",
	CodeTooLarge:        "Przesłane dane są zbyt duże.",
	CodeTooManyRequests: "Zbyt wiele żądań. Spróbuj ponownie za chwilę.",
	CodeServerError:     "Wystąpił nieoczekiwany błąd serwera.",
	CodeBadGateway:      "Nie udało się wysłać wiadomości.",
	CodeUnavailable:     "Serwer jest przeciążony.",
	CodeTimeout:         "Przekroczono czas oczekiwania.",
}

// Status 与前端 flash 分类一致
const (
	StatusSuccess = "success"
	StatusInfo    = "info"
	StatusWarning = "warning"
	StatusError   = "error"
)
