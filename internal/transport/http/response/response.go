package response

type Resp struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, status, msg string, data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Status: status, Message: msg, Data: data}
}

// OK 成功响应
func OK(data any) Resp {
	return New(CodeOK, StatusSuccess, CodeMsgMap[CodeOK], data)
}

// Flash 成功但带提示级别（info/warning）
func Flash(status, msg string, data any) Resp {
	if status == "" {
		status = StatusSuccess
	}
	return New(CodeOK, status, msg, data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, StatusError, msg, nil)
}
