package response

// AppError 统一错误包装，携带业务状态码与对外消息。
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	if message == "" {
		message = "internal error"
	}
	if code == 0 {
		code = CodeInternal
	}
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
