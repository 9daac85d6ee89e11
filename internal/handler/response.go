package handler

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: statusSuccess,
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  statusError,
		Message: message,
	}
}

// NewFieldErrorResponse carries per-field binding failures.
func NewFieldErrorResponse(errs interface{}) *Response {
	return &Response{
		Status: statusError,
		Errors: errs,
	}
}
