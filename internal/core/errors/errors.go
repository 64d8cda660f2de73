package errors

const (
	HttpInternalError     = "internal_error"
	HttpUnauthorizedError = "unauthorized"
	HttpRefreshFailed     = "refresh_failed"
	HttpStatusCheckFailed = "mv_check_failed"
)

// ErrorResponse is the error response body for every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}
