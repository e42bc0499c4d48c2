package response

const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeGone            = 410
	CodeTooManyRequests = 429
	CodeInternal        = 500
)
