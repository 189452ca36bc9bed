package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidID       = 1004
	ErrCodeInvalidIndex    = 1005
	ErrCodeInvalidSlot     = 1006
	ErrCodeDecodeFailed    = 1007

	// Domain state (2xxx)
	ErrCodeMessageNotFound    = 2001
	ErrCodeNoteNotFound       = 2002
	ErrCodeAttachmentNotFound = 2003
	ErrCodeNoteIDExists       = 2101
	ErrCodeConflict           = 2102

	// Auth (3xxx)
	ErrCodeUnauthorized = 3001

	// Internal/system (4xxx)
	ErrCodeInternal      = 4001
	ErrCodeStoreFailure  = 4002
	ErrCodeCorrupt       = 4006
	ErrCodeDecryptFailed = 4007
	ErrCodeParseFailed   = 4008
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 404:
		return ErrCodeAttachmentNotFound
	case 409:
		return ErrCodeConflict
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
