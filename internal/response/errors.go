package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden           ErrCode = "FORBIDDEN"
	ErrTestTakerAccessOnly ErrCode = "TEST_TAKER_ACCESS_ONLY"
	ErrNotSessionOwner     ErrCode = "NOT_SESSION_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Adaptive session ──────────────────────────────────────────────
	ErrAssessmentNotFound      ErrCode = "ASSESSMENT_NOT_FOUND"
	ErrSessionNotFound         ErrCode = "SESSION_NOT_FOUND"
	ErrQuestionNotFound        ErrCode = "QUESTION_NOT_FOUND"
	ErrSessionCompleted        ErrCode = "SESSION_COMPLETED"
	ErrQuestionNotInPool       ErrCode = "QUESTION_NOT_IN_POOL"
	ErrQuestionAlreadyAnswered ErrCode = "QUESTION_ALREADY_ANSWERED"
	ErrSessionBusy             ErrCode = "SESSION_BUSY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrTestTakerAccessOnly:
		return "Sumber daya ini terbatas untuk peserta tes."
	case ErrNotSessionOwner:
		return "Sesi ini milik peserta lain."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."

	// ─── Adaptive session ──────────────────────────────────────────────
	case ErrAssessmentNotFound:
		return "Asesmen tidak ditemukan."
	case ErrSessionNotFound:
		return "Sesi asesmen tidak ditemukan."
	case ErrQuestionNotFound:
		return "Soal tidak ditemukan."
	case ErrSessionCompleted:
		return "Sesi asesmen sudah selesai."
	case ErrQuestionNotInPool:
		return "Soal bukan bagian dari asesmen ini."
	case ErrQuestionAlreadyAnswered:
		return "Soal ini sudah dijawab pada sesi ini."
	case ErrSessionBusy:
		return "Sesi sedang memproses jawaban lain. Silakan coba lagi."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
