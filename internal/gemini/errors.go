package gemini

import (
	"errors"
	"fmt"

	"github.com/oukeidos/photomotion/internal/apperrors"
	"google.golang.org/api/googleapi"
)

// classifyGeminiError maps SDK failures to kinds. The rendered message never
// includes the raw upstream text, which may echo request content.
func classifyGeminiError(err error) error {
	if err == nil {
		return nil
	}

	wrapped := fmt.Errorf("gemini generate content failed: %w", err)

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 400:
			return apperrors.Safe(apperrors.KindBadRequest, "Gemini request rejected (400).", wrapped)
		case 404:
			return apperrors.Safe(apperrors.KindBadRequest, "Gemini model not found or no access (404).", wrapped)
		case 401, 403:
			return apperrors.Safe(apperrors.KindAuth, fmt.Sprintf("Gemini authentication/authorization failed (%d).", gerr.Code), wrapped)
		case 429:
			return apperrors.Safe(apperrors.KindRateLimit, "Gemini rate limit exceeded (429). Please try again later.", wrapped)
		default:
			if gerr.Code >= 500 {
				return apperrors.Safe(apperrors.KindTransient, fmt.Sprintf("Gemini service temporary error (%d). Please retry.", gerr.Code), wrapped)
			}
			return apperrors.Safe(apperrors.KindBadRequest, fmt.Sprintf("Gemini API error (%d).", gerr.Code), wrapped)
		}
	}

	// Non-HTTP failures (DNS, socket, timeout) are usually transient.
	return apperrors.Safe(apperrors.KindTransient, "Gemini request failed due to a temporary network/runtime error.", wrapped)
}
