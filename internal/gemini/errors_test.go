package gemini

import (
	"errors"
	"strings"
	"testing"

	"github.com/oukeidos/photomotion/internal/apperrors"
	"google.golang.org/api/googleapi"
)

func TestClassifyGeminiError_CodeMapping(t *testing.T) {
	cases := []struct {
		code      int
		kind      apperrors.Kind
		retryable bool
	}{
		{400, apperrors.KindBadRequest, false},
		{401, apperrors.KindAuth, false},
		{403, apperrors.KindAuth, false},
		{404, apperrors.KindBadRequest, false},
		{429, apperrors.KindRateLimit, true},
		{503, apperrors.KindTransient, true},
		{599, apperrors.KindTransient, true},
		{418, apperrors.KindBadRequest, false},
	}
	for _, tc := range cases {
		err := classifyGeminiError(&googleapi.Error{Code: tc.code})
		assertErrorKind(t, err, tc.kind)
		if apperrors.IsRetryable(err) != tc.retryable {
			t.Fatalf("code %d: retryable = %v, want %v", tc.code, !tc.retryable, tc.retryable)
		}
	}
}

func TestClassifyGeminiError_Unknown(t *testing.T) {
	err := classifyGeminiError(errors.New("boom"))
	assertErrorKind(t, err, apperrors.KindTransient)
	if !apperrors.IsRetryable(err) {
		t.Fatalf("expected retryable error for unknown error")
	}
	if classifyGeminiError(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestClassifyGeminiError_DoesNotExposeRawMessage(t *testing.T) {
	raw := errors.New("SECRET_PROMPT_TEXT")
	err := classifyGeminiError(raw)
	if strings.Contains(err.Error(), "SECRET_PROMPT_TEXT") {
		t.Fatalf("expected safe message, got %q", err.Error())
	}
	if !errors.Is(err, raw) {
		t.Fatalf("cause should remain reachable")
	}
}

func assertErrorKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected apperrors.Error, got %T", err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, appErr.Kind)
	}
}
