package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	OnboardingErrorBadInput         = "ONBOARDING_BAD_INPUT"
	OnboardingErrorSignatureInvalid = "ONBOARDING_SIGNATURE_INVALID"
	OnboardingErrorEventExpired     = "ONBOARDING_EVENT_EXPIRED"
	OnboardingErrorDuplicateEvent   = "ONBOARDING_DUPLICATE_EVENT"
	OnboardingErrorHandlerFailed    = "ONBOARDING_HANDLER_FAILED"
	OnboardingErrorRateLimited      = "ONBOARDING_RATE_LIMITED"
	OnboardingErrorNotFound         = "ONBOARDING_NOT_FOUND"
	OnboardingErrorExternalFailure  = "ONBOARDING_EXTERNAL_FAILURE"
	OnboardingErrorInternal         = "ONBOARDING_INTERNAL_ERROR"
)

func pipelineErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensurePipelineErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return newPipelineError(err.Error(), goerrors.CategoryAuth, OnboardingErrorSignatureInvalid)
	case strings.Contains(msg, "expired"), strings.Contains(msg, "stale"):
		return newPipelineError(err.Error(), goerrors.CategoryBadInput, OnboardingErrorEventExpired)
	case strings.Contains(msg, "duplicate"):
		return newPipelineError(err.Error(), goerrors.CategoryConflict, OnboardingErrorDuplicateEvent)
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "throttl"):
		return newPipelineError(err.Error(), goerrors.CategoryRateLimit, OnboardingErrorRateLimited)
	case strings.Contains(msg, "not found"):
		return newPipelineError(err.Error(), goerrors.CategoryNotFound, OnboardingErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newPipelineError(err.Error(), goerrors.CategoryBadInput, OnboardingErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensurePipelineErrorEnvelope(mapped)
}

func newPipelineError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensurePipelineErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensurePipelineErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = pipelineHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultPipelineTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultPipelineTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return OnboardingErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return OnboardingErrorSignatureInvalid
	case goerrors.CategoryConflict:
		return OnboardingErrorDuplicateEvent
	case goerrors.CategoryRateLimit:
		return OnboardingErrorRateLimited
	case goerrors.CategoryNotFound:
		return OnboardingErrorNotFound
	case goerrors.CategoryExternal:
		return OnboardingErrorExternalFailure
	case goerrors.CategoryOperation:
		return OnboardingErrorHandlerFailed
	default:
		return OnboardingErrorInternal
	}
}

func pipelineHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
