package openrouter

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// ErrorKind tags an upstream failure.
type ErrorKind string

const (
	KindRateLimited         ErrorKind = "rate_limited"
	KindInsufficientCredits ErrorKind = "insufficient_credits"
	KindModeration          ErrorKind = "moderation"
	KindInvalidModel        ErrorKind = "invalid_model"
	KindConfiguration       ErrorKind = "configuration"
	KindBadRequest          ErrorKind = "bad_request"
	KindAuthentication      ErrorKind = "authentication"
	KindTimeout             ErrorKind = "timeout"
	KindModelUnavailable    ErrorKind = "model_unavailable"
	KindUnknownAPI          ErrorKind = "unknown_api"
)

// GenericUserMessage is shown for errors outside the upstream taxonomy.
const GenericUserMessage = "An error occurred. Please try again later."

// Error is a classified upstream failure. Message carries technical detail for logs;
// only UserMessage is meant for end users.
type Error struct {
	Kind              ErrorKind
	StatusCode        int
	Message           string
	RetryAfterSeconds *int   // Set for RateLimited when the reset time is known.
	Link              string // Remediation URL for Configuration errors.
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("openrouter %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openrouter %s: %s", e.Kind, e.Message)
}

// UserMessage returns the curated text for end users.
func (e *Error) UserMessage() string {
	if e == nil {
		return GenericUserMessage
	}
	switch e.Kind {
	case KindRateLimited:
		if e.RetryAfterSeconds != nil && *e.RetryAfterSeconds > 0 {
			return fmt.Sprintf("Rate limit reached. Please try again in %d seconds.", *e.RetryAfterSeconds)
		}
		return "Rate limit reached. Please try again later."
	case KindInsufficientCredits:
		return "API credits are exhausted. Please contact the bot operator."
	case KindModeration:
		return "Your input was restricted by moderation. Please rephrase and try again."
	case KindInvalidModel:
		return "The selected model does not exist. Use `/disqord model set` to choose a valid model."
	case KindConfiguration:
		if e.Link != "" {
			return "The upstream account needs configuration: " + e.Link
		}
		return "The upstream account needs configuration. Please contact the bot operator."
	case KindBadRequest:
		return "There was a problem with the request. Please check your input."
	case KindAuthentication:
		return "The bot is misconfigured. Please contact the bot operator."
	case KindTimeout:
		return "The response took too long. Please try a shorter message."
	case KindModelUnavailable:
		return "The model is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred. If it persists, contact the bot operator."
	}
}

// NewRateLimitedError builds a RateLimited error; retryAfter may be nil.
func NewRateLimitedError(message string, retryAfter *int) *Error {
	return &Error{Kind: KindRateLimited, StatusCode: http.StatusTooManyRequests, Message: message, RetryAfterSeconds: retryAfter}
}

// NewInsufficientCreditsError builds an InsufficientCredits error.
func NewInsufficientCreditsError(message string) *Error {
	return &Error{Kind: KindInsufficientCredits, StatusCode: http.StatusPaymentRequired, Message: message}
}

// NewModerationError builds a Moderation error.
func NewModerationError(message string) *Error {
	return &Error{Kind: KindModeration, StatusCode: http.StatusForbidden, Message: message}
}

// NewInvalidModelError builds an InvalidModel error.
func NewInvalidModelError(message string) *Error {
	return &Error{Kind: KindInvalidModel, StatusCode: http.StatusBadRequest, Message: message}
}

// NewConfigurationError builds a Configuration error carrying the remediation link.
func NewConfigurationError(message, link string) *Error {
	return &Error{Kind: KindConfiguration, StatusCode: http.StatusBadRequest, Message: message, Link: link}
}

// NewBadRequestError builds a BadRequest error.
func NewBadRequestError(message string) *Error {
	return &Error{Kind: KindBadRequest, StatusCode: http.StatusBadRequest, Message: message}
}

// NewAuthenticationError builds an Authentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, StatusCode: http.StatusUnauthorized, Message: message}
}

// NewTimeoutError builds a Timeout error.
func NewTimeoutError(message string) *Error {
	return &Error{Kind: KindTimeout, StatusCode: http.StatusRequestTimeout, Message: message}
}

// NewModelUnavailableError builds a ModelUnavailable error for a 500, 502 or 503.
func NewModelUnavailableError(message string, status int) *Error {
	return &Error{Kind: KindModelUnavailable, StatusCode: status, Message: message}
}

// NewUnknownAPIError builds an UnknownApi error keeping the status for logs.
func NewUnknownAPIError(message string, status int) *Error {
	return &Error{Kind: KindUnknownAPI, StatusCode: status, Message: message}
}

var statusClassifiers = map[int]func(status int, detail errorDetail) *Error{
	http.StatusBadRequest: classifyBadRequest,
	http.StatusUnauthorized: func(_ int, d errorDetail) *Error {
		return NewAuthenticationError(d.message)
	},
	http.StatusPaymentRequired: func(_ int, d errorDetail) *Error {
		return NewInsufficientCreditsError(d.message)
	},
	http.StatusForbidden: func(_ int, d errorDetail) *Error {
		return NewModerationError(d.message)
	},
	http.StatusRequestTimeout: func(_ int, d errorDetail) *Error {
		return NewTimeoutError(d.message)
	},
	http.StatusInternalServerError: unavailable,
	http.StatusBadGateway:          unavailable,
	http.StatusServiceUnavailable:  unavailable,
}

func unavailable(status int, d errorDetail) *Error {
	return NewModelUnavailableError(d.message, status)
}

var settingsLinkPattern = regexp.MustCompile(`https?://(?:www\.)?openrouter\.ai/settings[^\s"'<>)\]]*`)

func classifyBadRequest(_ int, d errorDetail) *Error {
	haystack := d.message + " " + d.raw
	if strings.Contains(strings.ToLower(haystack), "not a valid model id") {
		return NewInvalidModelError(d.message)
	}
	if link := settingsLinkPattern.FindString(haystack); link != "" {
		return NewConfigurationError(d.message, strings.TrimRight(link, ".,;:"))
	}
	return NewBadRequestError(d.message)
}

// errorDetail is the sniffable text of an upstream error body.
type errorDetail struct {
	message string
	raw     string
}

func parseErrorBody(status int, body []byte) errorDetail {
	detail := errorDetail{message: fmt.Sprintf("HTTP %d", status)}
	var payload errorResponse
	if errUnmarshal := json.Unmarshal(body, &payload); errUnmarshal != nil || payload.Error == nil {
		return detail
	}
	if msg := strings.TrimSpace(payload.Error.Message); msg != "" {
		detail.message = msg
	}
	if raw, ok := payload.Error.Metadata["raw"].(string); ok {
		detail.raw = raw
	}
	return detail
}

// Classify maps a non-2xx status and error body to a typed error.
// 429 is handled by the client since it also touches the cooldown.
func Classify(status int, body []byte) *Error {
	detail := parseErrorBody(status, body)
	if status == http.StatusTooManyRequests {
		return NewRateLimitedError(detail.message, nil)
	}
	if classify, ok := statusClassifiers[status]; ok {
		return classify(status, detail)
	}
	return NewUnknownAPIError(detail.message, status)
}

// UserMessage returns the curated message for err, or a generic fallback.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return GenericUserMessage
}

// IsKind reports whether err is an upstream error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
