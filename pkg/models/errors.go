package models

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Failure reasons stored in Job.Error. They are machine-oriented and never localized.
const (
	ReasonHTMLResponse           = "llm_html_response"
	ReasonJSONParseError         = "llm_json_parse_error"
	ReasonInvalidCompletion      = "invalid_completion"
	ReasonSchemaValidationFailed = "schema_validation_failed"
	ReasonNotFound               = "not_found"
	ReasonInternalError          = "internal_error"
	ReasonStoreUnavailable       = "store_unavailable"
)

// ReasonHTTPStatus returns the reason for a non-2xx model response.
func ReasonHTTPStatus(status int) string {
	return fmt.Sprintf("llm_http_%d", status)
}

// MaxErrorDetailLen bounds the response excerpt carried by a GatewayError.
const MaxErrorDetailLen = 120

// GatewayError is a classified model-call failure. Error returns only the
// reason so it can be stored on the job as-is; Detail carries a short excerpt
// of the offending response for logs.
type GatewayError struct {
	Reason string
	Detail string
}

func (e *GatewayError) Error() string { return e.Reason }

// NewGatewayError builds a GatewayError with detail cut to MaxErrorDetailLen runes.
func NewGatewayError(reason, detail string) *GatewayError {
	if utf8.RuneCountInString(detail) > MaxErrorDetailLen {
		detail = string([]rune(detail)[:MaxErrorDetailLen])
	}
	return &GatewayError{Reason: reason, Detail: detail}
}

// FailureReason converts an error returned by a gateway into the string
// stored on a failed job. Unclassified errors pass through verbatim.
func FailureReason(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Reason
	}
	return err.Error()
}
