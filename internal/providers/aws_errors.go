package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/retry"

	"github.com/aws/smithy-go"
)

var (
	notFoundCodes = map[string]bool{
		"ParameterNotFound":       true,
		"NoSuchBucket":            true,
		"NotFound":                true,
		"InvalidVpcID.NotFound":   true,
		"InvalidKeyPair.NotFound": true,
	}
	unauthorizedCodes = map[string]bool{
		"AccessDenied":                true,
		"AccessDeniedException":       true,
		"UnauthorizedOperation":       true,
		"AuthFailure":                 true,
		"ExpiredToken":                true,
		"ExpiredTokenException":       true,
		"InvalidClientTokenId":        true,
		"UnrecognizedClientException": true,
		"SignatureDoesNotMatch":       true,
	}
	throttlingCodes = map[string]bool{
		"Throttling":                             true,
		"ThrottlingException":                    true,
		"ThrottledException":                     true,
		"RequestLimitExceeded":                   true,
		"TooManyRequestsException":               true,
		"RequestThrottledException":              true,
		"ProvisionedThroughputExceededException": true,
	}
	conflictCodes = map[string]bool{
		"AlreadyExistsException":       true,
		"TokenAlreadyExistsException":  true,
		"OperationInProgressException": true,
	}
)

// classify wraps err with the domain sentinel matching its API error code,
// keeping the original message for display. Errors without an API code are
// wrapped unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if sentinel := sentinelFor(err); sentinel != nil {
		return fmt.Errorf("failed to %s: %w: %s", op, sentinel, apiMessage(err))
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func sentinelFor(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	code := apiErr.ErrorCode()
	msg := apiErr.ErrorMessage()

	switch {
	case notFoundCodes[code]:
		return domain.ErrNotFound
	case unauthorizedCodes[code]:
		return domain.ErrUnauthorized
	case throttlingCodes[code]:
		return domain.ErrRateLimited
	case conflictCodes[code]:
		return domain.ErrConflict
	case code == "ValidationError":
		// CloudFormation reports several distinct conditions under one code.
		switch {
		case strings.Contains(msg, "No updates are to be performed"):
			return domain.ErrNoChanges
		case strings.Contains(msg, "does not exist"):
			return domain.ErrNotFound
		case strings.Contains(msg, "_IN_PROGRESS state"), strings.Contains(msg, "cannot be updated"):
			return domain.ErrConflict
		}
	}
	return nil
}

func apiMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return apiErr.ErrorCode() + ": " + msg
		}
		return apiErr.ErrorCode()
	}
	return err.Error()
}

// isAWSRetryable reports whether a failed call is worth repeating:
// throttling responses and transient network errors.
func isAWSRetryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttlingCodes[apiErr.ErrorCode()] {
		return true
	}
	return retry.IsTransient(err)
}

// call runs fn under the API retry policy, each attempt bounded by the
// provider's request timeout.
func (p *AWSProvider) call(ctx context.Context, fn func(reqCtx context.Context) error) error {
	policy := retry.API()
	policy.AttemptTimeout = requestTimeout
	return retry.Do(ctx, policy, isAWSRetryable, fn)
}
