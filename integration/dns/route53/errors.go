package route53

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
)

var (
	ErrInvalidConfig     = errors.New("route53: region is required")
	ErrEmptyDomain       = errors.New("route53: domain is required")
	ErrZoneNotFound      = errors.New("route53: hosted zone not found")
	ErrUnsupportedType   = errors.New("route53: only TXT records can be managed")
	ErrInvalidRecordID   = errors.New("route53: invalid record id")
	ErrAccessDenied      = errors.New("route53: access denied")
	ErrThrottled         = errors.New("route53: request throttled")
	ErrInvalidChange     = errors.New("route53: invalid change batch")
	ErrResolveFailed     = errors.New("route53: test dns answer failed")
	ErrOperationCanceled = errors.New("route53: operation canceled")
	ErrHealthcheckFailed = errors.New("route53: healthcheck failed")
	ErrChangeNotInSync   = errors.New("route53: change did not reach INSYNC")
)

func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrOperationCanceled, operation, err)
	}

	var noZone *types.NoSuchHostedZone
	if errors.As(err, &noZone) {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, operation)
	}
	var badBatch *types.InvalidChangeBatch
	if errors.As(err, &badBatch) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidChange, operation, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); code {
		case "AccessDenied", "AccessDeniedException":
			return fmt.Errorf("%w: %s", ErrAccessDenied, operation)
		case "Throttling", "ThrottlingException", "PriorRequestNotComplete":
			return fmt.Errorf("%w: %s", ErrThrottled, operation)
		default:
			return fmt.Errorf("%s failed (code: %s): %w", operation, code, err)
		}
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}
