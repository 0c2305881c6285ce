package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ashwin12159/Control-Plane/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classify maps a transport error onto the upstream error types.
// Unreachable, timed out and cancelled calls are UpstreamUnavailable;
// anything else the backend returned is a generic upstream error.
func Classify(region string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return unavailable(region, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return services.NewDomainError(services.ErrorTypeUpstream, err.Error(),
			fmt.Errorf("%w: %w", services.ErrUpstream, err))
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return unavailable(region, err)
	default:
		msg := st.Message()
		if msg == "" {
			msg = st.Code().String()
		}
		return services.NewDomainError(services.ErrorTypeUpstream, msg,
			fmt.Errorf("%w: %w", services.ErrUpstream, err)).
			WithDetail("code", st.Code().String())
	}
}

func unavailable(region string, err error) error {
	return services.NewDomainError(services.ErrorTypeUpstreamUnavailable,
		fmt.Sprintf("Backend service unavailable for region %s", region),
		fmt.Errorf("%w: %w", services.ErrUpstreamUnavailable, err))
}
