package ports

import (
	"context"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// RequestDispatcher sends a fully materialized profile and returns the response.
// Transport failures are reported as *domain.NetworkError.
type RequestDispatcher interface {
	Dispatch(ctx context.Context, p domain.RequestProfile) (domain.Response, error)
}
