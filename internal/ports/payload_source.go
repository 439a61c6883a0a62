package ports

import (
	"context"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// PayloadSource yields the ordered payload list of a level.
type PayloadSource interface {
	Load(ctx context.Context, level domain.PayloadLevel) ([]string, error)
}
