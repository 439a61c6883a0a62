package ports

import "github.com/aalvaropc/xssprobe/internal/domain"

// RunStore persists finished test runs for later review.
type RunStore interface {
	SaveRun(run domain.TestRun) (id string, err error)
}
