package ports

import "github.com/aalvaropc/xssprobe/internal/domain"

type WorkspaceInitializer interface {
	Init(spec domain.WorkspaceSpec, force bool) error
}
