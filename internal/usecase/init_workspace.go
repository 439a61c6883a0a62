package usecase

import (
	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/ports"
)

type InitWorkspace struct {
	initializer ports.WorkspaceInitializer
}

func NewInitWorkspace(initializer ports.WorkspaceInitializer) *InitWorkspace {
	return &InitWorkspace{initializer: initializer}
}

// Execute lays down a workspace at root. withPayloads also copies the
// bundled wordlists so they can be edited in place.
func (uc *InitWorkspace) Execute(root string, withPayloads, force bool) error {
	return uc.initializer.Init(domain.WorkspaceSpec{Root: root, WithPayloads: withPayloads}, force)
}
