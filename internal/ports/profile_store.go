package ports

import "github.com/aalvaropc/xssprobe/internal/domain"

// ProfileStore persists the named profile collection and the current selection.
type ProfileStore interface {
	LoadAll() (map[string]domain.RequestProfile, error)
	Save(name string, p domain.RequestProfile) error
	// Delete must reject removing the last remaining profile.
	Delete(name string) error
	CurrentName() (string, error)
	SetCurrent(name string) error
}
