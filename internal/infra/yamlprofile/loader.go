// Package yamlprofile reads and writes single request profiles as YAML files
// so they can be shared outside the profile database.
package yamlprofile

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// Import loads one profile document and returns its name and profile.
func Import(path string) (string, domain.RequestProfile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", domain.RequestProfile{}, &domain.OpError{
			Op:   "yamlprofile.import",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var dto YAMLProfile
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return "", domain.RequestProfile{}, &domain.OpError{
			Op:   "yamlprofile.import",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	return MapProfile(path, dto)
}

// Export writes the profile to path, replacing any existing file atomically.
func Export(path, name string, p domain.RequestProfile) error {
	b, err := yaml.Marshal(ToYAML(name, p))
	if err != nil {
		return &domain.OpError{Op: "yamlprofile.export", Kind: domain.KindExecution, Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.OpError{Op: "yamlprofile.export", Kind: domain.KindExecution, Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".profile-*.yaml")
	if err != nil {
		return &domain.OpError{Op: "yamlprofile.export", Kind: domain.KindExecution, Path: dir, Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return &domain.OpError{Op: "yamlprofile.export", Kind: domain.KindExecution, Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.OpError{Op: "yamlprofile.export", Kind: domain.KindExecution, Path: tmpName, Err: err}
	}
	// Exports may carry credentials.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return &domain.OpError{Op: "yamlprofile.export", Kind: domain.KindExecution, Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &domain.OpError{Op: "yamlprofile.export", Kind: domain.KindExecution, Path: path, Err: err}
	}
	return nil
}
