package usecase

import (
	"errors"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase/curl"
)

// ImportCurl parses a curl command and applies it to a profile, creating the
// profile when it does not exist yet.
type ImportCurl struct {
	book       *ProfileBook
	detectAuth bool
}

func NewImportCurl(book *ProfileBook, detectAuth bool) *ImportCurl {
	return &ImportCurl{book: book, detectAuth: detectAuth}
}

// Execute imports cmd into name (or the current profile when name is empty)
// and returns the parser warnings.
func (uc *ImportCurl) Execute(name, cmd string) ([]string, error) {
	var opts []curl.Option
	if uc.detectAuth {
		opts = append(opts, curl.WithAuthDetection())
	}
	parsed, err := curl.Parse(cmd, opts...)
	if err != nil {
		return nil, err
	}

	if name == "" {
		cur, _, err := uc.book.Current()
		if err != nil {
			return nil, err
		}
		name = cur
	}

	_, err = uc.book.Get(name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p := parsed.Apply(domain.NewProfile())
		if err := uc.book.Create(name, &p); err != nil {
			return nil, err
		}
		return parsed.Warnings, nil
	case err != nil:
		return nil, err
	}

	err = uc.book.Update(name, func(p *domain.RequestProfile) error {
		*p = parsed.Apply(*p)
		return nil
	})
	return parsed.Warnings, err
}
