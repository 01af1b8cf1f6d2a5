package netcache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
)

// Loader resolves template names against a base URL. Use it as an
// Environment search root for remote template sets.
type Loader struct {
	Cache *Cache
	Base  string
	// Context bounds each fetch; nil means context.Background.
	Context context.Context
}

var _ stringtemplate.Loader = Loader{}

func (l Loader) Load(name string) (string, error) {
	ctx := l.Context
	if ctx == nil {
		ctx = context.Background()
	}
	url := strings.TrimSuffix(l.Base, "/") + "/" + strings.TrimPrefix(name, "/")
	b, err := l.Cache.Read(ctx, url)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%w: %s", stringtemplate.ErrTemplateNotFound, url)
		}
		return "", err
	}
	return string(b), nil
}
