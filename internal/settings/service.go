package settings

import "context"

// Service defines the settings admin operations.
type Service interface {
	Provider
	All(ctx context.Context) (map[string]string, error)
	Update(ctx context.Context, key, value string) (*Setting, error)
	UpdateMany(ctx context.Context, updates []Setting) (int, error)
}
