package ports

import (
	"context"

	"github.com/assetverse/asset-system/internal/core/domain"
)

// RegisterInput carries a new account registration. The company fields and
// package limit only apply to HR accounts.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Role         string
	CompanyName  string
	CompanyLogo  string
	PackageLimit int
}

// AuthService handles registration, login, and role lookup.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	RoleOf(ctx context.Context, email string) (string, error)
}
