package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/assetverse/asset-system/internal/api/metrics"
	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/ports"
)

type affiliationService struct {
	users ports.UserRepository
	log   zerolog.Logger
}

// NewAffiliationService returns the single owner of the employee↔company link.
func NewAffiliationService(users ports.UserRepository, log zerolog.Logger) ports.AffiliationService {
	return &affiliationService{users: users, log: log}
}

// Affiliate stamps the HR's company identity onto the employee. The write is
// an unconditional overwrite: an existing affiliation with another company is
// replaced, not rejected.
func (s *affiliationService) Affiliate(ctx context.Context, employeeEmail string, profile ports.HRProfile) error {
	aff := domain.Affiliation{
		HREmail:     profile.HREmail,
		CompanyName: profile.CompanyName,
		CompanyLogo: profile.CompanyLogo,
		JoinedDate:  time.Now().UTC(),
	}

	if err := s.users.SetAffiliation(ctx, employeeEmail, aff); err != nil {
		s.log.Error().Err(err).Str("employee", employeeEmail).Msg("failed to set affiliation")
		return fmt.Errorf("affiliate: %w", err)
	}

	metrics.AffiliationsTotal.WithLabelValues("affiliate").Inc()
	s.log.Info().Str("employee", employeeEmail).Str("hr", profile.HREmail).Msg("employee affiliated")
	return nil
}

// RemoveAffiliation clears the employee's affiliation block. Removing an
// already cleared affiliation succeeds without changing anything.
func (s *affiliationService) RemoveAffiliation(ctx context.Context, employeeID string) (*domain.User, error) {
	user, err := s.users.ClearAffiliation(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("remove affiliation: %w", err)
	}

	metrics.AffiliationsTotal.WithLabelValues("remove").Inc()
	s.log.Info().Str("employee_id", employeeID).Msg("affiliation removed")
	return user, nil
}

// BulkAffiliate affiliates a batch of employees with the HR's company.
// The capacity check runs before anything is written; a failing check means
// zero writes. The batch itself is one multi-document update, so either
// every id in the batch is affiliated or none are.
func (s *affiliationService) BulkAffiliate(ctx context.Context, input ports.BulkAffiliateInput) (*ports.BulkAffiliateResult, error) {
	if len(input.EmployeeIDs) == 0 {
		return &ports.BulkAffiliateResult{}, nil
	}

	hr, err := s.users.FindByEmail(ctx, input.HREmail)
	if err != nil {
		return nil, fmt.Errorf("bulk affiliate: %w", err)
	}
	if hr.Role != domain.RoleHR {
		return nil, fmt.Errorf("bulk affiliate: %w", domain.ErrForbidden)
	}

	if err := s.checkCapacity(ctx, hr, len(input.EmployeeIDs)); err != nil {
		return nil, err
	}

	// Every id must resolve to an employee, or the batch is refused whole.
	found, err := s.users.CountEmployeesByIDs(ctx, input.EmployeeIDs)
	if err != nil {
		return nil, fmt.Errorf("bulk affiliate: %w", err)
	}
	if found != int64(len(input.EmployeeIDs)) {
		return nil, fmt.Errorf("bulk affiliate: %w (%d of %d ids resolve to employees)",
			domain.ErrUserNotFound, found, len(input.EmployeeIDs))
	}

	aff := domain.Affiliation{
		HREmail:     hr.Email,
		CompanyName: hr.CompanyName,
		CompanyLogo: hr.CompanyLogo,
		JoinedDate:  time.Now().UTC(),
	}

	modified, err := s.users.SetAffiliationMany(ctx, input.EmployeeIDs, aff)
	if err != nil {
		s.log.Error().Err(err).Str("hr", input.HREmail).Int("batch", len(input.EmployeeIDs)).Msg("bulk affiliation failed")
		return nil, fmt.Errorf("bulk affiliate: %w", err)
	}

	team, err := s.users.CountTeam(ctx, hr.Email)
	if err != nil {
		team = -1 // best effort, the writes already committed
	}

	metrics.AffiliationsTotal.WithLabelValues("bulk").Add(float64(modified))
	s.log.Info().
		Str("hr", input.HREmail).
		Int64("affiliated", modified).
		Int64("team", team).
		Msg("bulk affiliation applied")

	return &ports.BulkAffiliateResult{Affiliated: int(modified), TeamCount: team}, nil
}

// checkCapacity is a pure precondition: it verifies the prospective team
// size against the HR's package limit and mutates nothing.
func (s *affiliationService) checkCapacity(ctx context.Context, hr *domain.User, additional int) error {
	current, err := s.users.CountTeam(ctx, hr.Email)
	if err != nil {
		return fmt.Errorf("capacity check: %w", err)
	}
	if current+int64(additional) > int64(hr.PackageLimit) {
		return fmt.Errorf("capacity check: %w (current %d + %d > limit %d)",
			domain.ErrLimitExceeded, current, additional, hr.PackageLimit)
	}
	return nil
}

// ListUnaffiliated returns employees visible to HR bulk-affiliation pickers.
func (s *affiliationService) ListUnaffiliated(ctx context.Context) ([]*domain.User, error) {
	return s.users.ListUnaffiliated(ctx)
}
