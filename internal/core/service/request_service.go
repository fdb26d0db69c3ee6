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

// DecisionNotifier abstracts the async notification pipeline. Enqueue must
// never block the caller for long and must never fail the decision.
type DecisionNotifier interface {
	Enqueue(event ports.DecisionEvent)
}

type requestService struct {
	requests    ports.RequestRepository
	assets      ports.AssetRepository
	users       ports.UserRepository
	affiliation ports.AffiliationService
	cache       CatalogCache     // optional, may be nil
	notifier    DecisionNotifier // optional, may be nil
	log         zerolog.Logger
}

// NewRequestService returns the workflow engine for the request lifecycle.
// cache may be nil when Redis is not configured; notifier may be nil when no
// broker is configured.
func NewRequestService(
	requests ports.RequestRepository,
	assets ports.AssetRepository,
	users ports.UserRepository,
	affiliation ports.AffiliationService,
	cache CatalogCache,
	notifier DecisionNotifier,
	log zerolog.Logger,
) ports.RequestService {
	return &requestService{
		requests:    requests,
		assets:      assets,
		users:       users,
		affiliation: affiliation,
		cache:       cache,
		notifier:    notifier,
		log:         log,
	}
}

// CreateRequest files a new Pending request, snapshotting the asset name so
// the audit trail survives later asset edits or deletion.
func (s *requestService) CreateRequest(ctx context.Context, input ports.CreateRequestInput) (*domain.Request, error) {
	asset, err := s.assets.FindByID(ctx, input.AssetID)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req := &domain.Request{
		AssetID:     asset.ID,
		AssetName:   asset.ProductName,
		AssetType:   asset.ProductType,
		UserEmail:   input.EmployeeEmail,
		UserName:    input.EmployeeName,
		HREmail:     input.HREmail,
		Status:      domain.StatusPending,
		RequestDate: time.Now().UTC(),
	}

	created, err := s.requests.Create(ctx, req)
	if err != nil {
		s.log.Error().Err(err).Str("asset_id", input.AssetID).Msg("failed to create request")
		return nil, err
	}

	s.log.Info().
		Str("request_id", created.ID).
		Str("asset_id", created.AssetID).
		Str("user", created.UserEmail).
		Msg("request created")

	return created, nil
}

// Decide applies an HR decision to a Pending request.
func (s *requestService) Decide(ctx context.Context, input ports.DecideInput) (*domain.Request, error) {
	req, err := s.requests.FindByID(ctx, input.RequestID)
	if err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}
	if req.HREmail != input.HREmail {
		return nil, fmt.Errorf("decide: %w", domain.ErrForbidden)
	}

	var updated *domain.Request
	switch input.Decision {
	case ports.DecisionApprove:
		updated, err = s.approveAndAffiliate(ctx, req)
	case ports.DecisionReject:
		if !req.Status.CanTransitionTo(domain.StatusRejected) {
			return nil, fmt.Errorf("decide: %w (from %s to %s)", domain.ErrInvalidTransition, req.Status, domain.StatusRejected)
		}
		updated, err = s.requests.UpdateStatus(ctx, req.ID, domain.StatusPending, domain.StatusRejected, ports.StatusChange{})
	default:
		return nil, fmt.Errorf("decide: unknown decision %q", input.Decision)
	}
	if err != nil {
		return nil, err
	}

	metrics.RequestsDecidedTotal.WithLabelValues(string(updated.Status)).Inc()
	s.notify(updated)

	s.log.Info().
		Str("request_id", updated.ID).
		Str("decision", input.Decision).
		Str("hr", input.HREmail).
		Msg("request decided")

	return updated, nil
}

// approveAndAffiliate is the single approval script shared by Decide and
// DirectAssign. Ordering is load-bearing:
//
//  1. reserve stock — the only serialization point against concurrent approvals
//  2. commit the status flip (compare-and-set on the prior status)
//  3. affiliate the employee
//
// A failure at step 3 compensates steps 1 and 2 before surfacing the error,
// so the request never ends up Approved without a matching reservation and
// affiliation.
func (s *requestService) approveAndAffiliate(ctx context.Context, req *domain.Request) (*domain.Request, error) {
	if !req.Status.CanTransitionTo(domain.StatusApproved) {
		return nil, fmt.Errorf("approve: %w (from %s to %s)", domain.ErrInvalidTransition, req.Status, domain.StatusApproved)
	}

	if err := s.assets.Reserve(ctx, req.AssetID); err != nil {
		metrics.StockReservationsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("approve: %w", err)
	}
	metrics.StockReservationsTotal.WithLabelValues("reserved").Inc()
	s.invalidateCatalog(ctx)

	now := time.Now().UTC()
	updated, err := s.requests.UpdateStatus(ctx, req.ID, req.Status, domain.StatusApproved, ports.StatusChange{
		ApprovalDate: &now,
	})
	if err != nil {
		// A concurrent decider won the CAS. Give the unit of stock back.
		s.releaseCompensation(ctx, req.AssetID, req.ID)
		return nil, fmt.Errorf("approve: %w", err)
	}

	hr, err := s.findHRProfile(ctx, req.HREmail)
	if err == nil {
		err = s.affiliation.Affiliate(ctx, req.UserEmail, hr)
	}
	if err != nil {
		// Compensate: release the reservation and revert the status so the
		// request is Pending again, exactly as before the call.
		s.releaseCompensation(ctx, req.AssetID, req.ID)
		if _, revertErr := s.requests.UpdateStatus(ctx, req.ID, domain.StatusApproved, domain.StatusPending, ports.StatusChange{
			ClearApprovalDate: true,
		}); revertErr != nil {
			s.log.Error().Err(revertErr).Str("request_id", req.ID).Msg("failed to revert approval after affiliation failure")
		}
		return nil, fmt.Errorf("approve: affiliate: %w", err)
	}

	return updated, nil
}

// Return moves an Approved request on a returnable asset to Returned and
// gives the unit of stock back. The compare-and-set on Approved makes the
// operation idempotent: a second call loses the CAS and reports
// ErrInvalidTransition without touching the ledger again.
func (s *requestService) Return(ctx context.Context, requestID, employeeEmail string) (*domain.Request, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("return: %w", err)
	}
	if employeeEmail != "" && req.UserEmail != employeeEmail {
		return nil, fmt.Errorf("return: %w", domain.ErrForbidden)
	}
	if !req.Status.CanTransitionTo(domain.StatusReturned) {
		return nil, fmt.Errorf("return: %w (from %s to %s)", domain.ErrInvalidTransition, req.Status, domain.StatusReturned)
	}

	// The asset must still exist: returnability lives on the asset, and a
	// release against a deleted asset would credit nothing. A dangling
	// reference surfaces as not-found with the request left Approved.
	asset, err := s.assets.FindByID(ctx, req.AssetID)
	if err != nil {
		return nil, fmt.Errorf("return: %w", err)
	}
	if !asset.Returnable() {
		return nil, fmt.Errorf("return: %w (asset %s is %s)", domain.ErrInvalidTransition, asset.ID, asset.ProductType)
	}

	now := time.Now().UTC()
	updated, err := s.requests.UpdateStatus(ctx, req.ID, domain.StatusApproved, domain.StatusReturned, ports.StatusChange{
		ReturnDate: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("return: %w", err)
	}

	if err := s.assets.Release(ctx, req.AssetID); err != nil {
		// The status flip committed but the credit did not. Revert the flip
		// so the request reads Approved again and the employee can retry;
		// otherwise it would sit Returned with the unit still reserved.
		if _, revertErr := s.requests.UpdateStatus(ctx, req.ID, domain.StatusReturned, domain.StatusApproved, ports.StatusChange{
			ClearReturnDate: true,
		}); revertErr != nil {
			s.log.Error().Err(revertErr).Str("request_id", req.ID).Msg("failed to revert return after release failure")
		}
		s.log.Error().Err(err).Str("asset_id", req.AssetID).Str("request_id", req.ID).Msg("failed to release stock on return")
		return nil, fmt.Errorf("return: release: %w", err)
	}
	metrics.StockReservationsTotal.WithLabelValues("released").Inc()
	s.invalidateCatalog(ctx)

	s.notify(updated)

	s.log.Info().
		Str("request_id", updated.ID).
		Str("asset_id", updated.AssetID).
		Msg("asset returned")

	return updated, nil
}

// DirectAssign lets an HR hand an asset to an employee without a pending
// request. It creates the request in Pending and immediately runs the same
// approval script as Decide, with identical compensation semantics.
func (s *requestService) DirectAssign(ctx context.Context, input ports.DirectAssignInput) (*domain.Request, error) {
	employee, err := s.findEmployee(ctx, input.EmployeeEmail)
	if err != nil {
		return nil, fmt.Errorf("direct assign: %w", err)
	}

	req, err := s.CreateRequest(ctx, ports.CreateRequestInput{
		EmployeeEmail: employee.Email,
		EmployeeName:  employee.Name,
		AssetID:       input.AssetID,
		HREmail:       input.HREmail,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.approveAndAffiliate(ctx, req)
	if err != nil {
		return nil, err
	}

	metrics.RequestsDecidedTotal.WithLabelValues(string(updated.Status)).Inc()
	s.notify(updated)

	s.log.Info().
		Str("request_id", updated.ID).
		Str("employee", input.EmployeeEmail).
		Str("hr", input.HREmail).
		Msg("asset directly assigned")

	return updated, nil
}

// List returns requests matching the filter.
func (s *requestService) List(ctx context.Context, filter ports.RequestFilter) ([]*domain.Request, error) {
	return s.requests.List(ctx, filter)
}

// findHRProfile resolves the company identity stamped onto the employee.
func (s *requestService) findHRProfile(ctx context.Context, hrEmail string) (ports.HRProfile, error) {
	hr, err := s.users.FindByEmail(ctx, hrEmail)
	if err != nil {
		return ports.HRProfile{}, err
	}
	if hr.Role != domain.RoleHR {
		return ports.HRProfile{}, domain.ErrForbidden
	}
	return ports.HRProfile{
		HREmail:     hr.Email,
		CompanyName: hr.CompanyName,
		CompanyLogo: hr.CompanyLogo,
	}, nil
}

func (s *requestService) findEmployee(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleEmployee {
		return nil, domain.ErrForbidden
	}
	return u, nil
}

func (s *requestService) releaseCompensation(ctx context.Context, assetID, requestID string) {
	if err := s.assets.Release(ctx, assetID); err != nil {
		// Stock stays decremented with no Approved request to justify it.
		// Nothing more the engine can do synchronously; log loudly.
		s.log.Error().Err(err).Str("asset_id", assetID).Str("request_id", requestID).Msg("compensating release failed")
		return
	}
	metrics.StockReservationsTotal.WithLabelValues("released").Inc()
	s.invalidateCatalog(ctx)
}

// invalidateCatalog drops the availability cache after any ledger write, so
// a drained or replenished asset never lingers in a cached listing.
func (s *requestService) invalidateCatalog(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *requestService) notify(req *domain.Request) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ports.DecisionEvent{
		RequestID: req.ID,
		AssetID:   req.AssetID,
		AssetName: req.AssetName,
		UserEmail: req.UserEmail,
		HREmail:   req.HREmail,
		Status:    string(req.Status),
		Timestamp: time.Now().UTC(),
	})
}
