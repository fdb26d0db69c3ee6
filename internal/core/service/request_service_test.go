package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubAssetRepo struct {
	mu           sync.Mutex
	assets       map[string]*domain.Asset
	seq          int
	releaseErr   error // if set, Release returns this error
	releaseCalls int
}

func newStubAssetRepo() *stubAssetRepo {
	return &stubAssetRepo{assets: make(map[string]*domain.Asset)}
}

func (r *stubAssetRepo) Create(_ context.Context, a *domain.Asset) (*domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := *a
	clone.ID = fmt.Sprintf("asset-%d", r.seq)
	r.assets[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubAssetRepo) FindByID(_ context.Context, id string) (*domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAssetRepo) Update(_ context.Context, a *domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[a.ID]; !ok {
		return domain.ErrAssetNotFound
	}
	clone := *a
	r.assets[a.ID] = &clone
	return nil
}

func (r *stubAssetRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[id]; !ok {
		return domain.ErrAssetNotFound
	}
	delete(r.assets, id)
	return nil
}

// List applies the same filters the real Mongo repo would use.
func (r *stubAssetRepo) List(_ context.Context, f ports.AssetFilter) ([]*domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Asset
	for _, a := range r.assets {
		if f.OwnerHR != "" && a.OwnerHREmail != f.OwnerHR {
			continue
		}
		if f.Type != "" && string(a.ProductType) != f.Type {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(a.ProductName), strings.ToLower(f.Search)) {
			continue
		}
		if f.OnlyAvailable && a.ProductQuantity <= 0 {
			continue
		}
		clone := *a
		matched = append(matched, &clone)
	}
	return matched, nil
}

// Reserve mirrors the real conditional decrement: the check and the write
// happen under one lock, so concurrent callers serialize exactly like the
// single-document update in Mongo.
func (r *stubAssetRepo) Reserve(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return domain.ErrAssetNotFound
	}
	if a.ProductQuantity <= 0 {
		return domain.ErrInsufficientStock
	}
	a.ProductQuantity--
	return nil
}

func (r *stubAssetRepo) Release(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseCalls++
	if r.releaseErr != nil {
		return r.releaseErr
	}
	a, ok := r.assets[id]
	if !ok {
		return domain.ErrAssetNotFound
	}
	a.ProductQuantity++
	return nil
}

func (r *stubAssetRepo) quantity(t *testing.T, id string) int {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		t.Fatalf("asset %s not in stub", id)
	}
	return a.ProductQuantity
}

type stubRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.Request
	seq      int
}

func newStubRequestRepo() *stubRequestRepo {
	return &stubRequestRepo{requests: make(map[string]*domain.Request)}
}

func (r *stubRequestRepo) Create(_ context.Context, req *domain.Request) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	clone := *req
	clone.ID = fmt.Sprintf("req-%d", r.seq)
	r.requests[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubRequestRepo) FindByID(_ context.Context, id string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	clone := *req
	return &clone, nil
}

// UpdateStatus performs the compare-and-set the real repo does with a
// conditional FindOneAndUpdate.
func (r *stubRequestRepo) UpdateStatus(_ context.Context, id string, from, to domain.RequestStatus, change ports.StatusChange) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if req.Status != from {
		return nil, fmt.Errorf("%w (request %s is no longer %s)", domain.ErrInvalidTransition, id, from)
	}
	req.Status = to
	if change.ApprovalDate != nil {
		req.ApprovalDate = change.ApprovalDate
	}
	if change.ClearApprovalDate {
		req.ApprovalDate = nil
	}
	if change.ReturnDate != nil {
		req.ReturnDate = change.ReturnDate
	}
	if change.ClearReturnDate {
		req.ReturnDate = nil
	}
	clone := *req
	return &clone, nil
}

func (r *stubRequestRepo) List(_ context.Context, f ports.RequestFilter) ([]*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Request
	for _, req := range r.requests {
		if f.UserEmail != "" && req.UserEmail != f.UserEmail {
			continue
		}
		if f.HREmail != "" && req.HREmail != f.HREmail {
			continue
		}
		if f.Status != "" && string(req.Status) != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(req.AssetName), strings.ToLower(f.Search)) {
			continue
		}
		clone := *req
		matched = append(matched, &clone)
	}
	return matched, nil
}

func (r *stubRequestRepo) status(t *testing.T, id string) domain.RequestStatus {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		t.Fatalf("request %s not in stub", id)
	}
	return req.Status
}

type stubUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (r *stubUserRepo) seed(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *u
	r.byEmail[clone.Email] = &clone
	if clone.ID != "" {
		r.byID[clone.ID] = &clone
	}
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return nil, domain.ErrUserExists
	}
	clone := *u
	if clone.ID == "" {
		clone.ID = fmt.Sprintf("user-%d", len(r.byEmail)+1)
	}
	r.byEmail[clone.Email] = &clone
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) SetAffiliation(_ context.Context, employeeEmail string, aff domain.Affiliation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[employeeEmail]
	if !ok || u.Role != domain.RoleEmployee {
		return domain.ErrUserNotFound
	}
	a := aff
	u.Affiliation = &a
	return nil
}

func (r *stubUserRepo) SetAffiliationMany(_ context.Context, ids []string, aff domain.Affiliation) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var modified int64
	for _, id := range ids {
		u, ok := r.byID[id]
		if !ok || u.Role != domain.RoleEmployee {
			continue
		}
		a := aff
		u.Affiliation = &a
		modified++
	}
	return modified, nil
}

func (r *stubUserRepo) ClearAffiliation(_ context.Context, employeeID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[employeeID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Affiliation = nil
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) CountTeam(_ context.Context, hrEmail string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.byEmail {
		if u.Affiliation != nil && u.Affiliation.HREmail == hrEmail {
			n++
		}
	}
	return n, nil
}

func (r *stubUserRepo) CountEmployeesByIDs(_ context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if u, ok := r.byID[id]; ok && u.Role == domain.RoleEmployee {
			n++
		}
	}
	return n, nil
}

func (r *stubUserRepo) ListUnaffiliated(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.User
	for _, u := range r.byEmail {
		if u.Role == domain.RoleEmployee && u.Affiliation == nil {
			clone := *u
			matched = append(matched, &clone)
		}
	}
	return matched, nil
}

// stubAffiliation lets request service tests observe and fail affiliation
// writes without a full user repository behind them.
type stubAffiliation struct {
	mu         sync.Mutex
	affiliated map[string]ports.HRProfile
	failErr    error // if set, Affiliate returns this error
}

func newStubAffiliation() *stubAffiliation {
	return &stubAffiliation{affiliated: make(map[string]ports.HRProfile)}
}

func (s *stubAffiliation) Affiliate(_ context.Context, employeeEmail string, profile ports.HRProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.affiliated[employeeEmail] = profile
	return nil
}

func (s *stubAffiliation) RemoveAffiliation(_ context.Context, employeeID string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (s *stubAffiliation) BulkAffiliate(_ context.Context, _ ports.BulkAffiliateInput) (*ports.BulkAffiliateResult, error) {
	return &ports.BulkAffiliateResult{}, nil
}

func (s *stubAffiliation) ListUnaffiliated(_ context.Context) ([]*domain.User, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []ports.DecisionEvent
}

func (n *recordingNotifier) Enqueue(event ports.DecisionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

type requestFixture struct {
	svc      ports.RequestService
	assets   *stubAssetRepo
	requests *stubRequestRepo
	users    *stubUserRepo
	aff      *stubAffiliation
	cache    *stubCache
	notifier *recordingNotifier
}

func newRequestFixture() *requestFixture {
	f := &requestFixture{
		assets:   newStubAssetRepo(),
		requests: newStubRequestRepo(),
		users:    newStubUserRepo(),
		aff:      newStubAffiliation(),
		cache:    &stubCache{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewRequestService(f.requests, f.assets, f.users, f.aff, f.cache, f.notifier, discardLogger)
	return f
}

func (f *requestFixture) seedHR(email string) {
	f.users.seed(&domain.User{
		ID:           "hr-" + email,
		Name:         "HR " + email,
		Email:        email,
		Role:         domain.RoleHR,
		CompanyName:  "Initech",
		CompanyLogo:  "https://logo.example/initech.png",
		PackageLimit: 50,
	})
}

func (f *requestFixture) seedEmployee(email string) {
	f.users.seed(&domain.User{
		ID:    "emp-" + email,
		Name:  "Employee " + email,
		Email: email,
		Role:  domain.RoleEmployee,
	})
}

func (f *requestFixture) seedAsset(t *testing.T, productType domain.ProductType, qty int) *domain.Asset {
	t.Helper()
	a, err := f.assets.Create(context.Background(), &domain.Asset{
		OwnerHREmail:    "hr@initech.com",
		ProductName:     "MacBook Pro",
		ProductType:     productType,
		ProductQuantity: qty,
		AddedDate:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seeding asset: %v", err)
	}
	return a
}

func (f *requestFixture) seedPending(t *testing.T, assetID string) *domain.Request {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), ports.CreateRequestInput{
		EmployeeEmail: "ana@example.com",
		EmployeeName:  "Ana",
		AssetID:       assetID,
		HREmail:       "hr@initech.com",
	})
	if err != nil {
		t.Fatalf("seeding pending request: %v", err)
	}
	return req
}

// ---------------------------------------------------------------------------
// CreateRequest tests
// ---------------------------------------------------------------------------

func TestRequestService_Create_SnapshotsAsset(t *testing.T) {
	f := newRequestFixture()
	asset := f.seedAsset(t, domain.TypeReturnable, 3)

	req, err := f.svc.CreateRequest(context.Background(), ports.CreateRequestInput{
		EmployeeEmail: "ana@example.com",
		EmployeeName:  "Ana",
		AssetID:       asset.ID,
		HREmail:       "hr@initech.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Status != domain.StatusPending {
		t.Errorf("expected status %q, got %q", domain.StatusPending, req.Status)
	}
	if req.AssetName != "MacBook Pro" {
		t.Errorf("asset name not snapshotted: %q", req.AssetName)
	}
	if req.AssetType != domain.TypeReturnable {
		t.Errorf("asset type not snapshotted: %q", req.AssetType)
	}
	if req.RequestDate.IsZero() {
		t.Error("request date must not be zero")
	}
	// Filing a request must not touch stock.
	if got := f.assets.quantity(t, asset.ID); got != 3 {
		t.Errorf("quantity changed on create: got %d, want 3", got)
	}
}

func TestRequestService_Create_UnknownAsset(t *testing.T) {
	f := newRequestFixture()

	_, err := f.svc.CreateRequest(context.Background(), ports.CreateRequestInput{
		EmployeeEmail: "ana@example.com",
		AssetID:       "missing",
		HREmail:       "hr@initech.com",
	})
	if !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Decide tests
// ---------------------------------------------------------------------------

func TestRequestService_Approve_Success(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 2)
	req := f.seedPending(t, asset.ID)

	updated, err := f.svc.Decide(context.Background(), ports.DecideInput{
		RequestID: req.ID,
		Decision:  ports.DecisionApprove,
		HREmail:   "hr@initech.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != domain.StatusApproved {
		t.Errorf("expected status %q, got %q", domain.StatusApproved, updated.Status)
	}
	if updated.ApprovalDate == nil {
		t.Error("approval date must be set")
	}
	if got := f.assets.quantity(t, asset.ID); got != 1 {
		t.Errorf("expected quantity 1 after reservation, got %d", got)
	}

	profile, ok := f.aff.affiliated["ana@example.com"]
	if !ok {
		t.Fatal("employee was not affiliated")
	}
	if profile.CompanyName != "Initech" {
		t.Errorf("wrong company stamped: %q", profile.CompanyName)
	}
	if f.notifier.count() != 1 {
		t.Errorf("expected 1 notification, got %d", f.notifier.count())
	}
}

func TestRequestService_Approve_InsufficientStock(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 1)
	req := f.seedPending(t, asset.ID)

	// Drain the stock out from under the pending request.
	if err := f.assets.Reserve(context.Background(), asset.ID); err != nil {
		t.Fatalf("draining stock: %v", err)
	}

	_, err := f.svc.Decide(context.Background(), ports.DecideInput{
		RequestID: req.ID,
		Decision:  ports.DecisionApprove,
		HREmail:   "hr@initech.com",
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Nothing may have moved: request still Pending, no affiliation, no event.
	if got := f.requests.status(t, req.ID); got != domain.StatusPending {
		t.Errorf("request must stay Pending, got %q", got)
	}
	if len(f.aff.affiliated) != 0 {
		t.Error("no affiliation may be written on a failed approval")
	}
	if f.notifier.count() != 0 {
		t.Error("no notification may be emitted on a failed approval")
	}
}

func TestRequestService_Approve_AffiliationFailure_Compensates(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 2)
	req := f.seedPending(t, asset.ID)
	f.aff.failErr = errors.New("affiliation store down")

	_, err := f.svc.Decide(context.Background(), ports.DecideInput{
		RequestID: req.ID,
		Decision:  ports.DecisionApprove,
		HREmail:   "hr@initech.com",
	})
	if err == nil {
		t.Fatal("expected error when affiliation fails")
	}

	// The reservation and the status flip must both be rolled back.
	if got := f.assets.quantity(t, asset.ID); got != 2 {
		t.Errorf("reservation not compensated: quantity %d, want 2", got)
	}
	if got := f.requests.status(t, req.ID); got != domain.StatusPending {
		t.Errorf("status not reverted: got %q, want Pending", got)
	}
	stored, _ := f.requests.FindByID(context.Background(), req.ID)
	if stored.ApprovalDate != nil {
		t.Error("approval date must be cleared on revert")
	}
	if f.notifier.count() != 0 {
		t.Error("no notification may be emitted on a compensated approval")
	}
}

func TestRequestService_Reject_NoSideEffects(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 2)
	req := f.seedPending(t, asset.ID)

	updated, err := f.svc.Decide(context.Background(), ports.DecideInput{
		RequestID: req.ID,
		Decision:  ports.DecisionReject,
		HREmail:   "hr@initech.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != domain.StatusRejected {
		t.Errorf("expected status %q, got %q", domain.StatusRejected, updated.Status)
	}
	if got := f.assets.quantity(t, asset.ID); got != 2 {
		t.Errorf("rejection must not touch stock: quantity %d, want 2", got)
	}
	if len(f.aff.affiliated) != 0 {
		t.Error("rejection must not affiliate")
	}
	if f.notifier.count() != 1 {
		t.Errorf("expected 1 notification, got %d", f.notifier.count())
	}
}

func TestRequestService_Decide_ForeignHR(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 2)
	req := f.seedPending(t, asset.ID)

	_, err := f.svc.Decide(context.Background(), ports.DecideInput{
		RequestID: req.ID,
		Decision:  ports.DecisionApprove,
		HREmail:   "other@globex.com",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := f.assets.quantity(t, asset.ID); got != 2 {
		t.Errorf("foreign decision must not touch stock: quantity %d", got)
	}
}

func TestRequestService_Decide_AlreadyDecided(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 2)
	req := f.seedPending(t, asset.ID)

	input := ports.DecideInput{RequestID: req.ID, Decision: ports.DecisionReject, HREmail: "hr@initech.com"}
	if _, err := f.svc.Decide(context.Background(), input); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}

	_, err := f.svc.Decide(context.Background(), input)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second decision, got %v", err)
	}
}

func TestRequestService_Decide_UnknownDecision(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 1)
	req := f.seedPending(t, asset.ID)

	_, err := f.svc.Decide(context.Background(), ports.DecideInput{
		RequestID: req.ID,
		Decision:  "Maybe",
		HREmail:   "hr@initech.com",
	})
	if err == nil {
		t.Fatal("expected error for unknown decision")
	}
}

// Two concurrent approvals against a single unit of stock: exactly one must
// win, the other must see insufficient stock, and the quantity must end at
// zero with no double decrement.
func TestRequestService_ConcurrentApprove_SingleWinner(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 1)
	first := f.seedPending(t, asset.ID)
	second := f.seedPending(t, asset.ID)

	decide := func(id string) error {
		_, err := f.svc.Decide(context.Background(), ports.DecideInput{
			RequestID: id,
			Decision:  ports.DecisionApprove,
			HREmail:   "hr@initech.com",
		})
		return err
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- decide(id)
		}(id)
	}
	wg.Wait()
	close(errs)

	var wins, stockouts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrInsufficientStock):
			stockouts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 || stockouts != 1 {
		t.Fatalf("expected 1 winner and 1 stockout, got %d winners and %d stockouts", wins, stockouts)
	}
	if got := f.assets.quantity(t, asset.ID); got != 0 {
		t.Errorf("expected quantity 0, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Return tests
// ---------------------------------------------------------------------------

func (f *requestFixture) approvedRequest(t *testing.T, assetType domain.ProductType, qty int) (*domain.Asset, *domain.Request) {
	t.Helper()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, assetType, qty)
	req := f.seedPending(t, asset.ID)
	updated, err := f.svc.Decide(context.Background(), ports.DecideInput{
		RequestID: req.ID,
		Decision:  ports.DecisionApprove,
		HREmail:   "hr@initech.com",
	})
	if err != nil {
		t.Fatalf("seeding approved request: %v", err)
	}
	return asset, updated
}

func TestRequestService_Return_Success(t *testing.T) {
	f := newRequestFixture()
	asset, req := f.approvedRequest(t, domain.TypeReturnable, 2)

	updated, err := f.svc.Return(context.Background(), req.ID, "ana@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != domain.StatusReturned {
		t.Errorf("expected status %q, got %q", domain.StatusReturned, updated.Status)
	}
	if updated.ReturnDate == nil {
		t.Error("return date must be set")
	}
	if got := f.assets.quantity(t, asset.ID); got != 2 {
		t.Errorf("stock not credited back: quantity %d, want 2", got)
	}
}

func TestRequestService_Return_Twice(t *testing.T) {
	f := newRequestFixture()
	asset, req := f.approvedRequest(t, domain.TypeReturnable, 1)

	if _, err := f.svc.Return(context.Background(), req.ID, "ana@example.com"); err != nil {
		t.Fatalf("first return failed: %v", err)
	}

	_, err := f.svc.Return(context.Background(), req.ID, "ana@example.com")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second return, got %v", err)
	}
	// Exactly one credit.
	if got := f.assets.quantity(t, asset.ID); got != 1 {
		t.Errorf("stock credited more than once: quantity %d, want 1", got)
	}
}

func TestRequestService_Return_ReleaseFailure_RevertsApproval(t *testing.T) {
	f := newRequestFixture()
	asset, req := f.approvedRequest(t, domain.TypeReturnable, 1)

	releaseErr := errors.New("ledger write timed out")
	f.assets.releaseErr = releaseErr

	_, err := f.svc.Return(context.Background(), req.ID, "ana@example.com")
	if !errors.Is(err, releaseErr) {
		t.Fatalf("expected release error to surface, got %v", err)
	}

	// The request must not read Returned while the unit was never credited.
	if got := f.requests.status(t, req.ID); got != domain.StatusApproved {
		t.Errorf("request must revert to Approved, got %q", got)
	}
	stored, findErr := f.requests.FindByID(context.Background(), req.ID)
	if findErr != nil {
		t.Fatalf("fetching request: %v", findErr)
	}
	if stored.ReturnDate != nil {
		t.Error("return date must be cleared on revert")
	}
	if got := f.assets.quantity(t, asset.ID); got != 0 {
		t.Errorf("stock must stay reserved after failed credit, got quantity %d", got)
	}
	if f.assets.releaseCalls != 1 {
		t.Errorf("expected exactly 1 release attempt, got %d", f.assets.releaseCalls)
	}

	// The revert leaves the return retryable once the ledger recovers.
	f.assets.releaseErr = nil
	if _, err := f.svc.Return(context.Background(), req.ID, "ana@example.com"); err != nil {
		t.Fatalf("retry after revert failed: %v", err)
	}
	if got := f.assets.quantity(t, asset.ID); got != 1 {
		t.Errorf("retry must credit the unit back, got quantity %d", got)
	}
}

func TestRequestService_LedgerWritesInvalidateCatalog(t *testing.T) {
	f := newRequestFixture()
	_, req := f.approvedRequest(t, domain.TypeReturnable, 1)

	// Approving reserved a unit, which must drop the availability cache so
	// a drained asset never lingers in a cached listing.
	if f.cache.invalidates != 1 {
		t.Fatalf("expected 1 invalidation after approve, got %d", f.cache.invalidates)
	}

	if _, err := f.svc.Return(context.Background(), req.ID, "ana@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cache.invalidates != 2 {
		t.Errorf("expected 2 invalidations after return, got %d", f.cache.invalidates)
	}
}

func TestRequestService_Return_NonReturnable(t *testing.T) {
	f := newRequestFixture()
	asset, req := f.approvedRequest(t, domain.TypeNonReturnable, 1)

	_, err := f.svc.Return(context.Background(), req.ID, "ana@example.com")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got := f.assets.quantity(t, asset.ID); got != 0 {
		t.Errorf("non-returnable return must not touch stock: quantity %d", got)
	}
	if got := f.requests.status(t, req.ID); got != domain.StatusApproved {
		t.Errorf("request must stay Approved, got %q", got)
	}
}

func TestRequestService_Return_ForeignEmployee(t *testing.T) {
	f := newRequestFixture()
	_, req := f.approvedRequest(t, domain.TypeReturnable, 1)

	_, err := f.svc.Return(context.Background(), req.ID, "mallory@example.com")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequestService_Return_DeletedAsset(t *testing.T) {
	f := newRequestFixture()
	asset, req := f.approvedRequest(t, domain.TypeReturnable, 1)

	if err := f.assets.Delete(context.Background(), asset.ID); err != nil {
		t.Fatalf("deleting asset: %v", err)
	}

	_, err := f.svc.Return(context.Background(), req.ID, "ana@example.com")
	if !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
	// The request is left Approved so a support operator can see the dangling
	// reference instead of a silent half-return.
	if got := f.requests.status(t, req.ID); got != domain.StatusApproved {
		t.Errorf("request must stay Approved, got %q", got)
	}
}

func TestRequestService_Return_PendingRequest(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 1)
	req := f.seedPending(t, asset.ID)

	_, err := f.svc.Return(context.Background(), req.ID, "ana@example.com")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// DirectAssign tests
// ---------------------------------------------------------------------------

func TestRequestService_DirectAssign_Success(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	f.seedEmployee("bob@example.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 3)

	updated, err := f.svc.DirectAssign(context.Background(), ports.DirectAssignInput{
		HREmail:       "hr@initech.com",
		EmployeeEmail: "bob@example.com",
		AssetID:       asset.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != domain.StatusApproved {
		t.Errorf("expected status %q, got %q", domain.StatusApproved, updated.Status)
	}
	if updated.UserEmail != "bob@example.com" {
		t.Errorf("wrong requester recorded: %q", updated.UserEmail)
	}
	if got := f.assets.quantity(t, asset.ID); got != 2 {
		t.Errorf("expected quantity 2, got %d", got)
	}
	if _, ok := f.aff.affiliated["bob@example.com"]; !ok {
		t.Error("employee was not affiliated")
	}
}

func TestRequestService_DirectAssign_TargetNotEmployee(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	f.seedHR("other@globex.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 1)

	_, err := f.svc.DirectAssign(context.Background(), ports.DirectAssignInput{
		HREmail:       "hr@initech.com",
		EmployeeEmail: "other@globex.com",
		AssetID:       asset.ID,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := f.assets.quantity(t, asset.ID); got != 1 {
		t.Errorf("failed assignment must not touch stock: quantity %d", got)
	}
}

func TestRequestService_DirectAssign_UnknownEmployee(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 1)

	_, err := f.svc.DirectAssign(context.Background(), ports.DirectAssignInput{
		HREmail:       "hr@initech.com",
		EmployeeEmail: "ghost@example.com",
		AssetID:       asset.ID,
	})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// List tests
// ---------------------------------------------------------------------------

func TestRequestService_List_FiltersByEmployee(t *testing.T) {
	f := newRequestFixture()
	f.seedHR("hr@initech.com")
	asset := f.seedAsset(t, domain.TypeReturnable, 5)
	f.seedPending(t, asset.ID)

	_, err := f.svc.CreateRequest(context.Background(), ports.CreateRequestInput{
		EmployeeEmail: "bob@example.com",
		EmployeeName:  "Bob",
		AssetID:       asset.ID,
		HREmail:       "hr@initech.com",
	})
	if err != nil {
		t.Fatalf("creating second request: %v", err)
	}

	got, err := f.svc.List(context.Background(), ports.RequestFilter{UserEmail: "ana@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 request for ana, got %d", len(got))
	}
	if got[0].UserEmail != "ana@example.com" {
		t.Errorf("wrong requester in result: %q", got[0].UserEmail)
	}
}
