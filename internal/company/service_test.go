package company

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

type mockRepository struct {
	companies   map[int64]*Company
	byLicenseNo map[string]*Company
	nextID      int64
	codeCounter int

	lastListReq ListCompaniesRequest
	lastUpdates map[string]interface{}

	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		companies:   make(map[int64]*Company),
		byLicenseNo: make(map[string]*Company),
		nextID:      1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockRepository) GetByLicenseNo(ctx context.Context, licenseNo string) (*Company, error) {
	c, ok := m.byLicenseNo[licenseNo]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, req ListCompaniesRequest) ([]Company, int, error) {
	m.lastListReq = req
	result := []Company{}
	for _, c := range m.companies {
		if req.ProvinceID != nil {
			if c.ProvinceID == nil || *c.ProvinceID != *req.ProvinceID {
				continue
			}
		}
		if req.CreatedBy != nil && c.CreatedBy != *req.CreatedBy {
			continue
		}
		result = append(result, *c)
	}
	return result, len(result), nil
}

func (m *mockRepository) Create(ctx context.Context, c Company) (int64, error) {
	id := m.nextID
	m.nextID++
	c.ID = id
	m.companies[id] = &c
	m.byLicenseNo[c.LicenseNo] = &c
	return id, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	m.lastUpdates = updates
	c, ok := m.companies[id]
	if !ok {
		return ErrNotFound
	}
	if name, ok := updates["name"].(string); ok {
		c.Name = name
	}
	if active, ok := updates["is_active"].(bool); ok {
		c.IsActive = active
	}
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.companies[id]; !ok {
		return ErrNotFound
	}
	delete(m.companies, id)
	return nil
}

func (m *mockRepository) GenerateCode(ctx context.Context) (string, error) {
	m.codeCounter++
	return fmt.Sprintf("CMP-%06d", m.codeCounter), nil
}

var _ Repository = (*mockRepository)(nil)

func int64p(v int64) *int64 {
	p := v
	return &p
}

func strp(v string) *string {
	p := v
	return &p
}

func principal(t *testing.T, userID string, role authz.Role, provinceID *int64) authz.Principal {
	t.Helper()
	p, err := authz.NewPrincipal(userID, role, provinceID, authz.LicenseNone)
	require.NoError(t, err)
	return p
}

func seedCompany(m *mockRepository, c Company) int64 {
	id, _ := m.Create(context.Background(), c)
	return id
}

func validCreateRequest(provinceID int64) CreateCompanyRequest {
	return CreateCompanyRequest{
		Name:          "Ariana Real Estate",
		LicenseNo:     "RE-1001",
		LicenseType:   "realEstate",
		ProvinceID:    int64p(provinceID),
		LicenseExpiry: time.Now().AddDate(1, 0, 0),
		OwnerName:     "A. Karimi",
	}
}

func TestListAdminUnfiltered(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	admin := principal(t, "1", authz.RoleAdmin, nil)

	seedCompany(repo, Company{Name: "One", LicenseNo: "L1", ProvinceID: int64p(5), CreatedBy: 9})
	seedCompany(repo, Company{Name: "Two", LicenseNo: "L2", ProvinceID: int64p(7), CreatedBy: 10})

	companies, total, err := svc.List(context.Background(), admin, ListCompaniesRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, companies, 2)
	assert.Nil(t, repo.lastListReq.ProvinceID)
	assert.Nil(t, repo.lastListReq.CreatedBy)
}

func TestListRegistrarScopedToProvince(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	registrar := principal(t, "3", authz.RoleCompanyRegistrar, int64p(5))

	seedCompany(repo, Company{Name: "Inside", LicenseNo: "L1", ProvinceID: int64p(5), CreatedBy: 9})
	seedCompany(repo, Company{Name: "Outside", LicenseNo: "L2", ProvinceID: int64p(7), CreatedBy: 9})

	companies, total, err := svc.List(context.Background(), registrar, ListCompaniesRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, companies, 1)
	assert.Equal(t, "Inside", companies[0].Name)
	require.NotNil(t, repo.lastListReq.ProvinceID)
	assert.Equal(t, int64(5), *repo.lastListReq.ProvinceID)
}

func TestGetRegistrarOutsideProvince(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	registrar := principal(t, "3", authz.RoleCompanyRegistrar, int64p(5))

	id := seedCompany(repo, Company{Name: "Outside", LicenseNo: "L2", ProvinceID: int64p(7), CreatedBy: 9})

	_, err := svc.Get(context.Background(), registrar, id)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestCreateRegistrarOwnProvinceOnly(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	registrar := principal(t, "3", authz.RoleCompanyRegistrar, int64p(5))

	created, err := svc.Create(context.Background(), registrar, validCreateRequest(5))
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.CreatedBy)
	assert.Equal(t, "CMP-000001", created.Code)
	assert.True(t, created.IsActive)

	req := validCreateRequest(7)
	req.LicenseNo = "RE-1002"
	_, err = svc.Create(context.Background(), registrar, req)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestCreateDuplicateLicense(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	admin := principal(t, "1", authz.RoleAdmin, nil)

	_, err := svc.Create(context.Background(), admin, validCreateRequest(5))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), admin, validCreateRequest(5))
	assert.ErrorIs(t, err, ErrDuplicateLicense)
}

func TestCreateDeniedForViewOnlyRole(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	authority := principal(t, "2", authz.RoleAuthority, nil)

	_, err := svc.Create(context.Background(), authority, validCreateRequest(5))
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Empty(t, repo.companies)
}

func TestUpdateRegistrarProvinceRule(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	id := seedCompany(repo, Company{Name: "Target", LicenseNo: "L1", ProvinceID: int64p(5), CreatedBy: 9, IsActive: true})

	sameProvince := principal(t, "3", authz.RoleCompanyRegistrar, int64p(5))
	updated, err := svc.Update(context.Background(), sameProvince, id, UpdateCompanyRequest{Name: strp("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	otherProvince := principal(t, "4", authz.RoleCompanyRegistrar, int64p(7))
	_, err = svc.Update(context.Background(), otherProvince, id, UpdateCompanyRequest{Name: strp("Nope")})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Renamed", repo.companies[id].Name)
}

func TestUpdateNoChangesReturnsExisting(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	admin := principal(t, "1", authz.RoleAdmin, nil)

	id := seedCompany(repo, Company{Name: "Same", LicenseNo: "L1", ProvinceID: int64p(5), CreatedBy: 9})

	updated, err := svc.Update(context.Background(), admin, id, UpdateCompanyRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Same", updated.Name)
	assert.Nil(t, repo.lastUpdates)
}

func TestDeleteAdminOnly(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	id := seedCompany(repo, Company{Name: "Doomed", LicenseNo: "L1", ProvinceID: int64p(5), CreatedBy: 3})

	registrar := principal(t, "3", authz.RoleCompanyRegistrar, int64p(5))
	err := svc.Delete(context.Background(), registrar, id)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Contains(t, repo.companies, id)

	admin := principal(t, "1", authz.RoleAdmin, nil)
	err = svc.Delete(context.Background(), admin, id)
	require.NoError(t, err)
	assert.NotContains(t, repo.companies, id)
}

type recordingAudit struct {
	entries []shared.AuditLog
	err     error
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, log)
	return nil
}

func TestCreateRecordsAuditEntry(t *testing.T) {
	repo := newMockRepository()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)
	admin := principal(t, "1", authz.RoleAdmin, nil)

	created, err := svc.Create(context.Background(), admin, validCreateRequest(5))
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "1", entry.ActorID)
	assert.Equal(t, "create", entry.Action)
	assert.Equal(t, "company", entry.Module)
	assert.Equal(t, fmt.Sprintf("%d", created.ID), entry.EntityID)
}

func TestAuditFailureDoesNotBlockMutation(t *testing.T) {
	repo := newMockRepository()
	audit := &recordingAudit{err: errors.New("trail unavailable")}
	var buf bytes.Buffer
	svc := NewService(repo, audit, slog.New(slog.NewTextHandler(&buf, nil)))
	admin := principal(t, "1", authz.RoleAdmin, nil)

	created, err := svc.Create(context.Background(), admin, validCreateRequest(5))
	require.NoError(t, err)
	assert.Contains(t, repo.companies, created.ID)

	logged := buf.String()
	assert.Contains(t, logged, "audit record failed")
	assert.Contains(t, logged, "trail unavailable")
}

func TestCreateTxFailure(t *testing.T) {
	repo := newMockRepository()
	repo.txError = errors.New("connection reset")
	svc := NewService(repo, nil, nil)
	admin := principal(t, "1", authz.RoleAdmin, nil)

	_, err := svc.Create(context.Background(), admin, validCreateRequest(5))
	require.Error(t, err)
	assert.Empty(t, repo.companies)
}
