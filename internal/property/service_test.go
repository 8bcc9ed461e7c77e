package property

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
)

type mockRepository struct {
	registrations map[int64]*Registration
	nextID        int64
	codeCounter   int

	lastListReq ListRegistrationsRequest
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		registrations: make(map[int64]*Registration),
		nextID:        1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Registration, error) {
	reg, ok := m.registrations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *reg
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, req ListRegistrationsRequest) ([]Registration, int, error) {
	m.lastListReq = req
	result := []Registration{}
	for _, reg := range m.registrations {
		if req.CreatedBy != nil && reg.CreatedBy != *req.CreatedBy {
			continue
		}
		result = append(result, *reg)
	}
	return result, len(result), nil
}

func (m *mockRepository) Create(ctx context.Context, reg Registration) (int64, error) {
	id := m.nextID
	m.nextID++
	reg.ID = id
	m.registrations[id] = &reg
	return id, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	reg, ok := m.registrations[id]
	if !ok {
		return ErrNotFound
	}
	if price, ok := updates["price"].(int64); ok {
		reg.Price = price
	}
	if notes, ok := updates["notes"].(string); ok {
		reg.Notes = &notes
	}
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.registrations[id]; !ok {
		return ErrNotFound
	}
	delete(m.registrations, id)
	return nil
}

func (m *mockRepository) GenerateCode(ctx context.Context) (string, error) {
	m.codeCounter++
	return fmt.Sprintf("PRP-%06d", m.codeCounter), nil
}

var _ Repository = (*mockRepository)(nil)

func operator(t *testing.T, userID string, lt authz.LicenseType) authz.Principal {
	t.Helper()
	p, err := authz.NewPrincipal(userID, authz.RolePropertyOperator, nil, lt)
	require.NoError(t, err)
	return p
}

func seedRegistration(m *mockRepository, createdBy int64) int64 {
	id, _ := m.Create(context.Background(), Registration{
		DeedNo:    fmt.Sprintf("D-%d", m.nextID),
		Address:   "Kabul, district 4",
		Price:     1_000_000,
		CompanyID: 11,
		SaleDate:  time.Now(),
		CreatedBy: createdBy,
	})
	return id
}

func TestListOperatorSeesOnlyOwnRecords(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	op := operator(t, "7", authz.LicenseRealEstate)

	seedRegistration(repo, 7)
	seedRegistration(repo, 7)
	seedRegistration(repo, 8)

	regs, total, err := svc.List(context.Background(), op, ListRegistrationsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, regs, 2)
	require.NotNil(t, repo.lastListReq.CreatedBy)
	assert.Equal(t, int64(7), *repo.lastListReq.CreatedBy)
}

func TestListAuthoritySeesEverything(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	authority, err := authz.NewPrincipal("2", authz.RoleAuthority, nil, authz.LicenseNone)
	require.NoError(t, err)

	seedRegistration(repo, 7)
	seedRegistration(repo, 8)

	_, total, err := svc.List(context.Background(), authority, ListRegistrationsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Nil(t, repo.lastListReq.CreatedBy)
}

func TestGetOperatorDeniedForeignRecord(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	op := operator(t, "7", authz.LicenseRealEstate)

	own := seedRegistration(repo, 7)
	foreign := seedRegistration(repo, 8)

	got, err := svc.Get(context.Background(), op, own)
	require.NoError(t, err)
	assert.Equal(t, own, got.ID)

	_, err = svc.Get(context.Background(), op, foreign)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestCreateStampsCreator(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	op := operator(t, "7", authz.LicenseRealEstate)

	created, err := svc.Create(context.Background(), op, CreateRegistrationRequest{
		DeedNo:           "D-900",
		Address:          "Herat, old town",
		AreaSqm:          140,
		Price:            2_500_000,
		SellerName:       "S. Rahimi",
		SellerNationalID: "1398-100",
		BuyerName:        "B. Qaderi",
		BuyerNationalID:  "1398-200",
		CompanyID:        11,
		SaleDate:         time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.CreatedBy)
	assert.Equal(t, "PRP-000001", created.Code)
}

func TestUpdateOperatorOwnershipRule(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	id := seedRegistration(repo, 7)
	newPrice := int64(3_000_000)

	owner := operator(t, "7", authz.LicenseRealEstate)
	updated, err := svc.Update(context.Background(), owner, id, UpdateRegistrationRequest{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, newPrice, updated.Price)

	other := operator(t, "8", authz.LicenseRealEstate)
	_, err = svc.Update(context.Background(), other, id, UpdateRegistrationRequest{Price: &newPrice})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestDeleteDeniedForOperator(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	id := seedRegistration(repo, 7)

	owner := operator(t, "7", authz.LicenseRealEstate)
	err := svc.Delete(context.Background(), owner, id)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	admin, err := authz.NewPrincipal("1", authz.RoleAdmin, nil, authz.LicenseNone)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), admin, id))
	assert.Empty(t, repo.registrations)
}
