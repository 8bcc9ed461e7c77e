package securities

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
)

type mockRepository struct {
	batches map[int64]*Batch
	nextID  int64

	lastListReq ListBatchesRequest
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		batches: make(map[int64]*Batch),
		nextID:  1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Batch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, req ListBatchesRequest) ([]Batch, int, error) {
	m.lastListReq = req
	result := []Batch{}
	for _, b := range m.batches {
		if req.ProvinceID != nil {
			if b.ProvinceID == nil || *b.ProvinceID != *req.ProvinceID {
				continue
			}
		}
		if req.CompanyID != nil && b.CompanyID != *req.CompanyID {
			continue
		}
		result = append(result, *b)
	}
	return result, len(result), nil
}

func (m *mockRepository) OverlapExists(ctx context.Context, companyID, serialFrom, serialTo int64) (bool, error) {
	for _, b := range m.batches {
		if b.CompanyID != companyID {
			continue
		}
		if b.SerialFrom <= serialTo && b.SerialTo >= serialFrom {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) Create(ctx context.Context, b Batch) (int64, error) {
	id := m.nextID
	m.nextID++
	b.ID = id
	m.batches[id] = &b
	return id, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	b, ok := m.batches[id]
	if !ok {
		return ErrNotFound
	}
	if issuedBy, ok := updates["issued_by"].(string); ok {
		b.IssuedBy = issuedBy
	}
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.batches[id]; !ok {
		return ErrNotFound
	}
	delete(m.batches, id)
	return nil
}

var _ Repository = (*mockRepository)(nil)

func int64p(v int64) *int64 {
	p := v
	return &p
}

func registrarPrincipal(t *testing.T, userID string, provinceID int64) authz.Principal {
	t.Helper()
	p, err := authz.NewPrincipal(userID, authz.RoleCompanyRegistrar, int64p(provinceID), authz.LicenseNone)
	require.NoError(t, err)
	return p
}

func batchRequest(companyID, from, to int64, provinceID *int64) CreateBatchRequest {
	return CreateBatchRequest{
		CompanyID:  companyID,
		SerialFrom: from,
		SerialTo:   to,
		IssuedBy:   "Provincial Authority",
		IssueDate:  time.Now(),
		ProvinceID: provinceID,
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	reg := registrarPrincipal(t, "3", 5)

	issued, err := svc.Create(context.Background(), reg, batchRequest(11, 100, 200, int64p(5)))
	require.NoError(t, err)
	assert.Equal(t, int64(101), issued.Count())

	cases := []struct{ from, to int64 }{
		{150, 250}, // tail overlap
		{50, 100},  // head overlap
		{120, 180}, // contained
		{90, 210},  // containing
	}
	for _, tc := range cases {
		_, err := svc.Create(context.Background(), reg, batchRequest(11, tc.from, tc.to, int64p(5)))
		assert.ErrorIs(t, err, ErrSerialOverlap, "range [%d, %d]", tc.from, tc.to)
	}

	// Adjacent and different-company ranges are fine.
	_, err = svc.Create(context.Background(), reg, batchRequest(11, 201, 300, int64p(5)))
	assert.NoError(t, err)
	_, err = svc.Create(context.Background(), reg, batchRequest(12, 100, 200, int64p(5)))
	assert.NoError(t, err)
}

func TestCreateRejectsInvertedRange(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	reg := registrarPrincipal(t, "3", 5)

	_, err := svc.Create(context.Background(), reg, batchRequest(11, 200, 100, int64p(5)))
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Empty(t, repo.batches)
}

func TestCreateRegistrarOwnProvinceOnly(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	reg := registrarPrincipal(t, "3", 5)

	_, err := svc.Create(context.Background(), reg, batchRequest(11, 100, 200, int64p(7)))
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.Create(context.Background(), reg, batchRequest(11, 100, 200, nil))
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestListRegistrarScopedToProvince(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	reg := registrarPrincipal(t, "3", 5)

	admin, err := authz.NewPrincipal("1", authz.RoleAdmin, nil, authz.LicenseNone)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), admin, batchRequest(11, 100, 200, int64p(5)))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), admin, batchRequest(12, 100, 200, int64p(7)))
	require.NoError(t, err)

	batches, total, err := svc.List(context.Background(), reg, ListBatchesRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, batches, 1)
	assert.Equal(t, int64(11), batches[0].CompanyID)
}

func TestGetRegistrarOutsideProvince(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	admin, err := authz.NewPrincipal("1", authz.RoleAdmin, nil, authz.LicenseNone)
	require.NoError(t, err)
	issued, err := svc.Create(context.Background(), admin, batchRequest(11, 100, 200, int64p(7)))
	require.NoError(t, err)

	reg := registrarPrincipal(t, "3", 5)
	_, err = svc.Get(context.Background(), reg, issued.ID)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestDeleteDeniedForRegistrar(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	reg := registrarPrincipal(t, "3", 5)

	issued, err := svc.Create(context.Background(), reg, batchRequest(11, 100, 200, int64p(5)))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), reg, issued.ID)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Contains(t, repo.batches, issued.ID)
}
