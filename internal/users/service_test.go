package users

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
)

type mockRepository struct {
	users       map[int64]*User
	passwords   map[int64]string
	nextID      int64
	lastUpdates map[string]interface{}
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:     make(map[int64]*User),
		passwords: make(map[int64]string),
		nextID:    1,
	}
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, req ListUsersRequest) ([]User, int, error) {
	result := []User{}
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, len(result), nil
}

func (m *mockRepository) Create(ctx context.Context, u User, passwordHash string) (int64, error) {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return 0, ErrDuplicateEmail
		}
	}
	id := m.nextID
	m.nextID++
	u.ID = id
	m.users[id] = &u
	m.passwords[id] = passwordHash
	return id, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	m.lastUpdates = updates
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	if name, ok := updates["name"].(string); ok {
		u.Name = name
	}
	if role, ok := updates["role"].(string); ok {
		u.Role = role
	}
	if hash, ok := updates["password_hash"].(string); ok {
		m.passwords[id] = hash
	}
	return nil
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

func adminPrincipal(t *testing.T) authz.Principal {
	t.Helper()
	p, err := authz.NewPrincipal("1", authz.RoleAdmin, nil, authz.LicenseNone)
	require.NoError(t, err)
	return p
}

func TestValidateAssignment(t *testing.T) {
	cases := []struct {
		name       string
		role       string
		provinceID *int64
		companyID  *int64
		wantErr    bool
	}{
		{"admin bare", "admin", nil, nil, false},
		{"authority bare", "authority", nil, nil, false},
		{"reviewer bare", "license_reviewer", nil, nil, false},
		{"registrar with province", "company_registrar", int64p(5), nil, false},
		{"registrar without province", "company_registrar", nil, nil, true},
		{"property operator with company", "property_operator", nil, int64p(11), false},
		{"property operator without company", "property_operator", nil, nil, true},
		{"vehicle operator without company", "vehicle_operator", nil, nil, true},
		{"unknown role", "superuser", int64p(5), int64p(11), true},
		{"empty role", "", nil, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateAssignment(tc.role, tc.provinceID, tc.companyID)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAssignment)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	created, err := svc.Create(context.Background(), adminPrincipal(t), CreateUserRequest{
		Email:    "clerk@registra.local",
		Name:     "Clerk",
		Password: "longenough",
		Role:     "authority",
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	hash := repo.passwords[created.ID]
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "longenough", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("longenough")))
}

func TestCreateRejectsStrandedRegistrar(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), adminPrincipal(t), CreateUserRequest{
		Email:    "reg@registra.local",
		Name:     "Registrar",
		Password: "longenough",
		Role:     "company_registrar",
	})
	assert.ErrorIs(t, err, ErrInvalidAssignment)
	assert.Empty(t, repo.users)
}

func TestCreateDeniedWithoutUsersCapability(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	registrar, err := authz.NewPrincipal("3", authz.RoleCompanyRegistrar, int64p(5), authz.LicenseNone)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), registrar, CreateUserRequest{
		Email:    "x@registra.local",
		Name:     "X",
		Password: "longenough",
		Role:     "authority",
	})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestUpdateRevalidatesMergedAssignment(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	admin := adminPrincipal(t)

	created, err := svc.Create(context.Background(), admin, CreateUserRequest{
		Email:    "clerk@registra.local",
		Name:     "Clerk",
		Password: "longenough",
		Role:     "authority",
	})
	require.NoError(t, err)

	// Promoting to registrar without a province must fail.
	_, err = svc.Update(context.Background(), admin, created.ID, UpdateUserRequest{Role: strp("company_registrar")})
	assert.ErrorIs(t, err, ErrInvalidAssignment)

	// With a province it goes through.
	updated, err := svc.Update(context.Background(), admin, created.ID, UpdateUserRequest{
		Role:       strp("company_registrar"),
		ProvinceID: int64p(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "company_registrar", updated.Role)
}

func TestUpdateRehashesPassword(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	admin := adminPrincipal(t)

	created, err := svc.Create(context.Background(), admin, CreateUserRequest{
		Email:    "clerk@registra.local",
		Name:     "Clerk",
		Password: "longenough",
		Role:     "authority",
	})
	require.NoError(t, err)
	oldHash := repo.passwords[created.ID]

	_, err = svc.Update(context.Background(), admin, created.ID, UpdateUserRequest{Password: strp("evenlonger1")})
	require.NoError(t, err)

	newHash := repo.passwords[created.ID]
	assert.NotEqual(t, oldHash, newHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("evenlonger1")))
}
