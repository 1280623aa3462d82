package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"
)

// --- Mocks ---

type mockUserStore struct {
	mu     sync.Mutex
	users  []*domain.User
	getErr error
}

func (m *mockUserStore) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, &domain.ErrConflict{Message: "Email đã được sử dụng."}
		}
	}
	created := *u
	created.ID = int64(len(m.users) + 1)
	m.users = append(m.users, &created)
	return &created, nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: fmt.Sprint(id)}
}

type mockCatalog struct {
	categories []domain.Category
	products   []domain.Product
	lastFilter domain.ProductFilter
	countErr   error
	mu         sync.Mutex
}

func (m *mockCatalog) ListCategories(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range m.categories {
		if !activeOnly || c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCatalog) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "category", ID: fmt.Sprint(id)}
}

func (m *mockCatalog) matching(filter domain.ProductFilter) []domain.Product {
	var out []domain.Product
	for _, p := range m.products {
		if filter.NameSearch != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.NameSearch)) {
			continue
		}
		if filter.Active != nil && p.IsActive != *filter.Active {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (m *mockCatalog) Search(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	m.mu.Lock()
	m.lastFilter = filter
	m.mu.Unlock()

	all := m.matching(filter)
	if filter.Offset >= len(all) {
		return []domain.Product{}, nil
	}
	end := min(len(all), filter.Offset+filter.Limit)
	return all[filter.Offset:end], nil
}

func (m *mockCatalog) Count(_ context.Context, filter domain.ProductFilter) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.matching(filter)), nil
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: fmt.Sprint(id)}
}

var errStoreDown = errors.New("store down")
