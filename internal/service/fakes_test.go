package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
)

// fakeProfiles resolves ids from a fixed directory and records every call.
type fakeProfiles struct {
	mu    sync.Mutex
	known map[string]models.Profile
	calls [][]string
	err   error
}

func newFakeProfiles(profiles ...models.Profile) *fakeProfiles {
	known := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		known[p.ID] = p
	}
	return &fakeProfiles{known: known}
}

func (f *fakeProfiles) Resolve(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.Profile)
	for _, id := range ids {
		if p, ok := f.known[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeUsers satisfies studentLookup.
type fakeUsers map[string]*models.User

func (f fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (f *fakeAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, log)
	return nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// memoryCache is an in-process CacheRepository.
type memoryCache struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]interface{}{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *[]models.Profile:
		*d = v.([]models.Profile)
	case *[]string:
		*d = v.([]string)
	case *[]dto.EventView:
		*d = v.([]dto.EventView)
	}
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := pattern
	if n := len(prefix); n > 0 && prefix[n-1] == '*' {
		prefix = prefix[:n-1]
	}
	for k := range m.values {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.values, k)
		}
	}
	return nil
}

func (m *memoryCache) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func facultyClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleFaculty, FullName: "Prof " + id}
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent, FullName: "Student " + id}
}

func jobsQueueConfig() jobs.QueueConfig {
	return jobs.QueueConfig{}
}
