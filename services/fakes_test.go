package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/models"
	"github.com/cppla/gymchallenge/storage"
	"github.com/cppla/gymchallenge/store"
)

var errDown = errors.New("connection refused")

type memCheckIns struct {
	mu       sync.Mutex
	rows     map[string]models.CheckIn
	nextID   uint
	failFor  map[uint]bool // ListDays fails for these users
	failAll  bool
	upserts  int
	failByDt bool
}

func newMemCheckIns() *memCheckIns {
	return &memCheckIns{rows: map[string]models.CheckIn{}, failFor: map[uint]bool{}}
}

func ckey(userID uint, day string) string { return fmt.Sprintf("%d|%s", userID, day) }

func (m *memCheckIns) Upsert(_ context.Context, userID uint, day calendar.Day, proofURL string) (models.CheckIn, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return models.CheckIn{}, false, errDown
	}
	m.upserts++
	k := ckey(userID, day.String())
	now := time.Now()
	if row, ok := m.rows[k]; ok {
		row.ProofURL = proofURL
		row.UpdatedAt = now
		m.rows[k] = row
		return row, false, nil
	}
	m.nextID++
	row := models.CheckIn{ID: m.nextID, UserID: userID, CheckDate: day.String(), ProofURL: proofURL, CreatedAt: now, UpdatedAt: now}
	m.rows[k] = row
	return row, true, nil
}

func (m *memCheckIns) add(userID uint, dates ...string) {
	for _, d := range dates {
		_, _, _ = m.Upsert(context.Background(), userID, calendar.MustParseDay(d), "/p/"+d)
	}
}

func (m *memCheckIns) Find(_ context.Context, userID uint, day calendar.Day) (models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return models.CheckIn{}, errDown
	}
	row, ok := m.rows[ckey(userID, day.String())]
	if !ok {
		return models.CheckIn{}, store.ErrNotFound
	}
	return row, nil
}

func (m *memCheckIns) sorted(filter func(models.CheckIn) bool) []models.CheckIn {
	var out []models.CheckIn
	for _, r := range m.rows {
		if filter(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckDate != out[j].CheckDate {
			return out[i].CheckDate < out[j].CheckDate
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (m *memCheckIns) ListDays(_ context.Context, userID uint) ([]calendar.Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll || m.failFor[userID] {
		return nil, errDown
	}
	var out []calendar.Day
	for _, r := range m.sorted(func(r models.CheckIn) bool { return r.UserID == userID }) {
		out = append(out, calendar.MustParseDay(r.CheckDate))
	}
	return out, nil
}

func (m *memCheckIns) ListBetween(_ context.Context, userID uint, from, to calendar.Day) ([]models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll || m.failFor[userID] {
		return nil, errDown
	}
	return m.sorted(func(r models.CheckIn) bool {
		return r.UserID == userID && r.CheckDate >= from.String() && r.CheckDate <= to.String()
	}), nil
}

func (m *memCheckIns) ListByDate(_ context.Context, day calendar.Day) ([]models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll || m.failByDt {
		return nil, errDown
	}
	return m.sorted(func(r models.CheckIn) bool { return r.CheckDate == day.String() }), nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[uint]models.User
	next  uint
	fail  bool
}

func newMemUsers(names ...string) *memUsers {
	m := &memUsers{users: map[uint]models.User{}}
	for _, n := range names {
		_ = m.Create(context.Background(), &models.User{Username: n, DisplayName: strings.ToUpper(n[:1]) + n[1:]})
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errDown
	}
	for _, ex := range m.users {
		if ex.Username == u.Username {
			return store.ErrDuplicate
		}
	}
	m.next++
	u.ID = m.next
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id uint) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return models.User{}, errDown
	}
	u, ok := m.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return models.User{}, errDown
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (m *memUsers) List(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errDown
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) Search(ctx context.Context, query string, excludeID uint, limit int) ([]models.User, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.User
	q := strings.ToLower(query)
	for _, u := range all {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username+" "+u.Email+" "+u.DisplayName), q) {
			out = append(out, u)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memProofs struct {
	mu       sync.Mutex
	rows     []models.ProofFile
	next     uint
	checkIns *memCheckIns // source of the live proof URL
}

func (m *memProofs) Create(_ context.Context, f *models.ProofFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	f.ID = m.next
	m.rows = append(m.rows, *f)
	return nil
}

func (m *memProofs) MarkReplaced(ctx context.Context, userID uint, day calendar.Day, at time.Time) error {
	var live string
	if m.checkIns != nil {
		if row, err := m.checkIns.Find(ctx, userID, day); err == nil {
			live = row.ProofURL
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.UserID == userID && r.CheckDate == day.String() && r.URL != live && r.ReplacedAt == nil {
			t := at
			m.rows[i].ReplacedAt = &t
		}
	}
	return nil
}

func (m *memProofs) ListExpired(_ context.Context, before time.Time, limit int) ([]models.ProofFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProofFile
	for _, r := range m.rows {
		if r.ReplacedAt != nil && !r.ReplacedAt.After(before) {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memProofs) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	n       int
	fail    bool
	removed []string
}

func newMemStorage() *memStorage { return &memStorage{files: map[string][]byte{}} }

func (m *memStorage) Save(_ context.Context, userID uint, day calendar.Day, r io.Reader, _ string) (storage.Stored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return storage.Stored{}, errDown
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return storage.Stored{}, err
	}
	m.n++
	p := fmt.Sprintf("/data/%s/%d_%d.jpg", day, userID, m.n)
	m.files[p] = b
	return storage.Stored{Path: p, URL: "/static" + p, Size: int64(len(b))}, nil
}

func (m *memStorage) Remove(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, p)
	m.removed = append(m.removed, p)
	return nil
}

type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok
}

func (c *memCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *memCache) InvalidatePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
}
