package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/coursemart/app/models"
)

// MemoryStore keeps everything in maps guarded by one lock. It is used by
// tests and by DB_DRIVER=memory.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]models.User
	admins    map[string]models.Admin
	courses   map[string]models.Course
	purchases map[string]models.Purchase
	orders    map[string]models.Order
	now       func() time.Time

	// seq orders records created within the same clock tick.
	seq     int64
	created map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     map[string]models.User{},
		admins:    map[string]models.Admin{},
		courses:   map[string]models.Course{},
		purchases: map[string]models.Purchase{},
		orders:    map[string]models.Order{},
		created:   map[string]int64{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Backend() string               { return "memory" }
func (s *MemoryStore) Users() UserRepository         { return memUsers{s} }
func (s *MemoryStore) Admins() AdminRepository       { return memAdmins{s} }
func (s *MemoryStore) Courses() CourseRepository     { return memCourses{s} }
func (s *MemoryStore) Purchases() PurchaseRepository { return memPurchases{s} }
func (s *MemoryStore) Orders() OrderRepository       { return memOrders{s} }
func (s *MemoryStore) Ping(context.Context) error    { return nil }
func (s *MemoryStore) Close(context.Context) error   { return nil }

func (s *MemoryStore) stamp(id string) {
	s.seq++
	s.created[id] = s.seq
}

func (s *MemoryStore) RecordPurchase(_ context.Context, o *models.Order, p *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.purchases {
		if existing.UserID == p.UserID && existing.CourseID == p.CourseID {
			return ErrDuplicate
		}
	}
	for _, existing := range s.orders {
		if existing.PaymentID == o.PaymentID {
			return ErrDuplicate
		}
	}

	now := s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	o.CreatedAt, o.UpdatedAt = now, now

	s.purchases[p.ID] = *p
	s.orders[o.ID] = *o
	s.stamp(p.ID)
	s.stamp(o.ID)
	return nil
}

// ─── Users / Admins ───────────────────────────────────────────────────────────

type memUsers struct{ s *MemoryStore }

func (r memUsers) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = *u
	return nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

type memAdmins struct{ s *MemoryStore }

func (r memAdmins) Create(_ context.Context, a *models.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.admins {
		if strings.EqualFold(existing.Email, a.Email) {
			return ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.s.now()
	r.s.admins[a.ID] = *a
	return nil
}

func (r memAdmins) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.admins {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (r memAdmins) FindByID(_ context.Context, id string) (*models.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// ─── Courses ──────────────────────────────────────────────────────────────────

type memCourses struct{ s *MemoryStore }

func cloneCourse(c models.Course) models.Course {
	c.Images = append([]models.Image(nil), c.Images...)
	return c
}

func (r memCourses) Create(_ context.Context, c *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := r.s.courses[c.ID]; ok {
		return ErrDuplicate
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.courses[c.ID] = cloneCourse(*c)
	r.s.stamp(c.ID)
	return nil
}

func (r memCourses) FindByID(_ context.Context, id string) (*models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneCourse(c)
	return &c, nil
}

func (r memCourses) FindByIDs(_ context.Context, ids []string) ([]models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Course, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if c, ok := r.s.courses[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, cloneCourse(c))
		}
	}
	r.s.newestFirst(out)
	return out, nil
}

func (r memCourses) List(context.Context) ([]models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Course, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		out = append(out, cloneCourse(c))
	}
	r.s.newestFirst(out)
	return out, nil
}

// newestFirst sorts by creation order; callers hold the lock.
func (s *MemoryStore) newestFirst(cs []models.Course) {
	sort.Slice(cs, func(i, j int) bool { return s.created[cs[i].ID] > s.created[cs[j].ID] })
}

func (r memCourses) FindOwned(_ context.Context, id, creatorID string) (*models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.courses[id]
	if !ok || c.CreatorID != creatorID {
		return nil, ErrNotFound
	}
	c = cloneCourse(c)
	return &c, nil
}

func (r memCourses) UpdateOwned(_ context.Context, c *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.courses[c.ID]
	if !ok || existing.CreatorID != c.CreatorID {
		return ErrNotFound
	}
	existing.Title = c.Title
	existing.Description = c.Description
	existing.Price = c.Price
	existing.Images = append([]models.Image(nil), c.Images...)
	existing.UpdatedAt = r.s.now()
	r.s.courses[c.ID] = existing
	*c = cloneCourse(existing)
	return nil
}

func (r memCourses) DeleteOwned(_ context.Context, id, creatorID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.courses[id]
	if !ok || c.CreatorID != creatorID {
		return ErrNotFound
	}
	delete(r.s.courses, id)
	return nil
}

// ─── Purchases / Orders ───────────────────────────────────────────────────────

type memPurchases struct{ s *MemoryStore }

func (r memPurchases) Exists(_ context.Context, userID, courseID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.purchases {
		if p.UserID == userID && p.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r memPurchases) ListByUser(_ context.Context, userID string) ([]models.Purchase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Purchase{}
	for _, p := range r.s.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.created[out[i].ID] > r.s.created[out[j].ID] })
	return out, nil
}

type memOrders struct{ s *MemoryStore }

func (r memOrders) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Order{}
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.created[out[i].ID] > r.s.created[out[j].ID] })
	return out, nil
}
