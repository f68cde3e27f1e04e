package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/events"
	"github.com/sakif/coursehub/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGateway is an in-memory repository.Gateway. Set failWith to make every
// call fail as if the database were down.
type fakeGateway struct {
	mu       sync.Mutex
	users    map[int64]*model.User
	accounts map[string]int64 // provider + "/" + account id → user id
	courses  map[int64]*model.Course
	reviews  map[int64]*model.Review
	nextID   int64
	failWith error

	createReviewCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users:    make(map[int64]*model.User),
		accounts: make(map[string]int64),
		courses:  make(map[int64]*model.Course),
		reviews:  make(map[int64]*model.Review),
	}
}

func (f *fakeGateway) id() int64 {
	f.nextID++
	return f.nextID
}

// --- users ---

func (f *fakeGateway) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperror.Conflict("email is already registered")
		}
	}
	u.ID = f.id()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeGateway) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeGateway) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user with email", email)
}

func (f *fakeGateway) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGateway) UpdateProfile(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	stored, ok := f.users[u.ID]
	if !ok {
		return apperror.NotFound("user", u.ID)
	}
	stored.Name = u.Name
	stored.Image = u.Image
	return nil
}

func (f *fakeGateway) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	stored, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	stored.PasswordHash = hash
	return nil
}

func (f *fakeGateway) LinkAccount(_ context.Context, a model.OAuthAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	key := a.Provider + "/" + a.ProviderAccountID
	if _, ok := f.accounts[key]; ok {
		return apperror.Conflict("account is already linked")
	}
	f.accounts[key] = a.UserID
	return nil
}

func (f *fakeGateway) GetUserByAccount(_ context.Context, provider, accountID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	id, ok := f.accounts[provider+"/"+accountID]
	if !ok {
		return nil, apperror.NotFound(provider+" account", accountID)
	}
	copied := *f.users[id]
	return &copied, nil
}

// --- courses ---

func (f *fakeGateway) ResolveCourse(_ context.Context, name string) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, c := range f.courses {
		if model.CourseKey(c.Name) == model.CourseKey(name) {
			copied := *c
			return &copied, nil
		}
	}
	c := &model.Course{ID: f.id(), Name: name}
	f.courses[c.ID] = c
	copied := *c
	return &copied, nil
}

func (f *fakeGateway) ListCourses(_ context.Context) ([]model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Course{}
	for _, c := range f.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// --- reviews ---

func (f *fakeGateway) CreateReview(_ context.Context, r *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createReviewCalls++
	if f.failWith != nil {
		return f.failWith
	}
	r.ID = f.id()
	r.CreatedAt = time.Now().UTC()
	copied := *r
	f.reviews[r.ID] = &copied
	return nil
}

func (f *fakeGateway) joined(r *model.Review) model.Review {
	out := *r
	if c, ok := f.courses[r.CourseID]; ok {
		out.Course = *c
	}
	if u, ok := f.users[r.UserID]; ok {
		out.User = u.Public()
	}
	return out
}

func (f *fakeGateway) GetReview(_ context.Context, id int64) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	r, ok := f.reviews[id]
	if !ok {
		return nil, apperror.NotFound("review", id)
	}
	out := f.joined(r)
	return &out, nil
}

func (f *fakeGateway) ListReviews(_ context.Context) ([]model.Review, error) {
	return f.listWhere(func(*model.Review) bool { return true })
}

func (f *fakeGateway) ListReviewsByUser(_ context.Context, userID int64) ([]model.Review, error) {
	return f.listWhere(func(r *model.Review) bool { return r.UserID == userID })
}

func (f *fakeGateway) listWhere(keep func(*model.Review) bool) ([]model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Review{}
	for _, r := range f.reviews {
		if keep(r) {
			out = append(out, f.joined(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeGateway) UpdateReview(_ context.Context, r *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	stored, ok := f.reviews[r.ID]
	if !ok {
		return apperror.NotFound("review", r.ID)
	}
	stored.Rating = r.Rating
	stored.Comment = r.Comment
	return nil
}

func (f *fakeGateway) DeleteReview(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.reviews[id]; !ok {
		return apperror.NotFound("review", id)
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeGateway) Ping(context.Context) error { return f.failWith }
func (f *fakeGateway) Close() error               { return nil }

// storedReview reads a review straight from the fake, bypassing the service.
func (f *fakeGateway) storedReview(id int64) (model.Review, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return model.Review{}, false
	}
	return *r, true
}

func (f *fakeGateway) countReviewsBy(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.reviews {
		if r.UserID == userID {
			n++
		}
	}
	return n
}

func (f *fakeGateway) seedUser(name, email string) *model.User {
	u := &model.User{Name: name, Email: email}
	if err := f.CreateUser(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []events.ReviewEvent
	failErr error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.ReviewEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
