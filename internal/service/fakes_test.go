package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/storage"
)

var nopLog = zerolog.Nop()

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func newStore(t *testing.T) *storage.FSStore {
	t.Helper()
	st, err := storage.NewFSStore(t.TempDir(), "/storage")
	require.NoError(t, err)
	return st
}

// txDB returns a sqlmock DB used only to hand out transactions.
func txDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type published struct {
	queue string
	v     any
}

type recordPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordPublisher) Publish(_ context.Context, queue string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{queue: queue, v: v})
	return nil
}

func (p *recordPublisher) on(queue string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, m := range p.msgs {
		if m.queue == queue {
			out = append(out, m.v)
		}
	}
	return out
}

type recordNotifier struct {
	sent []*model.Notification
}

func (n *recordNotifier) Notify(_ context.Context, userID uint64, typ, title, body, link string) (*model.Notification, error) {
	m := &model.Notification{ID: uint64(len(n.sent) + 1), UserID: userID, Type: typ, Title: title, Body: body, Link: link}
	n.sent = append(n.sent, m)
	return m, nil
}

type memUsers struct {
	byID map[uint64]*model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]*model.User{}} }

func (m *memUsers) Create(_ context.Context, email, hash, role string) (uint64, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	id := uint64(len(m.byID) + 1)
	m.byID[id] = &model.User{ID: id, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	return id, nil
}

func (m *memUsers) CreateTx(ctx context.Context, _ *sql.Tx, email, hash, role string) (uint64, error) {
	return m.Create(ctx, email, hash, role)
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = repository.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type tokenRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
	used    bool
}

type memTokens struct {
	refresh map[string]*tokenRow
	reset   map[string]*tokenRow
}

func newMemTokens() *memTokens {
	return &memTokens{refresh: map[string]*tokenRow{}, reset: map[string]*tokenRow{}}
}

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.refresh[hash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	r, ok := m.refresh[hash]
	if !ok || r.revoked || time.Now().After(r.exp) {
		return 0, repository.ErrNotFound
	}
	return r.userID, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	if r, ok := m.refresh[hash]; ok {
		r.revoked = true
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	for _, r := range m.refresh {
		if r.userID == userID {
			r.revoked = true
		}
	}
	return nil
}

func (m *memTokens) StoreReset(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.reset[hash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) ConsumeReset(_ context.Context, hash string, now time.Time) (uint64, error) {
	r, ok := m.reset[hash]
	if !ok || r.used || now.After(r.exp) {
		return 0, repository.ErrNotFound
	}
	r.used = true
	return r.userID, nil
}

type memProfiles struct {
	m         map[uint64]*model.Profile
	avatarErr error
	upsertErr error
}

func newMemProfiles() *memProfiles { return &memProfiles{m: map[uint64]*model.Profile{}} }

func (m *memProfiles) Get(_ context.Context, userID uint64) (*model.Profile, error) {
	p, ok := m.m[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *model.Profile) error {
	cur, ok := m.m[p.UserID]
	if !ok {
		cur = &model.Profile{UserID: p.UserID}
		m.m[p.UserID] = cur
	}
	cur.FullName, cur.Phone, cur.CompanyName, cur.Bio, cur.Website = p.FullName, p.Phone, p.CompanyName, p.Bio, p.Website
	return nil
}

func (m *memProfiles) UpsertTx(ctx context.Context, _ *sql.Tx, p *model.Profile) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	return m.Upsert(ctx, p)
}

func (m *memProfiles) UpdateAvatar(_ context.Context, userID uint64, url, path string) error {
	if m.avatarErr != nil {
		return m.avatarErr
	}
	cur, ok := m.m[userID]
	if !ok {
		cur = &model.Profile{UserID: userID}
		m.m[userID] = cur
	}
	cur.AvatarURL, cur.AvatarPath = url, path
	return nil
}

// fakeBookings counts every call so tests can assert that nothing ran.
type fakeBookings struct {
	calls    int
	owner    uint64
	lockErr  error
	existing []*model.Booking
	byID     map[uint64]*model.Booking
	created  []*model.Booking
	updates  []string
}

func (f *fakeBookings) LockResourceTx(context.Context, *sql.Tx, model.ResourceKind, uint64) (uint64, error) {
	f.calls++
	return f.owner, f.lockErr
}

func (f *fakeBookings) ResourceOwner(context.Context, model.ResourceKind, uint64) (uint64, error) {
	f.calls++
	if f.lockErr != nil {
		return 0, f.lockErr
	}
	return f.owner, nil
}

func (f *fakeBookings) FindOverlappingTx(_ context.Context, _ *sql.Tx, _ model.ResourceKind, _ uint64, start, end time.Time) ([]*model.Booking, error) {
	f.calls++
	var out []*model.Booking
	for _, b := range f.existing {
		if b.Status != model.BookingCancelled && b.Status != model.BookingDeclined && b.Overlaps(start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) CreateTx(_ context.Context, _ *sql.Tx, b *model.Booking) error {
	f.calls++
	b.ID = uint64(100 + len(f.created))
	b.Status = model.BookingPending
	f.created = append(f.created, b)
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, _ model.ResourceKind, id uint64) (*model.Booking, error) {
	f.calls++
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) ListByUser(context.Context, model.ResourceKind, uint64) ([]*model.Booking, error) {
	f.calls++
	return f.existing, nil
}

func (f *fakeBookings) ListByResource(context.Context, model.ResourceKind, uint64) ([]*model.Booking, error) {
	f.calls++
	return f.existing, nil
}

func (f *fakeBookings) ListInRange(_ context.Context, _ model.ResourceKind, _ uint64, from, to time.Time) ([]*model.Booking, error) {
	f.calls++
	var out []*model.Booking
	for _, b := range f.existing {
		if b.Status != model.BookingCancelled && b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) UpdateStatus(_ context.Context, _ model.ResourceKind, id uint64, from, to string) error {
	f.calls++
	b, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Status != from {
		return repository.ErrConflict
	}
	b.Status = to
	f.updates = append(f.updates, to)
	return nil
}

type fakeBlocks struct {
	calls  int
	blocks []*model.AvailabilityBlock
}

func (f *fakeBlocks) Create(_ context.Context, b *model.AvailabilityBlock) error {
	f.calls++
	b.ID = uint64(len(f.blocks) + 1)
	f.blocks = append(f.blocks, b)
	return nil
}

func (f *fakeBlocks) Get(_ context.Context, id uint64) (*model.AvailabilityBlock, error) {
	f.calls++
	for _, b := range f.blocks {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBlocks) ListCandidates(context.Context, model.ResourceKind, uint64, time.Time, time.Time) ([]*model.AvailabilityBlock, error) {
	f.calls++
	return f.blocks, nil
}

func (f *fakeBlocks) ListCandidatesTx(context.Context, *sql.Tx, model.ResourceKind, uint64, time.Time, time.Time) ([]*model.AvailabilityBlock, error) {
	f.calls++
	return f.blocks, nil
}

func (f *fakeBlocks) ListByOwner(context.Context, model.ResourceKind, uint64) ([]*model.AvailabilityBlock, error) {
	f.calls++
	return f.blocks, nil
}

func (f *fakeBlocks) Delete(_ context.Context, id uint64) error {
	f.calls++
	for i, b := range f.blocks {
		if b.ID == id {
			f.blocks = append(f.blocks[:i], f.blocks[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
