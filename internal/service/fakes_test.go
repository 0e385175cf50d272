package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/mailer"
	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/queue"
	"github.com/iliyamo/equipment-rental/internal/repository"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func pngUpload() *media.Upload {
	return &media.Upload{
		Filename: "photo.png",
		Size:     int64(len(pngBytes)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(pngBytes)), nil },
	}
}

func textUpload() *media.Upload {
	data := []byte("definitely not an image")
	return &media.Upload{
		Filename: "notes.png",
		Size:     int64(len(data)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[uint64]*model.User{}} }

func cloneUser(u *model.User) *model.User {
	c := *u
	if u.OTP != nil {
		v := *u.OTP
		c.OTP = &v
	}
	if u.Image != nil {
		v := *u.Image
		c.Image = &v
	}
	c.ImageURL = nil
	return &c
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Username == u.Username {
			return &repository.DuplicateError{Field: "username"}
		}
		if r.Email == strings.ToLower(u.Email) {
			return &repository.DuplicateError{Field: "email"}
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	m.rows[u.ID] = cloneUser(u)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.rows[id]; ok {
		return cloneUser(u), nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) find(pred func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if pred(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == strings.TrimSpace(username) })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u *model.User) bool { return u.Email == email })
}

func (m *memUsers) List(_ context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.User{}
	for _, u := range m.rows {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) UsernameTaken(_ context.Context, username string, excludeID uint64) (bool, error) {
	_, err := m.find(func(u *model.User) bool { return u.Username == username && u.ID != excludeID })
	return err == nil, nil
}

func (m *memUsers) EmailTaken(_ context.Context, email string, excludeID uint64) (bool, error) {
	email = strings.ToLower(email)
	_, err := m.find(func(u *model.User) bool { return u.Email == email && u.ID != excludeID })
	return err == nil, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[u.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	r.Firstname, r.Lastname, r.Username, r.Email = u.Firstname, u.Lastname, u.Username, strings.ToLower(u.Email)
	r.Image = cloneUser(u).Image
	return nil
}

func (m *memUsers) update(id uint64, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(r)
	return nil
}

func (m *memUsers) SetOTP(_ context.Context, id uint64, otp string) error {
	return m.update(id, func(u *model.User) { u.OTP = &otp })
}

func (m *memUsers) Activate(_ context.Context, id uint64) error {
	return m.update(id, func(u *model.User) { u.Status = model.StatusActive; u.OTP = nil })
}

func (m *memUsers) ResetPassword(_ context.Context, id uint64, hash string) error {
	return m.update(id, func(u *model.User) { u.PasswordHash = hash; u.OTP = nil })
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.rows, id)
	return nil
}

// memTokens is an in-memory TokenStore.
type memTokens struct {
	mu   sync.Mutex
	rows map[string]*tokenRow
}

type tokenRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

func newMemTokens() *memTokens { return &memTokens{rows: map[string]*tokenRow{}} }

func (m *memTokens) Store(_ context.Context, userID uint64, _ string, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[hash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) Validate(_ context.Context, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[hash]
	if !ok || r.revoked || time.Now().After(r.exp) {
		return 0, repository.ErrTokenNotFound
	}
	return r.userID, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[hash]; ok {
		r.revoked = true
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.userID == userID {
			r.revoked = true
		}
	}
	return nil
}

func (m *memTokens) active(userID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.userID == userID && !r.revoked {
			n++
		}
	}
	return n
}

// memEquipment is an in-memory EquipmentStore.  Items listed in referenced
// refuse deletion like the RESTRICT foreign key does.
type memEquipment struct {
	mu         sync.Mutex
	nextID     uint64
	rows       map[uint64]*model.Equipment
	referenced map[uint64]bool
	failCreate error
}

func newMemEquipment() *memEquipment {
	return &memEquipment{rows: map[uint64]*model.Equipment{}, referenced: map[uint64]bool{}}
}

func cloneEquipment(e *model.Equipment) *model.Equipment {
	c := *e
	if e.Image != nil {
		v := *e.Image
		c.Image = &v
	}
	c.ImageURL = nil
	return &c
}

func (m *memEquipment) List(_ context.Context) ([]*model.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Equipment{}
	for _, e := range m.rows {
		out = append(out, cloneEquipment(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memEquipment) GetByID(_ context.Context, id uint64) (*model.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rows[id]; ok {
		return cloneEquipment(e), nil
	}
	return nil, repository.ErrEquipmentNotFound
}

func (m *memEquipment) Create(_ context.Context, e *model.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	if e.Status == "" {
		e.Status = model.EquipmentAvailable
	}
	m.nextID++
	e.ID = m.nextID
	m.rows[e.ID] = cloneEquipment(e)
	return nil
}

func (m *memEquipment) Update(_ context.Context, e *model.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[e.ID]; !ok {
		return repository.ErrEquipmentNotFound
	}
	m.rows[e.ID] = cloneEquipment(e)
	return nil
}

func (m *memEquipment) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrEquipmentNotFound
	}
	if m.referenced[id] {
		return repository.ErrConflict
	}
	delete(m.rows, id)
	return nil
}

// memOrders is an in-memory OrderStore joined against a memEquipment.
type memOrders struct {
	mu        sync.Mutex
	nextID    uint64
	rows      []*model.Order
	equipment *memEquipment
}

func (m *memOrders) Create(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Now().Add(time.Duration(o.ID) * time.Second)
	o.UpdatedAt = o.CreatedAt
	c := *o
	m.rows = append(m.rows, &c)
	m.equipment.mu.Lock()
	m.equipment.referenced[o.EquipmentID] = true
	m.equipment.mu.Unlock()
	return nil
}

func (m *memOrders) ListByUser(ctx context.Context, userID uint64) ([]*model.Order, error) {
	m.mu.Lock()
	var mine []*model.Order
	for _, o := range m.rows {
		if o.UserID == userID {
			c := *o
			mine = append(mine, &c)
		}
	}
	m.mu.Unlock()
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	for _, o := range mine {
		e, err := m.equipment.GetByID(ctx, o.EquipmentID)
		if err != nil {
			return nil, err
		}
		o.Equipment = e
	}
	return mine, nil
}

// recordingNotifier captures the codes that would have been mailed.
type recordingNotifier struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
	err    error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{verify: map[string]string{}, reset: map[string]string{}}
}

func (n *recordingNotifier) SendVerificationOTP(_ context.Context, to mailer.Recipient, otp string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verify[to.Email] = otp
	return n.err
}

func (n *recordingNotifier) SendPasswordResetOTP(_ context.Context, to mailer.Recipient, otp string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[to.Email] = otp
	return n.err
}

type recordingEvents struct {
	got []queue.OrderPlacedEvent
	err error
}

func (r *recordingEvents) PublishOrderPlaced(_ context.Context, ev queue.OrderPlacedEvent) error {
	r.got = append(r.got, ev)
	return r.err
}

const testSecret = "test-secret"

type authFixture struct {
	svc    *AuthService
	users  *memUsers
	tokens *memTokens
	mail   *recordingNotifier
	media  *media.LocalStorage
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  newMemUsers(),
		tokens: newMemTokens(),
		mail:   newRecordingNotifier(),
		media:  media.NewLocalStorage(t.TempDir(), "/storage", "http://localhost:8080", 2048*1024),
	}
	f.svc = NewAuthService(f.users, f.tokens, f.media, f.mail, AuthConfig{
		JWTSecret:    testSecret,
		TokenTTLMin:  60,
		BcryptCost:   4,
		DefaultImage: "user_profiles/default.png",
		MaxUploadKB:  2048,
	}, zap.NewNop())
	return f
}

func ptr(s string) *string { return &s }
