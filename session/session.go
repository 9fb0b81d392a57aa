package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/evopanel/evopanel/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrExpired signals that the session exceeded the inactivity lifetime
// and has been destroyed.
var ErrExpired = errors.New("session expired by inactivity")

const (
	// CookieName carries the session identifier; the payload itself
	// never leaves the server.
	CookieName = "panel_session"

	// Session IDs rotate at this interval to limit fixation windows.
	regenInterval = 30 * time.Minute

	contextKey = "panel_session_object"
)

type payload struct {
	Values       map[string]string `json:"values"`
	Flash        map[string]string `json:"flash,omitempty"`
	CSRFToken    string            `json:"csrf_token,omitempty"`
	CSRFIssuedAt int64             `json:"csrf_issued_at,omitempty"`
	LastActivity int64             `json:"last_activity"`
	LastRegen    int64             `json:"last_regen"`
}

// Session is the per-request view of the server-side session state.
// Mutations are written back by the manager when the request finishes.
type Session struct {
	ID string

	p         payload
	destroyed bool
}

func (s *Session) Get(key string) string {
	return s.p.Values[key]
}

func (s *Session) Set(key, value string) {
	if s.p.Values == nil {
		s.p.Values = make(map[string]string)
	}
	s.p.Values[key] = value
}

func (s *Session) Has(key string) bool {
	_, ok := s.p.Values[key]
	return ok
}

func (s *Session) Remove(key string) {
	delete(s.p.Values, key)
}

// SetFlash stores a one-shot message of the given type (success,
// error, warning, info) for the next rendered response.
func (s *Session) SetFlash(kind, message string) {
	if s.p.Flash == nil {
		s.p.Flash = make(map[string]string)
	}
	s.p.Flash[kind] = message
}

// GetFlash returns and removes the flash message of the given type.
func (s *Session) GetFlash(kind string) (string, bool) {
	msg, ok := s.p.Flash[kind]
	if ok {
		delete(s.p.Flash, kind)
	}
	return msg, ok
}

func (s *Session) HasFlash(kind string) bool {
	_, ok := s.p.Flash[kind]
	return ok
}

func (s *Session) CSRFToken() (string, time.Time) {
	return s.p.CSRFToken, time.Unix(s.p.CSRFIssuedAt, 0)
}

func (s *Session) SetCSRFToken(token string, issuedAt time.Time) {
	s.p.CSRFToken = token
	s.p.CSRFIssuedAt = issuedAt.Unix()
}

// UserID returns the authenticated user id, zero when anonymous.
func (s *Session) UserID() uint {
	id, err := strconv.ParseUint(s.p.Values["user_id"], 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

func (s *Session) IsAuthenticated() bool {
	return s.p.Values["user_id"] != ""
}

// SetUser populates the authentication keys after a successful login.
func (s *Session) SetUser(u *models.User) {
	s.Set("user_id", strconv.FormatUint(uint64(u.ID), 10))
	s.Set("username", u.Username)
	s.Set("role", u.Role)
}

// Manager owns the session lifecycle: cookie handling, identifier
// rotation, inactivity expiry and the write-back to the store.
type Manager struct {
	store    Store
	db       *gorm.DB
	lifetime time.Duration
	now      func() time.Time
}

func NewManager(store Store, db *gorm.DB, lifetime time.Duration) *Manager {
	return &Manager{
		store:    store,
		db:       db,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// WithClock fixes the manager's clock. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Start loads the session referenced by the request cookie, creating a
// fresh one when absent or unreadable. It rotates the identifier when
// the rotation interval elapsed and enforces the inactivity lifetime,
// returning ErrExpired after destroying a stale session.
func (m *Manager) Start(c *gin.Context) (*Session, error) {
	now := m.now()

	id, err := c.Cookie(CookieName)
	if err != nil || id == "" {
		return m.create(c, now), nil
	}

	raw, err := m.store.GetSession(c.Request.Context(), id)
	if err != nil {
		// Unknown or unreadable id: issue a fresh anonymous session
		// rather than trusting the client-supplied identifier.
		return m.create(c, now), nil
	}

	sess := &Session{ID: id}
	if err := json.Unmarshal(raw, &sess.p); err != nil {
		_ = m.store.DeleteSession(c.Request.Context(), id)
		return m.create(c, now), nil
	}
	if sess.p.Values == nil {
		sess.p.Values = make(map[string]string)
	}

	if now.Sub(time.Unix(sess.p.LastActivity, 0)) > m.lifetime {
		_ = m.Destroy(c, sess)
		return nil, ErrExpired
	}
	sess.p.LastActivity = now.Unix()

	if now.Sub(time.Unix(sess.p.LastRegen, 0)) > regenInterval {
		if err := m.Regenerate(c, sess); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

func (m *Manager) create(c *gin.Context, now time.Time) *Session {
	sess := &Session{
		ID: uuid.New().String(),
		p: payload{
			Values:       make(map[string]string),
			LastActivity: now.Unix(),
			LastRegen:    now.Unix(),
		},
	}
	m.setCookie(c, sess.ID, int(m.lifetime.Seconds()))
	return sess
}

// Regenerate swaps the session identifier while keeping the payload,
// used on rotation and immediately after authentication.
func (m *Manager) Regenerate(c *gin.Context, sess *Session) error {
	oldID := sess.ID
	sess.ID = uuid.New().String()
	sess.p.LastRegen = m.now().Unix()

	if err := m.Save(c.Request.Context(), sess); err != nil {
		sess.ID = oldID
		return err
	}
	_ = m.store.DeleteSession(c.Request.Context(), oldID)
	m.setCookie(c, sess.ID, int(m.lifetime.Seconds()))
	return nil
}

// Save writes the session payload back to the store.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if sess.destroyed {
		return nil
	}
	raw, err := json.Marshal(sess.p)
	if err != nil {
		return err
	}
	return m.store.SetSession(ctx, sess.ID, raw, m.lifetime)
}

// Destroy removes all session state and invalidates the cookie.
func (m *Manager) Destroy(c *gin.Context, sess *Session) error {
	sess.destroyed = true
	sess.p = payload{Values: make(map[string]string)}
	m.setCookie(c, "", -1)
	return m.store.DeleteSession(c.Request.Context(), sess.ID)
}

// IsAdmin checks the live user record, not a cached role claim, so a
// demotion takes effect within the session lifetime. Any lookup
// failure reads as not-admin.
func (m *Manager) IsAdmin(sess *Session) bool {
	if sess == nil || !sess.IsAuthenticated() {
		return false
	}
	var user models.User
	if err := m.db.Select("role").First(&user, sess.UserID()).Error; err != nil {
		return false
	}
	return user.Role == models.RoleAdmin
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	secure := c.Request.TLS != nil
	c.SetCookie(CookieName, value, maxAge, "/", "", secure, true)
}

// FromContext returns the session the middleware attached to the
// request, or nil when no session middleware ran.
func FromContext(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*Session)
	return sess
}
