// Package session holds the identity of the representative working on this device. Every scoped
// operation takes its owner code from the context the holder stamps.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type Identity struct {
	Code  string    `json:"code"`
	Name  string    `json:"name"`
	Since time.Time `json:"since"`
}

// Holder is set at login and cleared at logout. The zero value has no active session.
type Holder struct {
	mu      sync.RWMutex
	current *Identity
}

func NewHolder() *Holder {
	return &Holder{}
}

// Login makes code the active representative.
func (h *Holder) Login(code string, name string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return utils.ErrNoActiveSession
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = &Identity{Code: code, Name: name, Since: time.Now()}
	config.GetLogger().WithField("representative_code", code).Info("session started")
	return nil
}

// Authenticate checks a stored credential and, on success, logs its representative in.
func (h *Holder) Authenticate(ctx context.Context, login string, password string) (*Identity, error) {
	rep, err := models.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}
	if err := h.Login(rep.Code, rep.FullName()); err != nil {
		return nil, err
	}
	id, _ := h.Current()
	return &id, nil
}

func (h *Holder) Logout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		config.GetLogger().WithField("representative_code", h.current.Code).Info("session ended")
	}
	h.current = nil
}

func (h *Holder) Current() (Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return Identity{}, false
	}
	return *h.current, true
}

// Context stamps the active representative on ctx. Without a session ctx is returned as is,
// and scoped operations on it fail or match nothing.
func (h *Holder) Context(ctx context.Context) context.Context {
	id, ok := h.Current()
	if !ok {
		return ctx
	}
	ctx = utils.SetRepresentativeCodeInContext(ctx, id.Code)
	if id.Name != "" {
		ctx = utils.SetRepresentativeNameInContext(ctx, id.Name)
	}
	return ctx
}
