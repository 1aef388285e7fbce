package vault

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Vault stores connection profiles encrypted in a single slot, with at most one
// profile marked active. Every operation re-reads the slot, so separate Vault
// values over the same file observe each other's writes.
type Vault struct {
	mu     sync.Mutex
	slot   Slot
	cipher *Cipher
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Vault
type Option func(*Vault) error

// WithLogger sets the diagnostic sink. Unreadable vault payloads are reported
// here as ErrCorruptState.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Vault) error {
		v.logger = logger
		return nil
	}
}

// WithKeyProvider replaces the built-in static key
func WithKeyProvider(kp KeyProvider) Option {
	return func(v *Vault) error {
		c, err := NewCipher(kp)
		if err != nil {
			return err
		}
		v.cipher = c
		return nil
	}
}

// WithClock overrides time.Now for profile timestamps
func WithClock(now func() time.Time) Option {
	return func(v *Vault) error {
		v.now = now
		return nil
	}
}

// WithIDGenerator overrides the uuid generator for profile ids
func WithIDGenerator(newID func() string) Option {
	return func(v *Vault) error {
		v.newID = newID
		return nil
	}
}

// New creates a vault over slot. Without WithKeyProvider the static application
// key is used.
func New(slot Slot, opts ...Option) (*Vault, error) {
	v := &Vault{
		slot:   slot,
		logger: zerolog.Nop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	if v.cipher == nil {
		c, err := NewCipher(DefaultKey())
		if err != nil {
			return nil, err
		}
		v.cipher = c
	}
	return v, nil
}

// ListProfiles returns all profiles in insertion order. Missing or unreadable
// storage yields an empty list.
func (v *Vault) ListProfiles() []Profile {
	var out []Profile
	v.view(func(s State) {
		out = s.clone().Configs
	})
	return out
}

// Profile returns the profile with the given id
func (v *Vault) Profile(id string) (Profile, error) {
	var (
		p     Profile
		found bool
	)
	v.view(func(s State) {
		if i := s.index(id); i >= 0 {
			p, found = s.Configs[i], true
		}
	})
	if !found {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// ActiveProfile returns the active profile. ok is false when none is set or the
// active id no longer matches a profile.
func (v *Vault) ActiveProfile() (p Profile, ok bool) {
	v.view(func(s State) {
		if s.ActiveID == "" {
			return
		}
		if i := s.index(s.ActiveID); i >= 0 {
			p, ok = s.Configs[i], true
		}
	})
	return p, ok
}

// HasState reports whether anything is persisted, readable or not
func (v *Vault) HasState() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok, err := v.slot.Get()
	if err != nil {
		v.logger.Error().Err(err).Msg("failed to read vault slot")
		return false
	}
	return ok
}

// SetActive marks the profile as active
func (v *Vault) SetActive(id string) error {
	return v.update(func(s *State) error {
		if s.index(id) < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s.ActiveID = id
		return nil
	})
}

// AddProfile stores a new profile with a fresh id. The first profile added to an
// empty vault becomes active.
func (v *Vault) AddProfile(fields ProfileFields) (Profile, error) {
	var added Profile
	err := v.update(func(s *State) error {
		id := v.newID()
		for s.index(id) >= 0 {
			id = v.newID()
		}

		now := v.now().UnixMilli()
		added = Profile{
			ID:        id,
			Name:      fields.Name,
			Endpoint:  fields.Endpoint,
			Port:      fields.Port,
			UseSSL:    fields.UseSSL,
			AccessKey: fields.AccessKey,
			SecretKey: fields.SecretKey,
			Driver:    fields.Driver,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.Configs = append(s.Configs, added)
		if len(s.Configs) == 1 {
			s.ActiveID = id
		}
		return nil
	})
	if err != nil {
		return Profile{}, err
	}

	v.logger.Debug().Str("profile", added.ID).Str("name", added.Name).Msg("profile added")
	return added, nil
}

// UpdateProfile applies the non-nil fields of u. The id and creation time never
// change; the update time is always refreshed.
func (v *Vault) UpdateProfile(id string, u ProfileUpdate) (Profile, error) {
	var updated Profile
	err := v.update(func(s *State) error {
		i := s.index(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		p := s.Configs[i]
		u.apply(&p)
		p.ID = s.Configs[i].ID
		p.CreatedAt = s.Configs[i].CreatedAt
		p.UpdatedAt = v.now().UnixMilli()
		s.Configs[i] = p
		updated = p
		return nil
	})
	if err != nil {
		return Profile{}, err
	}
	return updated, nil
}

// DeleteProfile removes a profile. When it was active, the first remaining
// profile becomes active, or none if the vault is now empty.
func (v *Vault) DeleteProfile(id string) error {
	return v.update(func(s *State) error {
		i := s.index(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s.Configs = append(s.Configs[:i], s.Configs[i+1:]...)
		if len(s.Configs) == 0 {
			s.Configs = nil
		}
		if s.ActiveID == id {
			s.ActiveID = ""
			if len(s.Configs) > 0 {
				s.ActiveID = s.Configs[0].ID
			}
		}
		return nil
	})
}

// ClearAll erases the persisted vault. Clearing an empty vault succeeds.
func (v *Vault) ClearAll() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	unlock, err := v.lock(false)
	if err != nil {
		return err
	}
	defer unlock()

	if err := v.slot.Remove(); err != nil {
		return fmt.Errorf("clear vault: %w", err)
	}
	v.logger.Debug().Msg("vault cleared")
	return nil
}

func (v *Vault) view(fn func(State)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	unlock, err := v.lock(true)
	if err != nil {
		v.logger.Warn().Err(err).Msg("reading vault without lock")
	} else {
		defer unlock()
	}

	s, err := v.load()
	if err != nil {
		v.logger.Error().Err(err).Msg("failed to read vault slot")
		s = State{}
	}
	fn(s)
}

func (v *Vault) update(fn func(*State) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	unlock, err := v.lock(false)
	if err != nil {
		return err
	}
	defer unlock()

	s, err := v.load()
	if err != nil {
		return err
	}
	if err := fn(&s); err != nil {
		return err
	}
	return v.store(s)
}

// load reads the slot. Only slot I/O failures are returned; an unreadable
// payload is logged and replaced by the empty state.
func (v *Vault) load() (State, error) {
	blob, ok, err := v.slot.Get()
	if err != nil {
		return State{}, err
	}
	if !ok {
		return State{}, nil
	}

	plaintext, err := v.cipher.Open(blob)
	if err != nil {
		v.reportCorrupt(err)
		return State{}, nil
	}
	s, err := decodeState(plaintext)
	if err != nil {
		v.reportCorrupt(err)
		return State{}, nil
	}
	return s, nil
}

func (v *Vault) store(s State) error {
	plaintext, err := encodeState(s)
	if err != nil {
		return fmt.Errorf("encode vault state: %w", err)
	}
	blob, err := v.cipher.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal vault state: %w", err)
	}
	if err := v.slot.Set(blob); err != nil {
		return fmt.Errorf("persist vault state: %w", err)
	}
	return nil
}

func (v *Vault) reportCorrupt(cause error) {
	v.logger.Warn().
		Err(fmt.Errorf("%w: %w", ErrCorruptState, cause)).
		Msg("discarding unreadable vault state")
}

func (v *Vault) lock(shared bool) (func(), error) {
	l, ok := v.slot.(Locker)
	if !ok {
		return func() {}, nil
	}

	acquire := l.Lock
	if shared {
		acquire = l.RLock
	}
	unlock, err := acquire()
	if err != nil {
		return nil, err
	}
	return func() {
		if err := unlock(); err != nil {
			v.logger.Warn().Err(err).Msg("failed to unlock vault slot")
		}
	}, nil
}
