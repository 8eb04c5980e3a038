package store

import (
	"context"
	"sort"
	"sync"

	"healthtrack-api/internal/models"
)

// MemoryStore keeps every collection in process memory. It is used for
// local runs (STORE_DRIVER=memory) and tests.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[string]models.User
	userOrder   []string
	definitions map[string]models.HabitDefinition
	defOrder    []string
	regs        []models.HabitRegistration
	goals       map[string]models.HabitGoal
	goalOrder   []string
	threads     map[string]models.ChatThread
	messages    map[string][]models.ChatMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]models.User),
		definitions: make(map[string]models.HabitDefinition),
		goals:       make(map[string]models.HabitGoal),
		threads:     make(map[string]models.ChatThread),
		messages:    make(map[string][]models.ChatMessage),
	}
}

func (s *MemoryStore) Close() error { return nil }

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// conflicts reports whether u collides with a different stored user on any
// unique field. Callers hold s.mu.
func (s *MemoryStore) conflicts(u *models.User) bool {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email || other.Username == u.Username {
			return true
		}
		if uid := u.ProviderUID(); uid != "" && uid == other.ProviderUID() {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok || s.conflicts(u) {
		return ErrDuplicate
	}
	s.users[u.ID] = u.Clone()
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, id := range s.userOrder {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, func(u *models.User) bool { return u.ID == id })
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, func(u *models.User) bool { return u.Email == email })
}

func (s *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, func(u *models.User) bool { return u.Username == username })
}

func (s *MemoryStore) FindUserByProviderUID(ctx context.Context, uid string) (*models.User, error) {
	return s.findUser(ctx, func(u *models.User) bool { return uid != "" && u.ProviderUID() == uid })
}

func (s *MemoryStore) findUser(ctx context.Context, match func(*models.User) bool) (*models.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.userOrder {
		u, ok := s.users[id]
		if ok && match(&u) {
			c := u.Clone()
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveUser(ctx context.Context, u *models.User) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	if s.conflicts(u) {
		return ErrDuplicate
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	s.userOrder = removeID(s.userOrder, id)
	return nil
}

func (s *MemoryStore) CreateDefinition(ctx context.Context, d *models.HabitDefinition) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[d.ID]; ok {
		return ErrDuplicate
	}
	s.definitions[d.ID] = *d
	s.defOrder = append(s.defOrder, d.ID)
	return nil
}

func (s *MemoryStore) GetDefinition(ctx context.Context, id string) (*models.HabitDefinition, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.definitions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) ListDefinitions(ctx context.Context, username string) ([]models.HabitDefinition, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HabitDefinition
	for _, id := range s.defOrder {
		d, ok := s.definitions[id]
		if !ok {
			continue
		}
		if d.Username == nil || (username != "" && *d.Username == username) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteDefinition(ctx context.Context, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[id]; !ok {
		return ErrNotFound
	}
	delete(s.definitions, id)
	s.defOrder = removeID(s.defOrder, id)
	return nil
}

func (s *MemoryStore) CreateRegistration(ctx context.Context, r *models.HabitRegistration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs = append(s.regs, *r)
	return nil
}

func (s *MemoryStore) ListRegistrations(ctx context.Context, username string) ([]models.HabitRegistration, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HabitRegistration
	for _, r := range s.regs {
		if r.Username == username {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateGoal(ctx context.Context, g *models.HabitGoal) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[g.ID]; ok {
		return ErrDuplicate
	}
	s.goals[g.ID] = *g
	s.goalOrder = append(s.goalOrder, g.ID)
	return nil
}

func (s *MemoryStore) ListGoals(ctx context.Context, f GoalFilter) ([]models.HabitGoal, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HabitGoal
	for _, id := range s.goalOrder {
		g, ok := s.goals[id]
		if !ok {
			continue
		}
		if (f.UID == "" || g.UID == f.UID) && (f.Tipo == "" || g.Tipo == f.Tipo) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetGoal(ctx context.Context, id string) (*models.HabitGoal, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (s *MemoryStore) SaveGoal(ctx context.Context, g *models.HabitGoal) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[g.ID]; !ok {
		return ErrNotFound
	}
	s.goals[g.ID] = *g
	return nil
}

func (s *MemoryStore) DeleteGoal(ctx context.Context, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return ErrNotFound
	}
	delete(s.goals, id)
	s.goalOrder = removeID(s.goalOrder, id)
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg *models.ChatMessage, summary *models.ChatThread) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	t := *summary
	t.Participantes = append([]string(nil), summary.Participantes...)
	s.threads[summary.ID] = t
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := append([]models.ChatMessage(nil), s.messages[chatID]...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) GetThread(ctx context.Context, chatID string) (*models.ChatThread, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	t.Participantes = append([]string(nil), t.Participantes...)
	return &t, nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
