package database

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jason-s-yu/ageofchess/internal/auth"
	"github.com/jason-s-yu/ageofchess/internal/models"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// MemoryStore keeps users, ratings and sessions in process memory. It backs the server
// when no database is configured, and the tests.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	ratings  map[uuid.UUID]map[rating.Category]models.Rating
	sessions map[uuid.UUID]models.GameSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uuid.UUID]models.User),
		ratings:  make(map[uuid.UUID]map[rating.Category]models.Rating),
		sessions: make(map[uuid.UUID]models.GameSession),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	if err := prepareUser(u); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return ErrUserExists
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) UpdateDisplayName(_ context.Context, id uuid.UUID, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.DisplayName = name
	m.users[id] = u
	return &u, nil
}

func (m *MemoryStore) Authenticate(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := m.GetUserByEmail(ctx, email)
	user, err := checkPassword(u, err, password)
	if err != nil {
		return "", nil, err
	}
	token, err := auth.CreateJWT(user.ID, user.EffectiveName())
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (m *MemoryStore) Rating(_ context.Context, userID uuid.UUID, cat rating.Category) (models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratingLocked(userID, cat), nil
}

func (m *MemoryStore) Ratings(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	out := make([]models.Rating, 0, len(rating.Categories))
	for _, cat := range rating.Categories {
		r, _ := m.Rating(ctx, userID, cat)
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) ratingLocked(userID uuid.UUID, cat rating.Category) models.Rating {
	if r, ok := m.ratings[userID][cat]; ok {
		return r
	}
	return models.Rating{UserID: userID, Category: string(cat), Elo: models.DefaultElo}
}

func (m *MemoryStore) setRatingLocked(r models.Rating) {
	byCat, ok := m.ratings[r.UserID]
	if !ok {
		byCat = make(map[rating.Category]models.Rating)
		m.ratings[r.UserID] = byCat
	}
	byCat[rating.Category(r.Category)] = r
}

func (m *MemoryStore) CreateGameSession(_ context.Context, s *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		m.sessions[s.ID] = copySession(s)
	}
	return nil
}

func (m *MemoryStore) SaveGameProgress(_ context.Context, s *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.sessions[s.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if prev.Finished() {
		return nil
	}
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *MemoryStore) FinishGameSession(_ context.Context, s *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.sessions[s.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if prev.Finished() {
		return nil
	}
	if s.WhiteUserID != nil && s.BlackUserID != nil {
		cat := sessionCategory(s)
		nw, nb, rated := settleRatings(s, m.ratingLocked(*s.WhiteUserID, cat), m.ratingLocked(*s.BlackUserID, cat))
		if rated {
			m.setRatingLocked(nw)
			m.setRatingLocked(nb)
		}
	}
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *MemoryStore) ListUnfinishedSessions(_ context.Context) ([]*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GameSession
	for _, s := range m.sessions {
		if !s.Finished() {
			c := copySession(&s)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetGameSession(_ context.Context, id uuid.UUID) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	c := copySession(&s)
	return &c, nil
}

func (m *MemoryStore) ListFinishedGamesByUser(_ context.Context, userID uuid.UUID, q models.HistoryQuery) (models.HistoryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.GameSession
	for _, s := range m.sessions {
		if !finishedBy(&s, userID, q.Category) {
			continue
		}
		c := copySession(&s)
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return historyLess(matched[i], matched[j], userID, q) })

	page := models.HistoryPage{Total: len(matched)}
	limit := q.Limit
	if limit <= 0 {
		limit = models.HistoryPageSize
	}
	if q.Offset >= len(matched) {
		return page, nil
	}
	end := q.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	for _, s := range matched[q.Offset:end] {
		entry := models.HistoryEntry{Session: *s}
		if opp := s.OpponentID(userID); opp != nil {
			entry.OpponentUsername = m.users[*opp].Username
		}
		page.Games = append(page.Games, entry)
	}
	return page, nil
}

func (m *MemoryStore) CategoryRecords(_ context.Context, userID uuid.UUID) ([]models.CategoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := make(map[string]models.CategoryRecord)
	for _, s := range m.sessions {
		if !finishedBy(&s, userID, "") {
			continue
		}
		cat := string(sessionCategory(&s))
		r := found[cat]
		r.UserID, r.Category = userID, cat
		recordFor(&r, &s, userID)
		found[cat] = r
	}
	return fillRecords(userID, found), nil
}

func finishedBy(s *models.GameSession, userID uuid.UUID, category string) bool {
	if !s.Finished() {
		return false
	}
	white := s.WhiteUserID != nil && *s.WhiteUserID == userID
	black := s.BlackUserID != nil && *s.BlackUserID == userID
	if !white && !black {
		return false
	}
	return category == "" || string(sessionCategory(s)) == category
}

func copySession(s *models.GameSession) models.GameSession {
	c := *s
	c.Moves = append([]string(nil), s.Moves...)
	return c
}
