package store

import (
	"context"
	"errors"
	"strings"

	"healthtrack-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore implements Store on top of a GORM connection. Each
// collection is one table; uniqueness is enforced by unique indexes.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "duplicate key value violates unique constraint"):
		return ErrDuplicate
	}
	return err
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.firstUser(ctx, "id = ?", id)
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.firstUser(ctx, "email = ?", email)
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.firstUser(ctx, "username = ?", username)
}

func (s *PostgresStore) FindUserByProviderUID(ctx context.Context, uid string) (*models.User, error) {
	if uid == "" {
		return nil, ErrNotFound
	}
	return s.firstUser(ctx, "firebase_uid = ?", uid)
}

func (s *PostgresStore) firstUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, u *models.User) error {
	res := s.db.WithContext(ctx).Model(u).Select("*").Omit("id", "created_at").Updates(u)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateDefinition(ctx context.Context, d *models.HabitDefinition) error {
	return translate(s.db.WithContext(ctx).Create(d).Error)
}

func (s *PostgresStore) GetDefinition(ctx context.Context, id string) (*models.HabitDefinition, error) {
	var d models.HabitDefinition
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *PostgresStore) ListDefinitions(ctx context.Context, username string) ([]models.HabitDefinition, error) {
	query := s.db.WithContext(ctx).Order("created_at asc")
	if username == "" {
		query = query.Where("username IS NULL")
	} else {
		query = query.Where("username IS NULL OR username = ?", username)
	}
	var defs []models.HabitDefinition
	if err := query.Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (s *PostgresStore) DeleteDefinition(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.HabitDefinition{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateRegistration(ctx context.Context, r *models.HabitRegistration) error {
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *PostgresStore) ListRegistrations(ctx context.Context, username string) ([]models.HabitRegistration, error) {
	var regs []models.HabitRegistration
	if err := s.db.WithContext(ctx).Where("username = ?", username).Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *PostgresStore) CreateGoal(ctx context.Context, g *models.HabitGoal) error {
	return translate(s.db.WithContext(ctx).Create(g).Error)
}

func (s *PostgresStore) ListGoals(ctx context.Context, f GoalFilter) ([]models.HabitGoal, error) {
	query := s.db.WithContext(ctx).Order("created_at asc")
	if f.UID != "" {
		query = query.Where("uid = ?", f.UID)
	}
	if f.Tipo != "" {
		query = query.Where("tipo = ?", f.Tipo)
	}
	var goals []models.HabitGoal
	if err := query.Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (s *PostgresStore) GetGoal(ctx context.Context, id string) (*models.HabitGoal, error) {
	var g models.HabitGoal
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (s *PostgresStore) SaveGoal(ctx context.Context, g *models.HabitGoal) error {
	res := s.db.WithContext(ctx).Model(g).Select("*").Omit("id", "created_at").Updates(g)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteGoal(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.HabitGoal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.ChatMessage, summary *models.ChatThread) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"ultimo_mensaje", "timestamp_ultimo", "participantes"}),
		}).Create(summary).Error
	})
}

func (s *PostgresStore) ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp asc").
		Order("id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *PostgresStore) GetThread(ctx context.Context, chatID string) (*models.ChatThread, error) {
	var t models.ChatThread
	if err := s.db.WithContext(ctx).Where("id = ?", chatID).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}
