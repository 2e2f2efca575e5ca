package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Store persists users and their tokens.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id uint) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SaveUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id uint) error
	UsernameExists(ctx context.Context, username string, exceptID uint) (bool, error)
	SetLastLogin(ctx context.Context, id uint, at time.Time) error

	// GetOrCreateToken returns the user's token, inserting one with key if absent.
	GetOrCreateToken(ctx context.Context, userID uint, key string) (*AuthToken, error)
	TokenByKey(ctx context.Context, key string) (*AuthToken, error)
	DeleteToken(ctx context.Context, key string) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateUser(ctx context.Context, u *User) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *GormStore) SaveUser(ctx context.Context, u *User) error {
	res := s.db.WithContext(ctx).Model(u).Omit(clause.Associations).Select("*").Updates(u)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("save user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UsernameExists(ctx context.Context, username string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", username)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) SetLastLogin(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login", at).Error
}

func (s *GormStore) GetOrCreateToken(ctx context.Context, userID uint, key string) (*AuthToken, error) {
	var token AuthToken
	err := s.db.WithContext(ctx).
		Where(AuthToken{UserID: userID}).
		Attrs(AuthToken{Key: key}).
		FirstOrCreate(&token).Error
	if err != nil && isUniqueViolation(err) {
		// A concurrent login inserted the row first; use theirs.
		err = s.db.WithContext(ctx).First(&token, "user_id = ?", userID).Error
	}
	if err != nil {
		return nil, fmt.Errorf("get or create token: %w", err)
	}
	return &token, nil
}

func (s *GormStore) TokenByKey(ctx context.Context, key string) (*AuthToken, error) {
	var token AuthToken
	if err := s.db.WithContext(ctx).First(&token, "key = ?", key).Error; err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func (s *GormStore) DeleteToken(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).Where("key = ?", key).Delete(&AuthToken{})
	if res.Error != nil {
		return fmt.Errorf("delete token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
