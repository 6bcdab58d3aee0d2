package main

import (
	"context"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store управляет хранением данных приложения в PostgreSQL через GORM.
type Store struct {
	db *gorm.DB
}

// NewStore создает подключение к базе данных и выполняет миграции.
func NewStore(databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return newStoreWithDB(db)
}

// newStoreWithDB выполняет миграции на готовом подключении.
// Используется также в тестах с базой sqlite.
func newStoreWithDB(db *gorm.DB) (*Store, error) {
	err := db.WithContext(context.Background()).AutoMigrate(
		&User{},
		&Board{},
		&BoardParticipant{},
		&GoalCategory{},
		&Goal{},
		&GoalComment{},
		&TgUser{},
	)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close закрывает соединение с базой данных.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser сохраняет нового пользователя с уже захэшированным паролем.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("username = ?", user.Username).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return errUsernameTaken
	}
	return s.db.WithContext(ctx).Create(user).Error
}

// UserByUsername возвращает пользователя по имени.
func (s *Store) UserByUsername(ctx context.Context, username string) (User, bool, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return user, true, nil
}

// UserByID возвращает пользователя по идентификатору.
func (s *Store) UserByID(ctx context.Context, id uint) (User, bool, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return user, true, nil
}

// UpdateProfile обновляет данные профиля пользователя.
func (s *Store) UpdateProfile(ctx context.Context, user *User) error {
	if user.Username != "" {
		var count int64
		err := s.db.WithContext(ctx).Model(&User{}).
			Where("username = ? AND id <> ?", user.Username, user.ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errUsernameTaken
		}
	}
	return s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"username":   user.Username,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
		}).Error
}

// UpdatePassword сохраняет новый хэш пароля пользователя.
func (s *Store) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	return s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("password", passwordHash).Error
}
