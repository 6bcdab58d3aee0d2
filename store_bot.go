package main

import (
	"context"
	"crypto/rand"
	"errors"

	"gorm.io/gorm"
)

// codeAlphabet — алфавит для кодов подтверждения.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// codeLength — длина кода подтверждения.
const codeLength = 10

// GetOrCreateTgUser находит пользователя Telegram по его идентификатору
// или создает новую запись с кодом подтверждения.
func (s *Store) GetOrCreateTgUser(ctx context.Context, tgUserID, tgChatID int64) (TgUser, bool, error) {
	var tgUser TgUser
	err := s.db.WithContext(ctx).Where("tg_user_id = ?", tgUserID).First(&tgUser).Error
	if err == nil {
		return tgUser, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return TgUser{}, false, err
	}

	tgUser = TgUser{TgUserID: tgUserID, TgChatID: tgChatID}
	code, err := s.uniqueVerificationCode(ctx)
	if err != nil {
		return TgUser{}, false, err
	}
	tgUser.VerificationCode = code
	if err := s.db.WithContext(ctx).Create(&tgUser).Error; err != nil {
		return TgUser{}, false, err
	}
	return tgUser, true, nil
}

// RefreshVerificationCode выписывает новый код подтверждения,
// затирая предыдущий.
func (s *Store) RefreshVerificationCode(ctx context.Context, tgUserID int64) (string, error) {
	code, err := s.uniqueVerificationCode(ctx)
	if err != nil {
		return "", err
	}
	result := s.db.WithContext(ctx).Model(&TgUser{}).
		Where("tg_user_id = ?", tgUserID).
		Update("verification_code", code)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", errNotFound
	}
	return code, nil
}

// ConfirmVerificationCode привязывает аккаунт пользователя к записи Telegram
// по коду подтверждения. Повторное подтверждение тем же аккаунтом допустимо,
// чужим — нет.
func (s *Store) ConfirmVerificationCode(ctx context.Context, code string, userID uint) (TgUser, error) {
	var tgUser TgUser
	err := s.db.WithContext(ctx).Where("verification_code = ?", code).First(&tgUser).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TgUser{}, errNotFound
	}
	if err != nil {
		return TgUser{}, err
	}

	if tgUser.UserID != nil {
		if *tgUser.UserID == userID {
			return tgUser, nil
		}
		return TgUser{}, errAlreadyLinked
	}

	err = s.db.WithContext(ctx).Model(&TgUser{}).
		Where("id = ?", tgUser.ID).
		Update("user_id", userID).Error
	if err != nil {
		return TgUser{}, err
	}
	tgUser.UserID = &userID
	return tgUser, nil
}

// TgUserByID возвращает запись Telegram по идентификатору пользователя Telegram.
func (s *Store) TgUserByID(ctx context.Context, tgUserID int64) (TgUser, bool, error) {
	var tgUser TgUser
	err := s.db.WithContext(ctx).Where("tg_user_id = ?", tgUserID).First(&tgUser).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TgUser{}, false, nil
	}
	if err != nil {
		return TgUser{}, false, err
	}
	return tgUser, true, nil
}

// uniqueVerificationCode генерирует код, которого еще нет в базе.
// Перегенерирует код при коллизии уникальности.
func (s *Store) uniqueVerificationCode(ctx context.Context) (string, error) {
	for {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", err
		}
		var count int64
		err = s.db.WithContext(ctx).Model(&TgUser{}).
			Where("verification_code = ?", code).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

// randomCode возвращает случайную строку заданной длины из codeAlphabet.
func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
