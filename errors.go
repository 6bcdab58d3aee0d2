package main

import "errors"

// errMissingBotToken возвращается при отсутствии токена бота.
var errMissingBotToken = errors.New("BOT_TOKEN is not set")

// errNotFound возвращается, когда запись не найдена или недоступна пользователю.
var errNotFound = errors.New("not found")

// errForbidden возвращается при недостаточных правах на операцию.
var errForbidden = errors.New("forbidden")

// errUsernameTaken возвращается при попытке занять существующее имя пользователя.
var errUsernameTaken = errors.New("username already exists")

// errAlreadyLinked возвращается, если код подтверждения принадлежит чужому аккаунту.
var errAlreadyLinked = errors.New("chat already linked to another account")

// errInvalidToken используется при неверном или истекшем токене авторизации.
var errInvalidToken = errors.New("invalid token")
