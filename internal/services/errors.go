package services

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 错误类别，调用方用 errors.Is 判断
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrDependencyBlocked = errors.New("dependency blocked")
)

func invalid(msg string) error   { return errors.Join(ErrInvalidInput, errors.New(msg)) }
func notFound(msg string) error  { return errors.Join(ErrNotFound, errors.New(msg)) }
func forbidden(msg string) error { return errors.Join(ErrForbidden, errors.New(msg)) }
func conflict(msg string) error  { return errors.Join(ErrConflict, errors.New(msg)) }
func blocked(msg string) error   { return errors.Join(ErrDependencyBlocked, errors.New(msg)) }

func unauthorized() error {
	return errors.Join(ErrUnauthorized, errors.New("请先登录"))
}

// Message 返回去掉类别前缀的可读信息
func Message(err error) string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		parts := joined.Unwrap()
		if len(parts) > 1 {
			return parts[len(parts)-1].Error()
		}
	}
	return err.Error()
}

// mapStoreError 把驱动层错误翻译成错误类别；notFoundMsg 为空时保留 gorm.ErrRecordNotFound
func mapStoreError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFoundMsg == "" {
			return err
		}
		return notFound(notFoundMsg)
	case isUniqueViolation(err):
		return errors.Join(ErrConflict, err)
	case isForeignKeyViolation(err):
		return errors.Join(ErrDependencyBlocked, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
