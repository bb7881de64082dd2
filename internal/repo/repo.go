package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExist = errors.New("user already exist")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// NotFound reports whether err is a gorm record miss.
func NotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
