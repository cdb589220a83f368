package unitofwork

import (
	"context"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db: db,
	}
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(_ context.Context) UnitOfWork {
	// UoW is short lived, one per request or per consumed turn. The
	// context is applied when Begin() runs or per repository call.
	return NewUnitOfWork(f.db)
}
