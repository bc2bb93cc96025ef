package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartsvc/internal/service/cart"
	"github.com/vladislavdragonenkov/cartsvc/internal/service/catalog"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Storage *runtimeStorage
	Cart    *cart.Service
	Catalog *catalog.Service
	Logger  *log.Entry
}

// NewDependencies создаёт сервисы поверх инициализированного хранилища.
func NewDependencies(storage *runtimeStorage, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	return &Dependencies{
		Storage: storage,
		Cart:    cart.NewService(storage.Store, logger.WithField("component", "cart")),
		Catalog: catalog.NewService(storage.Store, storage.Movements, logger.WithField("component", "catalog")),
		Logger:  logger,
	}
}
