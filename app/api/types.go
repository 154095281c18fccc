package api

import (
	"github.com/productsafe/recallwatch/app/database"
	"github.com/productsafe/recallwatch/app/pipeline"
	"github.com/productsafe/recallwatch/app/sources"
)

type Handler struct {
	runner           *pipeline.Runner
	configCache      *sources.ConfigCache
	recallRepo       database.RecallRepository
	productRepo      database.ProductRepository
	matchRepo        database.MatchRepository
	notificationRepo database.NotificationRepository
}
