package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/clinic-concierge/internal/data/repos/conversation"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

type Repos struct {
	Sessions conversation.SessionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger, cfg Config) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Sessions: conversation.NewSessionRepo(db, log, cfg.HistoryCap),
	}
}
