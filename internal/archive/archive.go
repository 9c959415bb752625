// Package archive persists final session snapshots when the registry
// evicts or ends a session. It is strictly an observer: archiver failures
// are logged and never reach the game core.
package archive

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/promptparty/promptparty-backend/internal/registry"
)

type SessionRecord struct {
	ID         uint   `gorm:"primaryKey"`
	Code       string `gorm:"size:6;index"`
	Reason     string `gorm:"size:16"`
	Snapshot   []byte
	Rounds     int
	Players    int
	ArchivedAt time.Time
}

type Archiver struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(dsn string, log *zap.Logger) (*Archiver, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, err
	}
	return &Archiver{db: db, log: log}, nil
}

// Run consumes registry events until the context ends. Only events that
// carry a final snapshot are persisted.
func (a *Archiver) Run(ctx context.Context, events <-chan registry.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Snapshot == nil {
				continue
			}
			a.persist(ctx, ev)
		}
	}
}

func (a *Archiver) persist(ctx context.Context, ev registry.Event) {
	blob, err := json.Marshal(ev.Snapshot)
	if err != nil {
		a.log.Error("marshal snapshot", zap.String("session", ev.Code), zap.Error(err))
		return
	}
	rec := SessionRecord{
		Code:       ev.Code,
		Reason:     string(ev.Kind),
		Snapshot:   blob,
		Rounds:     ev.Snapshot.Round,
		Players:    len(ev.Snapshot.Players),
		ArchivedAt: ev.At,
	}
	if err := a.db.WithContext(ctx).Create(&rec).Error; err != nil {
		a.log.Error("archive session", zap.String("session", ev.Code), zap.Error(err))
		return
	}
	a.log.Info("session archived", zap.String("session", ev.Code), zap.String("reason", rec.Reason))
}
