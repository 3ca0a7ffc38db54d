package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/clinic-concierge/internal/domain/conversation"
	"github.com/yungbote/clinic-concierge/internal/platform/dbctx"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
	pkgerrors "github.com/yungbote/clinic-concierge/internal/pkg/errors"
)

// SessionRepo owns persisted conversation sessions, one per sender key.
type SessionRepo interface {
	// GetOrCreate returns the session for key, creating it if absent.
	// Concurrent calls for the same key leave exactly one row.
	GetOrCreate(dbc dbctx.Context, key string) (*types.Session, error)
	// Save merges identity into the stored identity and appends turn (when
	// non-nil) in a single transaction.
	Save(dbc dbctx.Context, key string, identity types.Identity, turn *types.Turn) error

	GetByKey(dbc dbctx.Context, key string) (*types.Session, error)
	List(dbc dbctx.Context, limit, offset int) ([]*types.Session, int64, error)
}

type sessionRepo struct {
	db         *gorm.DB
	log        *logger.Logger
	historyCap int
	now        func() time.Time
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger, historyCap int) SessionRepo {
	if historyCap <= 0 {
		historyCap = types.DefaultHistoryCap
	}
	return &sessionRepo{
		db:         db,
		log:        baseLog.With("repo", "SessionRepo"),
		historyCap: historyCap,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *sessionRepo) GetOrCreate(dbc dbctx.Context, key string) (*types.Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: sender key required", pkgerrors.ErrInvalidArgument)
	}
	t := dbc.Or(r.db)

	row, err := types.NewSession(key, r.now())
	if err != nil {
		return nil, err
	}
	// Insert-if-absent; a concurrent winner makes this a no-op and the
	// fetch below returns the winner's row.
	if err := t.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sender_key"}},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	var out types.Session
	if err := t.Where("sender_key = ?", key).Limit(1).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	if out.ID == uuid.Nil {
		return nil, fmt.Errorf("fetch session: %w", pkgerrors.ErrNotFound)
	}
	return &out, nil
}

func (r *sessionRepo) Save(dbc dbctx.Context, key string, identity types.Identity, turn *types.Turn) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: sender key required", pkgerrors.ErrInvalidArgument)
	}
	return dbc.Or(r.db).Transaction(func(tx *gorm.DB) error {
		var row types.Session
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("sender_key = ?", key).
			Limit(1).
			Find(&row).Error; err != nil {
			return fmt.Errorf("lock session: %w", err)
		}

		now := r.now()
		if row.ID == uuid.Nil {
			fresh, err := types.NewSession(key, now)
			if err != nil {
				return err
			}
			row = *fresh
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create session: %w", err)
			}
		}

		stored, err := row.DecodeIdentity()
		if err != nil {
			return err
		}
		history, err := row.DecodeHistory()
		if err != nil {
			return err
		}
		if turn != nil {
			history = types.AppendTurn(history, *turn, r.historyCap)
		}

		next := types.Session{}
		if err := next.SetIdentity(stored.Merge(identity)); err != nil {
			return err
		}
		if err := next.SetHistory(history); err != nil {
			return err
		}
		if err := tx.Model(&types.Session{}).
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{
				"identity":   next.Identity,
				"history":    next.History,
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
}

func (r *sessionRepo) GetByKey(dbc dbctx.Context, key string) (*types.Session, error) {
	var out types.Session
	err := dbc.Or(r.db).Where("sender_key = ?", strings.TrimSpace(key)).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ClampPage returns the limit and offset List actually applies: a
// non-positive limit becomes DefaultListLimit, larger ones are capped at
// MaxListLimit, and a negative offset becomes 0.
func ClampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *sessionRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Session, int64, error) {
	limit, offset = ClampPage(limit, offset)
	t := dbc.Or(r.db)

	var total int64
	if err := t.Model(&types.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*types.Session
	if err := t.Order("updated_at DESC").Order("id").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
