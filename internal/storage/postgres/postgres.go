// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/storage"
	"github.com/rovshanmuradov/lp-monitor/internal/storage/models"
)

// migrationLockID is the advisory lock key held while migrating.
const migrationLockID = 101

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// postgresStorage implements storage.HistoryStore on top of GORM.
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ storage.HistoryStore = (*postgresStorage)(nil)

func NewStorage(dsn string, zapLogger *zap.Logger) (storage.HistoryStore, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{
		db:     db,
		logger: zapLogger.Named("postgres"),
	}, nil
}

// RunMigrations creates the tables under an advisory lock so that two
// processes starting together do not race.
func (p *postgresStorage) RunMigrations(ctx context.Context) error {
	// advisory locks are per session, so lock and unlock on one connection
	return p.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var lockObtained bool
		if err := conn.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if !lockObtained {
			return errors.New("another migration is in progress")
		}
		defer conn.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)

		if err := conn.AutoMigrate(&models.Position{}, &models.PositionSnapshot{}); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		p.logger.Info("Database migrations applied")
		return nil
	})
}

func (p *postgresStorage) ListPositions(ctx context.Context) ([]domain.Position, error) {
	var rows []models.Position
	if err := p.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(rows))
	for i := range rows {
		positions = append(positions, rows[i].ToDomain())
	}
	return positions, nil
}

func (p *postgresStorage) getRow(ctx context.Context, positionID int64) (*models.Position, error) {
	var row models.Position
	err := p.db.WithContext(ctx).Where("id = ?", positionID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("get position %d: %w", positionID, err)
	}
	return &row, nil
}

func (p *postgresStorage) GetPosition(ctx context.Context, positionID int64) (domain.Position, error) {
	row, err := p.getRow(ctx, positionID)
	if err != nil {
		return domain.Position{}, err
	}
	return row.ToDomain(), nil
}

func (p *postgresStorage) GetInitData(ctx context.Context, positionID int64) (domain.PositionInitData, error) {
	row, err := p.getRow(ctx, positionID)
	if err != nil {
		return domain.PositionInitData{}, err
	}
	return row.InitData(), nil
}

func (p *postgresStorage) SavePosition(ctx context.Context, pos domain.Position, init domain.PositionInitData) error {
	if err := storage.ValidateNewPosition(pos, init); err != nil {
		return err
	}

	if err := p.db.WithContext(ctx).Create(models.NewPosition(pos, init)).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("position %d: %w", pos.ID, storage.ErrDuplicateKey)
		}
		return fmt.Errorf("save position %d: %w", pos.ID, err)
	}
	return nil
}

func (p *postgresStorage) SetMuted(ctx context.Context, positionID int64, muted bool) error {
	res := p.db.WithContext(ctx).Model(&models.Position{}).
		Where("id = ?", positionID).
		Update("muted", muted)
	if res.Error != nil {
		return fmt.Errorf("set muted on position %d: %w", positionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
	}
	return nil
}

func (p *postgresStorage) DeletePosition(ctx context.Context, positionID int64) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", positionID).Delete(&models.Position{})
		if res.Error != nil {
			return fmt.Errorf("delete position %d: %w", positionID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
		}
		if err := tx.Where("position_id = ?", positionID).Delete(&models.PositionSnapshot{}).Error; err != nil {
			return fmt.Errorf("delete snapshots of position %d: %w", positionID, err)
		}
		return nil
	})
}

func (p *postgresStorage) AppendSnapshot(ctx context.Context, positionID int64, snap domain.PositionSnapshot, rates domain.Rates) error {
	var count int64
	if err := p.db.WithContext(ctx).Model(&models.Position{}).Where("id = ?", positionID).Count(&count).Error; err != nil {
		return fmt.Errorf("check position %d: %w", positionID, err)
	}
	if count == 0 {
		return fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
	}

	if err := p.db.WithContext(ctx).Create(models.NewPositionSnapshot(positionID, snap, rates)).Error; err != nil {
		return fmt.Errorf("append snapshot for position %d: %w", positionID, err)
	}
	return nil
}

func (p *postgresStorage) ListSnapshots(ctx context.Context, positionID int64, limit int) ([]storage.SnapshotRecord, error) {
	q := p.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []models.PositionSnapshot
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list snapshots of position %d: %w", positionID, err)
	}

	records := make([]storage.SnapshotRecord, 0, len(rows))
	for i := range rows {
		records = append(records, storage.SnapshotRecord{
			PositionID: rows[i].PositionID,
			Snapshot:   rows[i].Snapshot(),
			Rates:      rows[i].Rates(),
			RecordedAt: rows[i].CreatedAt,
		})
	}
	return records, nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
