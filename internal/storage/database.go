package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/uptime"
)

const MemoryPath = ":memory:"

type Database struct {
	db *gorm.DB
}

func New(dbPath string) (*Database, error) {
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer; one connection serializes the upserts
	// and keeps an in-memory database alive across calls.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&DailyUptime{}, &ProbeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Increment implements uptime.Backend with a single upsert, so the counter
// update is atomic regardless of how many cycles record at once.
func (d *Database) Increment(ctx context.Context, date string, failed bool) (uptime.DailyUptime, error) {
	var failureDelta int64
	if failed {
		failureDelta = 1
	}

	var row DailyUptime
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := DailyUptime{Date: date, Checks: 1, Failures: failureDelta}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"checks":     gorm.Expr("checks + 1"),
				"failures":   gorm.Expr("failures + ?", failureDelta),
				"updated_at": time.Now(),
			}),
		}).Create(&insert).Error
		if err != nil {
			return err
		}
		return tx.Where("date = ?", date).First(&row).Error
	})
	if err != nil {
		return uptime.DailyUptime{}, fmt.Errorf("failed to increment uptime for %s: %w", date, err)
	}

	return uptime.NewDailyUptime(row.Date, row.Checks, row.Failures), nil
}

func (d *Database) Fetch(ctx context.Context, dates []string) (map[string]uptime.DailyUptime, error) {
	var rows []DailyUptime
	err := d.db.WithContext(ctx).
		Where("date IN ?", dates).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uptime history: %w", err)
	}

	out := make(map[string]uptime.DailyUptime, len(rows))
	for _, r := range rows {
		out[r.Date] = uptime.NewDailyUptime(r.Date, r.Checks, r.Failures)
	}
	return out, nil
}

// Prune implements uptime.Pruner. Day rows and probe records older than
// before are removed.
func (d *Database) Prune(ctx context.Context, before time.Time) error {
	cutoff := before.UTC().Format(uptime.DateLayout)

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date < ?", cutoff).Delete(&DailyUptime{}).Error; err != nil {
			return err
		}
		return tx.Where("created_at < ?", before).Delete(&ProbeRecord{}).Error
	})
}

func (d *Database) CreateProbeRecords(ctx context.Context, results []health.ServiceHealth) error {
	if len(results) == 0 {
		return nil
	}

	records := make([]ProbeRecord, 0, len(results))
	for _, h := range results {
		r := ProbeRecord{
			CreatedAt:    h.LastChecked,
			ServiceID:    h.ServiceID,
			Status:       string(h.Status),
			StatusCode:   h.StatusCode,
			ErrorMessage: h.Error,
		}
		if ms, ok := h.Latency.Milliseconds(); ok {
			r.LatencyMs = &ms
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		records = append(records, r)
	}

	return d.db.WithContext(ctx).Create(&records).Error
}

func (d *Database) GetRecentProbeRecords(ctx context.Context, serviceID string, limit int) ([]ProbeRecord, error) {
	var records []ProbeRecord
	err := d.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (d *Database) GetProbeStats(ctx context.Context, serviceID string, since time.Time) (total, operational int64, avgLatency float64, err error) {
	err = d.db.WithContext(ctx).Model(&ProbeRecord{}).
		Where("service_id = ? AND created_at >= ?", serviceID, since).
		Count(&total).Error
	if err != nil {
		return
	}

	err = d.db.WithContext(ctx).Model(&ProbeRecord{}).
		Where("service_id = ? AND created_at >= ? AND status = ?", serviceID, since, string(health.StatusOperational)).
		Count(&operational).Error
	if err != nil {
		return
	}

	var avg struct{ Avg *float64 }
	err = d.db.WithContext(ctx).Model(&ProbeRecord{}).
		Select("AVG(latency_ms) as avg").
		Where("service_id = ? AND created_at >= ? AND latency_ms IS NOT NULL", serviceID, since).
		Scan(&avg).Error
	if avg.Avg != nil {
		avgLatency = *avg.Avg
	}

	return
}
