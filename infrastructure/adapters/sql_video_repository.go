package adapters

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/config"
	"story-video-pipeline/domain"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type videoRow struct {
	StoryID      string         `db:"story_id"`
	Status       string         `db:"status"`
	VideoURL     sql.NullString `db:"video_url"`
	PublishedURL sql.NullString `db:"published_url"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}

// OpenVideoDB connects with the configured driver and applies the embedded migrations.
func OpenVideoDB(ctx context.Context, cfg *config.VideoDBConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Driver, err)
	}

	dialect := "postgres"
	if cfg.Driver == "sqlite" {
		dialect = "sqlite3"
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

type sqlVideoRepository struct {
	db     *sqlx.DB
	logger outbound.LoggerPort
}

func NewSQLVideoRepository(db *sqlx.DB, logger outbound.LoggerPort) outbound.VideoRepositoryPort {
	return &sqlVideoRepository{db: db, logger: logger}
}

func (r *sqlVideoRepository) Create(ctx context.Context, video *domain.Video) error {
	q := r.db.Rebind(`
		INSERT INTO videos (story_id, status, video_url, published_url, error_message, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (story_id) DO NOTHING
	`)
	row := toVideoRow(video)
	res, err := r.db.ExecContext(ctx, q,
		row.StoryID, row.Status, row.VideoURL, row.PublishedURL, row.ErrorMessage, row.CreatedAt, row.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("video create: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("video create: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: story %s already has a video", domain.ErrConflict, video.StoryID)
	}
	return nil
}

func (r *sqlVideoRepository) GetByStoryID(ctx context.Context, storyID string) (*domain.Video, error) {
	q := r.db.Rebind(`
		SELECT story_id, status, video_url, published_url, error_message, created_at, completed_at
		FROM videos
		WHERE story_id = ?
	`)

	var row videoRow
	if err := r.db.GetContext(ctx, &row, q, storyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("video for story %s", storyID)
		}
		return nil, fmt.Errorf("video get by story id: %w", err)
	}
	return row.toDomain(), nil
}

func (r *sqlVideoRepository) Update(ctx context.Context, video *domain.Video) error {
	q := r.db.Rebind(`
		UPDATE videos
		SET status = ?, video_url = ?, published_url = ?, error_message = ?, completed_at = ?
		WHERE story_id = ?
	`)
	row := toVideoRow(video)
	res, err := r.db.ExecContext(ctx, q,
		row.Status, row.VideoURL, row.PublishedURL, row.ErrorMessage, row.CompletedAt, row.StoryID,
	)
	if err != nil {
		return fmt.Errorf("video update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("video update: %w", err)
	}
	if affected == 0 {
		return domain.NotFoundf("video for story %s", video.StoryID)
	}
	return nil
}

func toVideoRow(v *domain.Video) videoRow {
	row := videoRow{
		StoryID:      v.StoryID,
		Status:       string(v.Status),
		VideoURL:     nullString(v.VideoURL),
		PublishedURL: nullString(v.PublishedURL),
		ErrorMessage: nullString(v.ErrorMessage),
		CreatedAt:    v.CreatedAt.UTC(),
	}
	if v.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: v.CompletedAt.UTC(), Valid: true}
	}
	return row
}

func (r videoRow) toDomain() *domain.Video {
	v := &domain.Video{
		StoryID:      r.StoryID,
		Status:       domain.VideoStatus(r.Status),
		VideoURL:     r.VideoURL.String,
		PublishedURL: r.PublishedURL.String,
		ErrorMessage: r.ErrorMessage.String,
		CreatedAt:    r.CreatedAt,
	}
	if r.CompletedAt.Valid {
		completed := r.CompletedAt.Time
		v.CompletedAt = &completed
	}
	return v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
