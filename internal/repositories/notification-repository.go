package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"wellness-notify/internal/dto"
	"wellness-notify/internal/entities"
	apperrors "wellness-notify/pkg/errors"
)

const notificationTable = "notifications"

var notificationFields = []string{
	"id", "user_id", "type", "title", "message",
	"course_id", "material_id", "homework_id", "session_id",
	"is_read", "created_at",
}

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n entities.Notification) (*entities.Notification, error)
	ListForUser(ctx context.Context, userID uint64, filter dto.NotificationFilter) ([]entities.Notification, error)
	MarkRead(ctx context.Context, userID uint64, id string) (*entities.Notification, error)
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	CountUnread(ctx context.Context, userID uint64) (int64, error)
}

type NotificationRepository struct {
	storage querier
	psql    sq.StatementBuilderType
	logger  *zap.Logger
}

func NewNotificationRepository(storage querier, logger *zap.Logger) NotificationRepositoryInterface {
	return &NotificationRepository{
		storage: storage,
		psql:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger,
	}
}

// dbNotification - строка таблицы notifications, nullable-колонки метаданных через null.Uint64.
type dbNotification struct {
	ID         uuid.UUID
	UserID     int64
	Type       string
	Title      string
	Message    string
	CourseID   null.Uint64
	MaterialID null.Uint64
	HomeworkID null.Uint64
	SessionID  null.Uint64
	IsRead     bool
	CreatedAt  time.Time
}

func (db *dbNotification) toEntity() entities.Notification {
	return entities.Notification{
		ID:      db.ID.String(),
		Type:    entities.NotificationType(db.Type),
		Title:   db.Title,
		Message: db.Message,
		UserID:  uint64(db.UserID),
		IsRead:  db.IsRead,
		Metadata: entities.Metadata{
			CourseID:   db.CourseID.Ptr(),
			MaterialID: db.MaterialID.Ptr(),
			HomeworkID: db.HomeworkID.Ptr(),
			SessionID:  db.SessionID.Ptr(),
		},
		CreatedAt: db.CreatedAt,
	}
}

func scanNotification(row pgx.Row) (*entities.Notification, error) {
	var db dbNotification
	err := row.Scan(
		&db.ID, &db.UserID, &db.Type, &db.Title, &db.Message,
		&db.CourseID, &db.MaterialID, &db.HomeworkID, &db.SessionID,
		&db.IsRead, &db.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования notification: %w", err)
	}
	n := db.toEntity()
	return &n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, n entities.Notification) (*entities.Notification, error) {
	id := uuid.New()
	query, args, err := r.psql.Insert(notificationTable).
		Columns("id", "user_id", "type", "title", "message", "course_id", "material_id", "homework_id", "session_id", "is_read").
		Values(
			id, int64(n.UserID), string(n.Type), n.Title, n.Message,
			null.Uint64FromPtr(n.Metadata.CourseID),
			null.Uint64FromPtr(n.Metadata.MaterialID),
			null.Uint64FromPtr(n.Metadata.HomeworkID),
			null.Uint64FromPtr(n.Metadata.SessionID),
			false,
		).
		Suffix("RETURNING " + strings.Join(notificationFields, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса создания уведомления: %w", err)
	}

	created, err := scanNotification(r.storage.QueryRow(ctx, query, args...))
	if err != nil {
		r.logger.Error("NotificationRepository: не удалось создать уведомление", zap.Uint64("userID", n.UserID), zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID uint64, filter dto.NotificationFilter) ([]entities.Notification, error) {
	builder := r.psql.Select(notificationFields...).
		From(notificationTable).
		Where(sq.Eq{"user_id": int64(userID)}).
		OrderBy("created_at DESC", "id DESC")

	if filter.UnreadOnly {
		builder = builder.Where(sq.Eq{"is_read": false})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса списка уведомлений: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса списка уведомлений: %w", err)
	}
	defer rows.Close()

	list := make([]entities.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// MarkRead идемпотентен: повторный вызов возвращает ту же строку с is_read = true.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID uint64, id string) (*entities.Notification, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}

	query, args, err := r.psql.Update(notificationTable).
		Set("is_read", true).
		Where(sq.Eq{"id": parsed, "user_id": int64(userID)}).
		Suffix("RETURNING " + strings.Join(notificationFields, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса отметки прочтения: %w", err)
	}

	return scanNotification(r.storage.QueryRow(ctx, query, args...))
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	query, args, err := r.psql.Update(notificationTable).
		Set("is_read", true).
		Where(sq.Eq{"user_id": int64(userID), "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса отметки всех уведомлений: %w", err)
	}

	tag, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка отметки всех уведомлений: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	query, args, err := r.psql.Select("COUNT(*)").
		From(notificationTable).
		Where(sq.Eq{"user_id": int64(userID), "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса количества непрочитанных: %w", err)
	}

	var total int64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчета непрочитанных: %w", err)
	}
	return total, nil
}
