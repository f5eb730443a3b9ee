package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"wellness-notify/internal/dto"
	"wellness-notify/internal/entities"
	"wellness-notify/internal/repositories"
	apperrors "wellness-notify/pkg/errors"
	"wellness-notify/pkg/websocket"
)

type NotificationServiceInterface interface {
	Create(ctx context.Context, payload dto.CreateNotificationDTO) (*entities.Notification, error)
	ListForUser(ctx context.Context, userID uint64, filter dto.NotificationFilter) ([]entities.Notification, error)
	MarkRead(ctx context.Context, userID uint64, id string) (*entities.Notification, error)
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	UnreadCount(ctx context.Context, userID uint64) (int64, error)
	ExportForUser(ctx context.Context, userID uint64) ([]byte, error)
}

type NotificationService struct {
	repo        repositories.NotificationRepositoryInterface
	cache       repositories.CacheRepositoryInterface
	broadcaster websocket.Broadcaster
	validate    *validator.Validate
	cacheTTL    time.Duration
	maxLimit    uint64
	logger      *zap.Logger
}

func NewNotificationService(
	repo repositories.NotificationRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	broadcaster websocket.Broadcaster,
	validate *validator.Validate,
	cacheTTL time.Duration,
	maxLimit uint64,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:        repo,
		cache:       cache,
		broadcaster: broadcaster,
		validate:    validate,
		cacheTTL:    cacheTTL,
		maxLimit:    maxLimit,
		logger:      logger,
	}
}

func unreadCacheKey(userID uint64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

// Create сохраняет уведомление и только после успешной записи рассылает его.
// Ошибка хранилища возвращается как ErrPersistence, рассылка при этом не выполняется.
func (s *NotificationService) Create(ctx context.Context, payload dto.CreateNotificationDTO) (*entities.Notification, error) {
	if err := s.validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldErr := range validationErrors {
				if fieldErr.Field() == "Type" {
					return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidNotificationType, payload.Type)
				}
			}
		}
		return nil, err
	}

	created, err := s.repo.Create(ctx, entities.Notification{
		Type:     entities.NotificationType(payload.Type),
		Title:    payload.Title,
		Message:  payload.Message,
		UserID:   payload.UserID,
		Metadata: payload.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrPersistence, err)
	}

	s.invalidateUnread(ctx, created.UserID)

	result := s.broadcaster.Broadcast(created)
	s.logger.Info("Уведомление создано",
		zap.String("notificationID", created.ID),
		zap.Uint64("userID", created.UserID),
		zap.String("type", created.Type.String()),
		zap.Stringer("delivery", result.Outcome),
	)
	return created, nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID uint64, filter dto.NotificationFilter) ([]entities.Notification, error) {
	if s.maxLimit > 0 && filter.Limit > s.maxLimit {
		filter.Limit = s.maxLimit
	}
	return s.repo.ListForUser(ctx, userID, filter)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID uint64, id string) (*entities.Notification, error) {
	n, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.invalidateUnread(ctx, userID)
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.invalidateUnread(ctx, userID)
	return updated, nil
}

// UnreadCount читает счетчик из кеша; сбой кеша не ломает вызов, значение берется из БД.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	key := unreadCacheKey(userID)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		if count, convErr := strconv.ParseInt(cached, 10, 64); convErr == nil {
			return count, nil
		}
	} else if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Warn("Кеш непрочитанных недоступен", zap.Uint64("userID", userID), zap.Error(err))
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Set(ctx, key, count, s.cacheTTL); err != nil {
		s.logger.Warn("Не удалось записать счетчик в кеш", zap.Uint64("userID", userID), zap.Error(err))
	}
	return count, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID uint64) {
	if err := s.cache.Del(ctx, unreadCacheKey(userID)); err != nil {
		s.logger.Warn("Не удалось сбросить счетчик непрочитанных", zap.Uint64("userID", userID), zap.Error(err))
	}
}

var exportHeaders = []string{"ID", "Тип", "Заголовок", "Текст", "Курс", "Прочитано", "Создано"}

// ExportForUser собирает xlsx со всеми уведомлениями пользователя.
func (s *NotificationService) ExportForUser(ctx context.Context, userID uint64) ([]byte, error) {
	list, err := s.repo.ListForUser(ctx, userID, dto.NotificationFilter{})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Уведомления"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("ошибка подготовки листа: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		return nil, fmt.Errorf("ошибка записи заголовка: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", "G1", style)
	}

	for i, n := range list {
		var course interface{}
		if n.Metadata.CourseID != nil {
			course = *n.Metadata.CourseID
		}
		read := "Нет"
		if n.IsRead {
			read = "Да"
		}
		row := []interface{}{n.ID, n.Type.String(), n.Title, n.Message, course, read, n.CreatedAt.Format("02.01.2006 15:04")}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("ошибка записи строки %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "C", "D", 40)
	_ = f.SetColWidth(sheet, "G", "G", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
