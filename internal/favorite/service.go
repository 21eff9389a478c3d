// Package favorite はお気に入り管理のドメインロジックを提供する。
package favorite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// 入力値の最大長（文字数）
const (
	MaxMealIDLength   = 64
	MaxMealNameLength = 256
	MaxImageURLLength = 2048
)

// URLValidator は画像URLを登録前に静的検証する。security.SSRFGuardService が満たす。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// TextSanitizer はHTMLを除去してプレーンテキストにする。security.TextSanitizerService が満たす。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// AddInput はお気に入り追加の入力値。
type AddInput struct {
	MealID   string
	MealName string
	ImageURL string
}

// Service はお気に入り管理のサービス層。
// 一覧取得、追加、削除のビジネスロジックを提供する。
type Service struct {
	repo      repository.FavoriteRepository
	validator URLValidator
	sanitizer TextSanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.FavoriteRepository,
	validator URLValidator,
	sanitizer TextSanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
	}
}

// List は全てのお気に入りを登録順で返す。0件の場合は空スライスを返す。
func (s *Service) List(ctx context.Context) ([]*model.Favorite, error) {
	favs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	if favs == nil {
		favs = []*model.Favorite{}
	}
	return favs, nil
}

// Add はお気に入りを追加する。
// 一意性はストアのユニーク制約に任せ、重複時はALREADY_FAVORITEDを返す。
func (s *Service) Add(ctx context.Context, in AddInput) (*model.Favorite, error) {
	mealID := strings.TrimSpace(in.MealID)
	imageURL := strings.TrimSpace(in.ImageURL)
	mealName := s.sanitizer.SanitizeText(in.MealName)

	if err := validateAddInput(mealID, mealName, imageURL); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateURL(imageURL); err != nil {
		return nil, model.NewInvalidRequestError("imageUrl must be a public http or https URL")
	}

	fav := model.NewFavorite(mealID, mealName, imageURL, s.now().UTC())
	if err := s.repo.Create(ctx, fav); err != nil {
		if errors.Is(err, repository.ErrDuplicateFavorite) {
			s.metrics.RecordFavoriteConflict()
			s.logger.Info("登録済みのお気に入りへの追加要求を拒否しました",
				slog.String("meal_id", mealID),
			)
			return nil, model.NewAlreadyFavoritedError()
		}
		return nil, fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}

	s.metrics.RecordFavoriteAdded()
	s.logger.Info("お気に入りを追加しました",
		slog.String("meal_id", fav.MealID),
		slog.String("favorite_id", fav.ID),
	)
	return fav, nil
}

// Remove はmealIdに一致するお気に入りを削除する。
// 該当がない場合はFAVORITE_NOT_FOUNDを返す。
func (s *Service) Remove(ctx context.Context, mealID string) error {
	mealID = strings.TrimSpace(mealID)
	if mealID == "" {
		return model.NewInvalidRequestError("mealId is required")
	}
	if utf8.RuneCountInString(mealID) > MaxMealIDLength {
		return model.NewInvalidRequestError(fmt.Sprintf("mealId must be at most %d characters", MaxMealIDLength))
	}

	if err := s.repo.DeleteByMealID(ctx, mealID); err != nil {
		if errors.Is(err, repository.ErrFavoriteNotFound) {
			return model.NewFavoriteNotFoundError()
		}
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}

	s.metrics.RecordFavoriteRemoved()
	s.logger.Info("お気に入りを削除しました", slog.String("meal_id", mealID))
	return nil
}

// IsFavorite はmealIdがお気に入り登録済みかどうかを返す。
func (s *Service) IsFavorite(ctx context.Context, mealID string) (bool, error) {
	fav, err := s.repo.FindByMealID(ctx, mealID)
	if err != nil {
		return false, fmt.Errorf("お気に入り状態の取得に失敗しました: %w", err)
	}
	return fav != nil, nil
}

func validateAddInput(mealID, mealName, imageURL string) error {
	switch {
	case mealID == "":
		return model.NewInvalidRequestError("mealId is required")
	case mealName == "":
		return model.NewInvalidRequestError("mealName is required")
	case imageURL == "":
		return model.NewInvalidRequestError("imageUrl is required")
	}

	if utf8.RuneCountInString(mealID) > MaxMealIDLength {
		return model.NewInvalidRequestError(fmt.Sprintf("mealId must be at most %d characters", MaxMealIDLength))
	}
	if utf8.RuneCountInString(mealName) > MaxMealNameLength {
		return model.NewInvalidRequestError(fmt.Sprintf("mealName must be at most %d characters", MaxMealNameLength))
	}
	if len(imageURL) > MaxImageURLLength {
		return model.NewInvalidRequestError(fmt.Sprintf("imageUrl must be at most %d characters", MaxImageURLLength))
	}
	return nil
}
