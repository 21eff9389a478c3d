// Package recipe はレシピAPIの料理一覧・詳細をお気に入り状態と組み合わせて提供する。
package recipe

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/recipebook/internal/model"
)

// MealSource はレシピAPIへの読み取り操作を定義する。mealdb.Client が満たす。
type MealSource interface {
	Search(ctx context.Context, name string) ([]model.Meal, error)
	Lookup(ctx context.Context, mealID string) (*model.Meal, error)
}

// FavoriteChecker はmealIdのお気に入り状態を返す。favorite.Service が満たす。
type FavoriteChecker interface {
	IsFavorite(ctx context.Context, mealID string) (bool, error)
}

// Service はレシピカタログのサービス層。
type Service struct {
	source    MealSource
	favorites FavoriteChecker
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(source MealSource, favorites FavoriteChecker, logger *slog.Logger) *Service {
	return &Service{
		source:    source,
		favorites: favorites,
		logger:    logger,
	}
}

// ListMeals は料理名で検索した一覧を返す。空文字の場合は全件検索になる。
// レシピAPIの障害時はエラーを返さず、ログに記録して空の一覧を返す。
func (s *Service) ListMeals(ctx context.Context, query string) []model.Meal {
	meals, err := s.source.Search(ctx, strings.TrimSpace(query))
	if err != nil {
		s.logger.Error("料理一覧の取得に失敗しました",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return []model.Meal{}
	}
	if meals == nil {
		return []model.Meal{}
	}
	return meals
}

// GetMeal は料理詳細をお気に入り状態付きで返す。
// 該当なし、またはレシピAPIの障害時はMEAL_NOT_FOUNDを返す。
// お気に入り状態の取得に失敗した場合はログに記録し、未登録として扱う。
func (s *Service) GetMeal(ctx context.Context, mealID string) (*model.MealDetail, error) {
	mealID = strings.TrimSpace(mealID)
	if mealID == "" {
		return nil, model.NewMealNotFoundError()
	}

	meal, err := s.source.Lookup(ctx, mealID)
	if err != nil {
		s.logger.Error("料理詳細の取得に失敗しました",
			slog.String("meal_id", mealID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewMealNotFoundError()
	}
	if meal == nil {
		return nil, model.NewMealNotFoundError()
	}

	detail := &model.MealDetail{Meal: *meal}
	isFav, err := s.favorites.IsFavorite(ctx, mealID)
	if err != nil {
		s.logger.Warn("お気に入り状態の取得に失敗しました",
			slog.String("meal_id", mealID),
			slog.String("error", err.Error()),
		)
		return detail, nil
	}
	detail.IsFavorite = isFav
	return detail, nil
}
