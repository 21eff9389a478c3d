package handler

import (
	"context"

	"github.com/hitoshi/recipebook/internal/favorite"
	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/recipe"
)

// FavoriteServiceAdapter は favorite.Service を FavoriteServiceInterface に適合させるアダプタ。
type FavoriteServiceAdapter struct {
	svc *favorite.Service
}

// NewFavoriteServiceAdapter はFavoriteServiceAdapterを生成する。
func NewFavoriteServiceAdapter(svc *favorite.Service) *FavoriteServiceAdapter {
	return &FavoriteServiceAdapter{svc: svc}
}

// ListFavorites は全てのお気に入りをhandlerレスポンス型で返す。
func (a *FavoriteServiceAdapter) ListFavorites(ctx context.Context) ([]favoriteResponse, error) {
	favs, err := a.svc.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]favoriteResponse, len(favs))
	for i, fav := range favs {
		results[i] = toFavoriteResponse(fav)
	}
	return results, nil
}

// AddFavorite はお気に入りを追加する。
func (a *FavoriteServiceAdapter) AddFavorite(ctx context.Context, req addFavoriteRequest) error {
	_, err := a.svc.Add(ctx, favorite.AddInput{
		MealID:   req.MealID,
		MealName: req.MealName,
		ImageURL: req.ImageURL,
	})
	return err
}

// RemoveFavorite はお気に入りを削除する。
func (a *FavoriteServiceAdapter) RemoveFavorite(ctx context.Context, mealID string) error {
	return a.svc.Remove(ctx, mealID)
}

// toFavoriteResponse はドメインのFavoriteをhandlerのレスポンス型に変換する。
func toFavoriteResponse(fav *model.Favorite) favoriteResponse {
	return favoriteResponse{
		ID:       fav.ID,
		MealID:   fav.MealID,
		MealName: fav.MealName,
		ImageURL: fav.ImageURL,
	}
}

// MealServiceAdapter は recipe.Service を MealServiceInterface に適合させるアダプタ。
type MealServiceAdapter struct {
	svc *recipe.Service
}

// NewMealServiceAdapter はMealServiceAdapterを生成する。
func NewMealServiceAdapter(svc *recipe.Service) *MealServiceAdapter {
	return &MealServiceAdapter{svc: svc}
}

// ListMeals は料理一覧をhandlerレスポンス型で返す。
func (a *MealServiceAdapter) ListMeals(ctx context.Context, query string) []mealSummaryResponse {
	meals := a.svc.ListMeals(ctx, query)

	results := make([]mealSummaryResponse, len(meals))
	for i, m := range meals {
		results[i] = mealSummaryResponse{
			IDMeal:       m.IDMeal,
			StrMeal:      m.StrMeal,
			StrMealThumb: m.StrMealThumb,
			StrCategory:  m.StrCategory,
			StrArea:      m.StrArea,
		}
	}
	return results
}

// GetMeal は料理詳細をhandlerレスポンス型で返す。
func (a *MealServiceAdapter) GetMeal(ctx context.Context, mealID string) (mealDetailResponse, error) {
	detail, err := a.svc.GetMeal(ctx, mealID)
	if err != nil {
		return nil, err
	}
	return toMealDetailResponse(detail), nil
}

// toMealDetailResponse はレシピAPIの元のキーを保ったまま派生フィールドを加える。
func toMealDetailResponse(detail *model.MealDetail) mealDetailResponse {
	resp := make(mealDetailResponse, len(detail.Raw)+8)
	for key, value := range detail.Raw {
		if value == nil {
			resp[key] = nil
			continue
		}
		resp[key] = *value
	}

	resp["idMeal"] = detail.IDMeal
	resp["strMeal"] = detail.StrMeal
	resp["strMealThumb"] = detail.StrMealThumb
	resp["strCategory"] = detail.StrCategory
	resp["strArea"] = detail.StrArea
	resp["strInstructions"] = detail.StrInstructions

	ingredients := make([]ingredientResponse, len(detail.Ingredients))
	for i, ing := range detail.Ingredients {
		ingredients[i] = ingredientResponse{Ingredient: ing.Name, Measure: ing.Measure}
	}
	resp["ingredients"] = ingredients
	resp["isFavorite"] = detail.IsFavorite
	return resp
}

// --- compile-time interface checks ---

var _ FavoriteServiceInterface = (*FavoriteServiceAdapter)(nil)
var _ MealServiceInterface = (*MealServiceAdapter)(nil)
