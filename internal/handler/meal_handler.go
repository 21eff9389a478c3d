package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MealServiceInterface はレシピハンドラーが必要とするサービスインターフェース。
type MealServiceInterface interface {
	// ListMeals は料理名で検索した一覧を返す。障害時は空の一覧を返す。
	ListMeals(ctx context.Context, query string) []mealSummaryResponse
	// GetMeal は料理詳細をお気に入り状態付きで返す。
	GetMeal(ctx context.Context, mealID string) (mealDetailResponse, error)
}

// MealHandler はレシピカタログのHTTPハンドラー。
type MealHandler struct {
	service MealServiceInterface
}

// NewMealHandler はMealHandlerを生成する。
func NewMealHandler(service MealServiceInterface) *MealHandler {
	return &MealHandler{
		service: service,
	}
}

// mealSummaryResponse は料理一覧の1件。キー名はレシピAPIに合わせる。
type mealSummaryResponse struct {
	IDMeal       string `json:"idMeal"`
	StrMeal      string `json:"strMeal"`
	StrMealThumb string `json:"strMealThumb"`
	StrCategory  string `json:"strCategory,omitempty"`
	StrArea      string `json:"strArea,omitempty"`
}

// mealListResponse は料理一覧のAPIレスポンス。
type mealListResponse struct {
	Meals []mealSummaryResponse `json:"meals"`
}

// ingredientResponse は材料と分量のペア。
type ingredientResponse struct {
	Ingredient string `json:"ingredient"`
	Measure    string `json:"measure"`
}

// mealDetailResponse は料理詳細のAPIレスポンス。
// レシピAPIの元のキー（strIngredientN等）に ingredients と isFavorite を加えたもの。
type mealDetailResponse map[string]interface{}

// ListMeals は料理一覧を返す。
// GET /api/meals?s=<query>
func (h *MealHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	meals := h.service.ListMeals(r.Context(), r.URL.Query().Get("s"))
	if meals == nil {
		meals = []mealSummaryResponse{}
	}

	writeJSON(w, http.StatusOK, mealListResponse{Meals: meals})
}

// GetMeal は料理詳細を返す。
// GET /api/meals/{mealId}
func (h *MealHandler) GetMeal(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetMeal(r.Context(), chi.URLParam(r, "mealId"))
	if err != nil {
		handleServiceError(w, r, err, "Error fetching meal")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
