// Package model はドメインモデルを定義する。
package model

// MaxIngredients はレシピAPIが返す材料・分量ペアの最大数。
const MaxIngredients = 20

// Meal はレシピAPI（TheMealDB）から取得した料理を表す。
// フィールド名はAPIのキー名（idMeal, strMeal, ...）に対応する。
type Meal struct {
	IDMeal          string
	StrMeal         string
	StrMealThumb    string
	StrCategory     string
	StrArea         string
	StrInstructions string
	Ingredients     []Ingredient
	// Raw はAPIレスポンスの元のキーと値。strIngredientN などをそのまま返すために保持する。
	Raw map[string]*string
}

// Ingredient は番号付きの材料と分量のペア。
type Ingredient struct {
	Name    string
	Measure string
}

// MealDetail は料理詳細とお気に入り状態を結合したモデル。
type MealDetail struct {
	Meal
	IsFavorite bool
}
