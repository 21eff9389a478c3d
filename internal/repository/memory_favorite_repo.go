package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/recipebook/internal/model"
)

// MemoryFavoriteRepo はプロセス内のマップに保持するお気に入りリポジトリ。
// ローカル開発とテストで使用する。mealIdをキーとするマップが一意性を保証する。
type MemoryFavoriteRepo struct {
	mu     sync.RWMutex
	byMeal map[string]memoryEntry
	seq    uint64
}

type memoryEntry struct {
	fav model.Favorite
	seq uint64
}

// NewMemoryFavoriteRepo は空のMemoryFavoriteRepoを生成する。
func NewMemoryFavoriteRepo() *MemoryFavoriteRepo {
	return &MemoryFavoriteRepo{byMeal: make(map[string]memoryEntry)}
}

// List は全レコードを挿入順で返す。
func (r *MemoryFavoriteRepo) List(_ context.Context) ([]*model.Favorite, error) {
	r.mu.RLock()
	entries := make([]memoryEntry, 0, len(r.byMeal))
	for _, e := range r.byMeal {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	favs := make([]*model.Favorite, 0, len(entries))
	for i := range entries {
		fav := entries[i].fav
		favs = append(favs, &fav)
	}
	return favs, nil
}

// Create はレコードを追加する。mealIdが重複する場合はErrDuplicateFavoriteを返す。
func (r *MemoryFavoriteRepo) Create(_ context.Context, fav *model.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byMeal[fav.MealID]; exists {
		return ErrDuplicateFavorite
	}

	if fav.ID == "" {
		fav.ID = uuid.NewString()
	}
	r.seq++
	r.byMeal[fav.MealID] = memoryEntry{fav: *fav, seq: r.seq}
	return nil
}

// FindByMealID はmealIdでレコードを検索する。見つからない場合はnilを返す。
func (r *MemoryFavoriteRepo) FindByMealID(_ context.Context, mealID string) (*model.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byMeal[mealID]
	if !ok {
		return nil, nil
	}
	fav := e.fav
	return &fav, nil
}

// DeleteByMealID はmealIdに一致するレコードを削除する。
func (r *MemoryFavoriteRepo) DeleteByMealID(_ context.Context, mealID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byMeal[mealID]; !ok {
		return ErrFavoriteNotFound
	}
	delete(r.byMeal, mealID)
	return nil
}

// Ping は常に成功する。
func (r *MemoryFavoriteRepo) Ping(_ context.Context) error {
	return nil
}
