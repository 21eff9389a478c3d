// Package repotest はFavoriteRepositoryの全実装に共通する振る舞いを検証するテストスイート。
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// CleanupFunc はテスト終了時にストアを片付ける。
type CleanupFunc = func()

// FavoriteRepoFactory は空のストアを返す。テストケースごとに呼び出される。
type FavoriteRepoFactory func(t *testing.T) (repository.FavoriteRepository, CleanupFunc)

// RunFavoriteRepo はFavoriteRepositoryの契約をすべて検証する。
func RunFavoriteRepo(t *testing.T, newRepo FavoriteRepoFactory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, repo repository.FavoriteRepository)
	}{
		{"EmptyListIsEmptySlice", testEmptyList},
		{"CreateThenList", testCreateThenList},
		{"DuplicateIsRejected", testDuplicateRejected},
		{"FindByMealID", testFindByMealID},
		{"DeleteByMealID", testDelete},
		{"DeleteMissingIsNotFound", testDeleteMissing},
		{"DeleteMissingKeepsOthers", testDeleteMissingKeepsOthers},
		{"AddRemoveAdd", testAddRemoveAdd},
		{"ListOrderedByCreation", testListOrder},
		{"ConcurrentCreateSameMeal", testConcurrentCreate},
		{"Ping", testPing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, cleanup := newRepo(t)
			if cleanup != nil {
				t.Cleanup(cleanup)
			}
			tc.fn(t, repo)
		})
	}
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newFavorite(mealID, name string, offset time.Duration) *model.Favorite {
	return model.NewFavorite(mealID, name, "https://www.themealdb.com/images/media/meals/"+mealID+".jpg", baseTime.Add(offset))
}

func mustList(t *testing.T, repo repository.FavoriteRepository) []*model.Favorite {
	t.Helper()
	favs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return favs
}

func testEmptyList(t *testing.T, repo repository.FavoriteRepository) {
	favs := mustList(t, repo)
	if favs == nil {
		t.Fatal("List on empty store returned nil, want empty slice")
	}
	if len(favs) != 0 {
		t.Fatalf("len(List) = %d, want 0", len(favs))
	}
}

func testCreateThenList(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	fav := newFavorite("52772", "Teriyaki Chicken Casserole", 0)

	if err := repo.Create(ctx, fav); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fav.ID == "" {
		t.Error("Create should set the record ID")
	}

	favs := mustList(t, repo)
	if len(favs) != 1 {
		t.Fatalf("len(List) = %d, want 1", len(favs))
	}
	got := favs[0]
	if got.ID != fav.ID {
		t.Errorf("ID = %q, want %q", got.ID, fav.ID)
	}
	if got.MealID != "52772" {
		t.Errorf("MealID = %q, want %q", got.MealID, "52772")
	}
	if got.MealName != "Teriyaki Chicken Casserole" {
		t.Errorf("MealName = %q, want %q", got.MealName, "Teriyaki Chicken Casserole")
	}
	if got.ImageURL != fav.ImageURL {
		t.Errorf("ImageURL = %q, want %q", got.ImageURL, fav.ImageURL)
	}
	if !got.CreatedAt.Equal(fav.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, fav.CreatedAt)
	}
}

func testDuplicateRejected(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	if err := repo.Create(ctx, newFavorite("52772", "Original", 0)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := repo.Create(ctx, newFavorite("52772", "Renamed", time.Second))
	if !errors.Is(err, repository.ErrDuplicateFavorite) {
		t.Fatalf("duplicate Create error = %v, want ErrDuplicateFavorite", err)
	}

	favs := mustList(t, repo)
	if len(favs) != 1 {
		t.Fatalf("len(List) = %d, want 1", len(favs))
	}
	if favs[0].MealName != "Original" {
		t.Errorf("MealName = %q, want %q (duplicate must not mutate)", favs[0].MealName, "Original")
	}
}

func testFindByMealID(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	if err := repo.Create(ctx, newFavorite("53049", "Apam balik", 0)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByMealID(ctx, "53049")
	if err != nil {
		t.Fatalf("FindByMealID: %v", err)
	}
	if got == nil || got.MealName != "Apam balik" {
		t.Fatalf("FindByMealID = %+v, want Apam balik", got)
	}

	missing, err := repo.FindByMealID(ctx, "99999")
	if err != nil {
		t.Fatalf("FindByMealID(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("FindByMealID(missing) = %+v, want nil", missing)
	}
}

func testDelete(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	if err := repo.Create(ctx, newFavorite("1", "One", 0)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, newFavorite("2", "Two", time.Second)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.DeleteByMealID(ctx, "1"); err != nil {
		t.Fatalf("DeleteByMealID: %v", err)
	}

	favs := mustList(t, repo)
	if len(favs) != 1 || favs[0].MealID != "2" {
		t.Fatalf("List after delete = %+v, want only mealId 2", favs)
	}
}

func testDeleteMissing(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	if err := repo.DeleteByMealID(ctx, "nope"); !errors.Is(err, repository.ErrFavoriteNotFound) {
		t.Fatalf("DeleteByMealID(missing) error = %v, want ErrFavoriteNotFound", err)
	}

	if err := repo.Create(ctx, newFavorite("1", "One", 0)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.DeleteByMealID(ctx, "1"); err != nil {
		t.Fatalf("DeleteByMealID: %v", err)
	}
	if err := repo.DeleteByMealID(ctx, "1"); !errors.Is(err, repository.ErrFavoriteNotFound) {
		t.Fatalf("second DeleteByMealID error = %v, want ErrFavoriteNotFound", err)
	}
}

func testDeleteMissingKeepsOthers(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	seeded := []*model.Favorite{
		newFavorite("52772", "Teriyaki Chicken Casserole", 0),
		newFavorite("52773", "Honey Teriyaki Salmon", time.Second),
	}
	for _, fav := range seeded {
		if err := repo.Create(ctx, fav); err != nil {
			t.Fatalf("Create(%s): %v", fav.MealID, err)
		}
	}

	if err := repo.DeleteByMealID(ctx, "99999"); !errors.Is(err, repository.ErrFavoriteNotFound) {
		t.Fatalf("DeleteByMealID(missing) error = %v, want ErrFavoriteNotFound", err)
	}

	favs := mustList(t, repo)
	if len(favs) != len(seeded) {
		t.Fatalf("len(List) = %d, want %d", len(favs), len(seeded))
	}
	for i, want := range seeded {
		got := favs[i]
		if got.ID != want.ID || got.MealID != want.MealID || got.MealName != want.MealName || got.ImageURL != want.ImageURL {
			t.Errorf("List[%d] = %+v, want %+v", i, got, want)
		}
	}
}

func testAddRemoveAdd(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	if err := repo.Create(ctx, newFavorite("7", "Seven", 0)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.DeleteByMealID(ctx, "7"); err != nil {
		t.Fatalf("DeleteByMealID: %v", err)
	}
	if err := repo.Create(ctx, newFavorite("7", "Seven again", time.Second)); err != nil {
		t.Fatalf("Create after delete: %v", err)
	}

	favs := mustList(t, repo)
	if len(favs) != 1 || favs[0].MealName != "Seven again" {
		t.Fatalf("List = %+v, want one record named %q", favs, "Seven again")
	}
}

func testListOrder(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	ids := []string{"c", "a", "b"}
	for i, id := range ids {
		if err := repo.Create(ctx, newFavorite(id, "Meal "+id, time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Create(%s): %v", id, err)
		}
	}

	favs := mustList(t, repo)
	if len(favs) != len(ids) {
		t.Fatalf("len(List) = %d, want %d", len(favs), len(ids))
	}
	for i, id := range ids {
		if favs[i].MealID != id {
			t.Errorf("List[%d].MealID = %q, want %q", i, favs[i].MealID, id)
		}
	}
}

func testConcurrentCreate(t *testing.T, repo repository.FavoriteRepository) {
	ctx := context.Background()
	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, newFavorite("52772", fmt.Sprintf("attempt %d", i), 0))
		}(i)
	}
	wg.Wait()

	success := 0
	for i, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, repository.ErrDuplicateFavorite):
		default:
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if success != 1 {
		t.Errorf("successful creates = %d, want exactly 1", success)
	}

	favs := mustList(t, repo)
	if len(favs) != 1 {
		t.Errorf("len(List) = %d, want 1", len(favs))
	}
}

func testPing(t *testing.T, repo repository.FavoriteRepository) {
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
