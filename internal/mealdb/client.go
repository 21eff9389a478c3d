// Package mealdb はレシピAPI（TheMealDB）のクライアントを提供する。
// 上流APIは外部の固定仕様として扱い、検索と詳細取得の2操作だけを使用する。
package mealdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/model"
)

const (
	// DefaultBaseURL はTheMealDBの公開APIのベースURL。
	DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"

	operationSearch = "search"
	operationLookup = "lookup"

	userAgent = "Recipebook/1.0"
)

// ErrResponseTooLarge はレスポンスボディがサイズ上限を超えた場合に返る。
var ErrResponseTooLarge = errors.New("upstream response exceeds size limit")

// Client はレシピAPIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxSize    int64
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// maxSizeはレスポンスボディの上限バイト数で、0以下の場合は上限なし。
func NewClient(httpClient *http.Client, baseURL string, maxSize int64, collector metrics.MetricsCollector, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxSize:    maxSize,
		metrics:    collector,
		logger:     logger,
	}
}

// Search は名前で料理を検索する。空文字列の場合は全件（APIの既定件数）を返す。
// 該当なしの場合は空スライスを返す。
func (c *Client) Search(ctx context.Context, name string) ([]model.Meal, error) {
	q := url.Values{}
	q.Set("s", name)

	meals, err := c.get(ctx, operationSearch, "/search.php", q)
	if err != nil {
		return nil, err
	}
	return meals, nil
}

// Lookup はidMealで料理の詳細を取得する。見つからない場合はnilを返す。
func (c *Client) Lookup(ctx context.Context, mealID string) (*model.Meal, error) {
	q := url.Values{}
	q.Set("i", mealID)

	meals, err := c.get(ctx, operationLookup, "/lookup.php", q)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, nil
	}
	return &meals[0], nil
}

// get はAPIを呼び出し、{"meals": [...] | null} 形式のレスポンスをデコードする。
func (c *Client) get(ctx context.Context, operation, path string, query url.Values) ([]model.Meal, error) {
	start := time.Now()
	meals, err := c.fetch(ctx, path, query)

	result := metrics.UpstreamResultSuccess
	switch {
	case err != nil:
		result = metrics.UpstreamResultError
		c.logger.Error("レシピAPIの呼び出しに失敗しました",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	case len(meals) == 0:
		result = metrics.UpstreamResultNotFound
	}
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(operation, result, time.Since(start))
	}

	return meals, err
}

func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]model.Meal, error) {
	reqURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("レシピAPIへのリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("レシピAPIがステータス %d を返しました", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if c.maxSize > 0 {
		// 上限+1バイトまで読み、超過を検出する
		body = io.LimitReader(resp.Body, c.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if c.maxSize > 0 && int64(len(data)) > c.maxSize {
		return nil, ErrResponseTooLarge
	}

	return decodeMeals(data)
}

// decodeMeals はレスポンスボディを料理のスライスに変換する。
// "meals": null は該当なしとして空スライスを返す。
func decodeMeals(data []byte) ([]model.Meal, error) {
	var envelope struct {
		Meals []map[string]json.RawMessage `json:"meals"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	meals := make([]model.Meal, 0, len(envelope.Meals))
	for _, rawMeal := range envelope.Meals {
		raw := make(map[string]*string, len(rawMeal))
		for k, v := range rawMeal {
			var s *string
			// 文字列とnull以外の値は無視する
			if err := json.Unmarshal(v, &s); err != nil {
				continue
			}
			raw[k] = s
		}
		meals = append(meals, toMeal(raw))
	}
	return meals, nil
}

func toMeal(raw map[string]*string) model.Meal {
	m := model.Meal{
		IDMeal:          field(raw, "idMeal"),
		StrMeal:         field(raw, "strMeal"),
		StrMealThumb:    field(raw, "strMealThumb"),
		StrCategory:     field(raw, "strCategory"),
		StrArea:         field(raw, "strArea"),
		StrInstructions: field(raw, "strInstructions"),
		Raw:             raw,
	}

	// 材料名が空の番号は使われていない枠として読み飛ばす
	for i := 1; i <= model.MaxIngredients; i++ {
		n := strconv.Itoa(i)
		name := strings.TrimSpace(field(raw, "strIngredient"+n))
		if name == "" {
			continue
		}
		m.Ingredients = append(m.Ingredients, model.Ingredient{
			Name:    name,
			Measure: strings.TrimSpace(field(raw, "strMeasure"+n)),
		})
	}
	return m
}

func field(raw map[string]*string, key string) string {
	if v := raw[key]; v != nil {
		return *v
	}
	return ""
}
