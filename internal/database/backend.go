package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Backend はお気に入りストアの実装種別。
type Backend string

const (
	BackendMongo    Backend = "mongodb"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// DetectBackend は接続文字列のスキームからバックエンドを判定する。
// 未知のスキームは設定ミスとしてエラーを返す。
func DetectBackend(databaseURL string) (Backend, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return BackendMongo, nil
	case "postgres", "postgresql":
		return BackendPostgres, nil
	case "memory":
		return BackendMemory, nil
	case "":
		return "", fmt.Errorf("database url has no scheme")
	default:
		return "", fmt.Errorf("unsupported database scheme: %q", u.Scheme)
	}
}
