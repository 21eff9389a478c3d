package middleware

import (
	"net/http"
	"strings"
)

// NewCORSMiddleware は許可オリジンに対するCORSミドルウェアを返す。
// allowedOriginsはカンマ区切りで複数指定できる。1つだけの場合は常にそのオリジンを返し、
// 複数の場合はリクエストのOriginが一致したときだけ返す。
// 認証情報は扱わないため Access-Control-Allow-Credentials は付与しない。
// Access-Control-Request-Methodを伴うOPTIONSプリフライトには204で応答し、
// それ以外のOPTIONSは後段のハンドラーに渡す。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	origins := parseOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := matchOrigin(origins, r.Header.Get("Origin")); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")

			if isPreflight(r) {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isPreflight はrがCORSプリフライトリクエストかどうかを返す。
func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

func parseOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// matchOrigin はレスポンスに載せるオリジンを決める。一致しない場合は空文字列を返す。
func matchOrigin(origins []string, requestOrigin string) string {
	switch len(origins) {
	case 0:
		return ""
	case 1:
		return origins[0]
	}
	for _, o := range origins {
		switch {
		case o == "*":
			return "*"
		case requestOrigin != "" && strings.EqualFold(o, requestOrigin):
			return requestOrigin
		}
	}
	return ""
}
