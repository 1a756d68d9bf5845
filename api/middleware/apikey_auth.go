/*
 * @module api/middleware/apikey_auth
 * @description API密钥鉴权中间件，请求头携带的密钥与配置的bcrypt哈希比对
 * @architecture 中间件模式 - 请求拦截
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 请求 -> 提取X-API-Key -> bcrypt比对 -> 放行/拒绝
 * @rules 未配置哈希时中间件直接放行；比对失败统一返回401不泄露细节
 * @dependencies golang.org/x/crypto/bcrypt
 * @refs api/routes.go
 */

package middleware

import (
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

// apiKeyHeader 密钥请求头名称
const apiKeyHeader = "X-API-Key"

// APIKeyAuth 构建API密钥鉴权中间件
// hashedKey为bcrypt哈希，空值时返回直通中间件
func APIKeyAuth(hashedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hashedKey == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			if key == "" || bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(key)) != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]interface{}{
					"status": http.StatusUnauthorized,
					"msg":    "API密钥无效",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
