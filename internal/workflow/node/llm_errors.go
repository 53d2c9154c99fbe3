package node

import "strings"

// IsAuthenticationError 判断模型调用是否因凭证无效失败
func IsAuthenticationError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401"):
		return true
	case strings.Contains(msg, "invalid_api_key"):
		return true
	case strings.Contains(msg, "incorrect api key"):
		return true
	case strings.Contains(msg, "invalid api key"):
		return true
	case strings.Contains(msg, "unauthorized"):
		return true
	case strings.Contains(msg, "authentication"):
		return true
	default:
		return false
	}
}

// IsRateLimitError 判断是否被上游限流
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}
