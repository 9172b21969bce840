package cache

import "fmt"

func RateLimitKey(clientID string) string {
	return fmt.Sprintf("buildscope:ratelimit:%s", clientID)
}
