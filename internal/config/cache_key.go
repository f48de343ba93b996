package config

import "fmt"

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserStatisticsKey returns the cache key for a user's computed statistics.
func (r *CacheKeyStruct) UserStatisticsKey(userID int) string {
	return fmt.Sprintf("user:%d:statistics", userID)
}

// RevokedTokenKey returns the cache key marking a JWT (by jti) as logged out.
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("token:%s:revoked", jti)
}

// ActivityChannel returns the Redis PubSub channel carrying score events.
func (r *CacheKeyStruct) ActivityChannel() string {
	return "scores:activity"
}

// DashboardResultsKey returns the cache key for the platform-wide results
// aggregate shown on the admin dashboard.
func (r *CacheKeyStruct) DashboardResultsKey() string {
	return "dashboard:results_aggregate"
}

var CacheKey = NewCacheKeyStruct()
