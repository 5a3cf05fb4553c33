package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestPayloadKey returns the cache key for a test's student-facing payload.
func (r *CacheKeyStruct) TestPayloadKey(testID int64) string {
	return fmt.Sprintf("test:%d:payload", testID)
}

// TestStatsKey returns the cache key for a test's aggregated statistics.
func (r *CacheKeyStruct) TestStatsKey(testID int64) string {
	return fmt.Sprintf("test:%d:stats", testID)
}

// SubmissionChannel returns the Redis PubSub channel carrying live
// submission events for a test.
func (r *CacheKeyStruct) SubmissionChannel(testID int64) string {
	return fmt.Sprintf("test:%d:submissions", testID)
}

var CacheKey = NewCacheKeyStruct()
