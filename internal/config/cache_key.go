package config

import (
	"fmt"
	"net/url"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionPoolKey returns the cache key for the active question pool of a course/subject/area.
func (r *CacheKeyStruct) QuestionPoolKey(course, subject, area string) string {
	return fmt.Sprintf("pool:%s:%s:%s", keyPart(course), keyPart(subject), keyPart(area))
}

// ViolationRateKey returns the fixed-window counter key for a user's violation reports.
func (r *CacheKeyStruct) ViolationRateKey(userID int, window int64) string {
	return fmt.Sprintf("ratelimit:violations:%d:%d", userID, window)
}

// CourseMonitorChannel returns the Redis PubSub channel name for a course's live monitor.
func (r *CacheKeyStruct) CourseMonitorChannel(course string) string {
	return fmt.Sprintf("exam:monitor:%s", keyPart(course))
}

// AllMonitorChannel receives every monitor event regardless of course.
func (r *CacheKeyStruct) AllMonitorChannel() string {
	return "exam:monitor:*"
}

// keyPart escapes a label reversibly. Case and spacing are kept because the
// pool query matches labels exactly; ':' and glob characters never survive.
func keyPart(s string) string {
	return url.QueryEscape(s)
}

var CacheKey = NewCacheKeyStruct()
