package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AssessmentPoolKey returns the cache key for an assessment's calibrated question pool
func (r *CacheKeyStruct) AssessmentPoolKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:pool", assessmentID)
}

// QuestionKey returns the cache key for a single calibrated question
func (r *CacheKeyStruct) QuestionKey(questionID string) string {
	return fmt.Sprintf("question:%s", questionID)
}

var CacheKey = NewCacheKeyStruct()
