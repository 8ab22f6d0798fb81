package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService routes classification calls to a primary provider and
// falls back to a secondary one on connection or quota errors. On a quota
// error from the secondary it retries the primary once, since quota windows
// are usually short-lived.
type FallbackService struct {
	primary       ClassifierService
	secondary     ClassifierService
	primaryName   string
	secondaryName string
}

// NewFallbackService creates a new fallback service wrapping both providers.
func NewFallbackService(primary ClassifierService, primaryName string, secondary ClassifierService, secondaryName string) *FallbackService {
	return &FallbackService{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// ClassifyEmail tries the primary provider first and falls back to the
// secondary on any error.
func (f *FallbackService) ClassifyEmail(ctx context.Context, prompt string) (string, error) {
	if f.primary != nil {
		result, err := f.primary.ClassifyEmail(ctx, prompt)
		if err == nil {
			return result, nil
		}

		if isConnectionError(err) {
			log.Printf("[AI] %s connection failed: %v, falling back to %s", f.primaryName, err, f.secondaryName)
		} else {
			log.Printf("[AI] %s error: %v, falling back to %s", f.primaryName, err, f.secondaryName)
		}
	}

	if f.secondary != nil {
		result, err := f.secondary.ClassifyEmail(ctx, prompt)
		if err == nil {
			return result, nil
		}

		if isQuotaError(err) && f.primary != nil {
			log.Printf("[AI] %s quota exhausted: %v, retrying %s", f.secondaryName, err, f.primaryName)
			return f.primary.ClassifyEmail(ctx, prompt)
		}

		return "", fmt.Errorf("%s classification failed: %w", f.secondaryName, err)
	}

	return "", fmt.Errorf("no AI provider available for classification")
}
