package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dunamismax/launchpad/internal/apperror"
	"github.com/sashabaranov/go-openai"
)

// classify maps a provider failure onto the error categories the routes
// answer with. fallback is the message for everything that is not an auth
// or quota problem.
func classify(err error, fallback string) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := fmt.Sprint(apiErr.Code)
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || code == "invalid_api_key":
			return apperror.Unauthorized("Invalid API key", err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests || code == "insufficient_quota" || strings.Contains(strings.ToLower(apiErr.Message), "quota"):
			return apperror.QuotaExceeded("API quota exceeded", err)
		}
		return apperror.Upstream(fallback, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return apperror.Unauthorized("Invalid API key", err)
		case http.StatusTooManyRequests:
			return apperror.QuotaExceeded("API quota exceeded", err)
		}
		return apperror.Upstream(fallback, err)
	}

	return apperror.Upstream(fallback, err)
}
