// ABOUTME: Maps SDK errors onto the transient/permanent split used for retries
// ABOUTME: HTTP 408, 429 and 5xx responses are marked transient
package llm

import (
	"errors"

	"github.com/harper/chapterize/internal/util"
	oai "github.com/openai/openai-go"
	openai "github.com/sashabaranov/go-openai"
)

// classify marks err transient when it carries a retryable HTTP status
func classify(err error) error {
	if err == nil || util.IsTransient(err) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && util.IsRetryableStatus(apiErr.HTTPStatusCode) {
		return util.MarkTransient(err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && util.IsRetryableStatus(reqErr.HTTPStatusCode) {
		return util.MarkTransient(err)
	}
	var respErr *oai.Error
	if errors.As(err, &respErr) && util.IsRetryableStatus(respErr.StatusCode) {
		return util.MarkTransient(err)
	}
	return err
}
