package summarizer

import (
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"google.golang.org/api/googleapi"
)

// ServiceError is a summarization failure carrying the upstream status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("summarizer: AI service error: %d - %s", e.StatusCode, e.Message)
}

// StatusCode returns the upstream HTTP status behind err, or 0 when none is known.
// Gemini, Bedrock and remote-service errors are recognised.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// HTTPStatus maps a summarization failure onto the status this service answers with.
func HTTPStatus(err error) int {
	if code := StatusCode(err); code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable {
		return code
	}
	return http.StatusInternalServerError
}
