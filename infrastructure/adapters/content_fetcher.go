package adapters

import (
	"io"
	"net/http"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/domain"
)

// ContentFetcher sends a request and returns the body of a 2xx response. Any
// other answer becomes a *domain.ExternalServiceError carrying the body.
type ContentFetcher interface {
	FetchContent(service string, req *http.Request) ([]byte, error)
}

type contentFetcher struct {
	client *http.Client
	logger outbound.LoggerPort
}

func NewContentFetcher(client *http.Client, logger outbound.LoggerPort) ContentFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &contentFetcher{
		client: client,
		logger: logger,
	}
}

func (c *contentFetcher) FetchContent(service string, req *http.Request) ([]byte, error) {
	res, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to send the HTTP request", map[string]interface{}{
			"service": service,
			"method":  req.Method,
			"URL":     req.URL.String(),
		})
		return nil, &domain.ExternalServiceError{Service: service, Body: err.Error()}
	}

	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.ErrorWithFields(err, "Failed to close the response body", map[string]interface{}{
				"service": service,
				"URL":     req.URL.String(),
			})
		}
	}(res.Body)

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to read the response body", map[string]interface{}{
			"service": service,
			"URL":     req.URL.String(),
		})
		return nil, &domain.ExternalServiceError{Service: service, StatusCode: res.StatusCode, Body: err.Error()}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.WarnWithFields("HTTP request returned non-2xx status code", map[string]interface{}{
			"service": service,
			"method":  req.Method,
			"URL":     req.URL.String(),
			"status":  res.StatusCode,
			"message": string(payload),
		})
		return nil, &domain.ExternalServiceError{Service: service, StatusCode: res.StatusCode, Body: string(payload)}
	}

	if len(payload) == 0 {
		return nil, &domain.ExternalServiceError{Service: service, StatusCode: res.StatusCode, Body: "empty response"}
	}

	return payload, nil
}
