package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/invoiceflow/backend/internal/domain/extraction"
)

// maxResponseSize is the maximum allowed response size from the provider (10MB)
const maxResponseSize = 10 * 1024 * 1024

// HTTPExtractor calls an external document extraction provider over HTTP.
// The document is sent as a multipart upload together with any vendor hints;
// the provider answers with the extraction result as JSON.
type HTTPExtractor struct {
	config     *ProviderConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ extraction.Extractor = (*HTTPExtractor)(nil)

// NewHTTPExtractor creates a new HTTPExtractor with the given configuration
func NewHTTPExtractor(config *ProviderConfig, logger *zap.Logger) (*HTTPExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPExtractor{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}, nil
}

// Extract sends the document to the provider and decodes its reading
func (e *HTTPExtractor) Extract(ctx context.Context, document []byte, contentType, hints string) (*extraction.Result, error) {
	if len(document) == 0 {
		return nil, fmt.Errorf("extraction: empty document")
	}

	body, boundary, err := buildRequestBody(document, contentType, hints)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("extraction: building request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction: provider request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("extraction: reading provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("extraction provider returned error",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("extraction: provider returned status %d", resp.StatusCode)
	}

	var result extraction.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("extraction: decoding provider response: %w", err)
	}
	if result.ExtractedAt.IsZero() {
		result.ExtractedAt = time.Now()
	}

	e.logger.Info("document extracted",
		zap.String("vendor", result.Vendor.Name),
		zap.Int("lines", len(result.Lines)),
		zap.Int("pages", result.PageCount),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &result, nil
}

// buildRequestBody assembles the multipart payload: the document under the
// "document" field plus an optional "hints" field.
func buildRequestBody(document []byte, contentType, hints string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="document"; filename="document"`}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("extraction: building multipart body: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return nil, "", fmt.Errorf("extraction: building multipart body: %w", err)
	}

	if hints != "" {
		if err := writer.WriteField("hints", hints); err != nil {
			return nil, "", fmt.Errorf("extraction: building multipart body: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("extraction: building multipart body: %w", err)
	}

	return &buf, writer.Boundary(), nil
}
