package backend

import (
	"Go-Order-Intake/internal/logger"
	"Go-Order-Intake/pkg/compress"
	"Go-Order-Intake/pkg/record"
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	PathAnalyzeImage = "/api/analyze-image"
	PathParseOrder   = "/api/parse-order"
	PathSubmitOrders = "/api/submit-orders"

	FallbackAnalyzeError = "OCR 분석 실패"
	FallbackParseError   = "파싱 실패"
	FallbackSubmitError  = "저장 실패"
)

type (
	// Client talks to the analyze, parse and submit collaborators.
	Client interface {
		AnalyzeImage(ctx context.Context, imageData string) (record.Record, error)
		ParseOrder(ctx context.Context, text string) (record.Record, error)
		SubmitOrders(ctx context.Context, req SubmitRequest) (string, error)
	}

	SubmitRequest struct {
		Manager string
		Rows    [][]string
		Images  []compress.File
	}

	// Error is a collaborator reply with success=false, or one that could
	// not be read as an envelope.
	Error struct {
		Endpoint   string
		StatusCode int
		Message    string
	}

	envelope struct {
		Success bool          `json:"success"`
		Data    record.Record `json:"data,omitempty"`
		Message string        `json:"message,omitempty"`
		Error   string        `json:"error,omitempty"`
	}

	client struct {
		http *resty.Client
	}
)

func (e *Error) Error() string {
	return e.Message
}

// NewClient builds a client rooted at baseURL. A zero timeout leaves
// requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "order-intake/1.0")

	httpClient.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Log.Debug("collaborator response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", resp.Time()),
		)
		return nil
	})

	return &client{http: httpClient}
}

func (c *client) AnalyzeImage(ctx context.Context, imageData string) (record.Record, error) {
	env, err := c.postJSON(ctx, PathAnalyzeImage, map[string]string{"imageData": imageData}, FallbackAnalyzeError)
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &Error{Endpoint: PathAnalyzeImage, Message: fallback(env.Error, FallbackAnalyzeError)}
	}
	return env.Data, nil
}

func (c *client) ParseOrder(ctx context.Context, text string) (record.Record, error) {
	env, err := c.postJSON(ctx, PathParseOrder, map[string]string{"text": text}, FallbackParseError)
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &Error{Endpoint: PathParseOrder, Message: fallback(env.Error, FallbackParseError)}
	}
	return env.Data, nil
}

func (c *client) SubmitOrders(ctx context.Context, req SubmitRequest) (string, error) {
	rows, err := json.Marshal(req.Rows)
	if err != nil {
		return "", err
	}

	env := new(envelope)
	r := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"manager": req.Manager,
			"orders":  string(rows),
		}).
		SetResult(env).
		SetError(env)
	for _, img := range req.Images {
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		r.SetMultipartField("images", img.Name, contentType, bytes.NewReader(img.Data))
	}

	resp, err := r.Post(PathSubmitOrders)
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", &Error{Endpoint: PathSubmitOrders, StatusCode: resp.StatusCode(), Message: fallback(env.Error, FallbackSubmitError)}
	}
	return env.Message, nil
}

func (c *client) postJSON(ctx context.Context, path string, body any, fallbackMessage string) (*envelope, error) {
	env := new(envelope)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(env).
		SetError(env).
		Post(path)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &Error{Endpoint: path, StatusCode: resp.StatusCode(), Message: fallback(env.Error, fallbackMessage)}
	}
	return env, nil
}

func fallback(message, def string) string {
	if message == "" {
		return def
	}
	return message
}
