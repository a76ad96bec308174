package detectionclient

import (
	"DetectionRelay/internal/entity"
	contextPkg "DetectionRelay/pkg/context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

const DefaultTimeout = 30 * time.Second

// StatusError is returned when the worker answers with anything but 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Detection service returned %d", e.StatusCode)
}

type RemoteResult struct {
	Success       bool               `json:"success"`
	Detections    []entity.Detection `json:"detections" validate:"dive"`
	ResultImage   string             `json:"result_image" validate:"required"`
	TotalObjects  int                `json:"total_objects" validate:"gte=0"`
	ThresholdUsed *float64           `json:"threshold_used"`
	Message       string             `json:"message"`
	NoDetections  bool               `json:"no_detections"`
}

type Client interface {
	Detect(ctx context.Context, filename string, content []byte) (*RemoteResult, error)
	FetchResult(ctx context.Context, name string) ([]byte, error)
	Health(ctx context.Context) error
}

type client struct {
	baseURL   string
	timeout   time.Duration
	validator *validator.Validate
}

func New(baseURL string, timeout time.Duration, validate *validator.Validate) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if validate == nil {
		validate = validator.New()
	}
	return &client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		validator: validate,
	}
}

// Detect forwards the upload as multipart field "file". The agent has no
// context support, so ctx only gates the call and carries the request id.
func (c *client) Detect(ctx context.Context, filename string, content []byte) (*RemoteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agent := fiber.Post(c.baseURL + "/detect")
	agent.Timeout(c.timeout)
	agent.Set(contextPkg.RequestIDHeader, contextPkg.GetRequestID(ctx))
	agent.FileData(&fiber.FormFile{
		Fieldname: "file",
		Name:      filename,
		Content:   content,
	})
	agent.MultipartForm(nil)

	code, body, err := c.do(agent)
	if err != nil {
		return nil, err
	}
	if code != fiber.StatusOK {
		return nil, &StatusError{StatusCode: code, Body: string(body)}
	}

	var result RemoteResult
	if err := jsoniter.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}
	if !result.Success {
		return nil, errors.New("detection service reported failure")
	}
	if err := c.validator.Struct(result); err != nil {
		return nil, fmt.Errorf("invalid detection response: %w", err)
	}

	return &result, nil
}

func (c *client) FetchResult(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agent := fiber.Get(c.baseURL + "/results/" + url.PathEscape(name))
	agent.Timeout(c.timeout)
	agent.Set(contextPkg.RequestIDHeader, contextPkg.GetRequestID(ctx))

	code, body, err := c.do(agent)
	if err != nil {
		return nil, err
	}
	if code != fiber.StatusOK {
		return nil, &StatusError{StatusCode: code, Body: string(body)}
	}
	return body, nil
}

func (c *client) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.Get(c.baseURL + "/health")
	agent.Timeout(c.timeout)

	code, body, err := c.do(agent)
	if err != nil {
		return err
	}
	if code != fiber.StatusOK {
		return &StatusError{StatusCode: code, Body: string(body)}
	}
	return nil
}

func (c *client) do(agent *fiber.Agent) (int, []byte, error) {
	if err := agent.Parse(); err != nil {
		return 0, nil, fmt.Errorf("failed to prepare request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("failed to reach detection service: %w", errors.Join(errs...))
	}
	return code, body, nil
}
