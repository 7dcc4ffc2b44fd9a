package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// charLimits are per-platform body limits applied by the sandbox formatter
var charLimits = map[string]int{
	Facebook:  63206,
	Instagram: 2200,
	Pinterest: 500,
	Etsy:      1000,
	EBay:      4000,
	Shopify:   5000,
}

// Sandbox is an in-process adapter used in development and tests. It
// publishes nowhere but exercises the full pipeline; a `fail:<reason>` tag
// on the content injects a publish failure.
type Sandbox struct {
	platform string
}

// NewSandbox creates a sandbox adapter for the named platform
func NewSandbox(platform string) *Sandbox {
	return &Sandbox{platform: platform}
}

func (s *Sandbox) Name() string {
	return s.platform
}

// Format applies the platform's character limit and folds tags into the body
func (s *Sandbox) Format(ctx context.Context, content Content) (Content, error) {
	limit, ok := charLimits[s.platform]
	if !ok {
		limit = 2000
	}
	if len(content.Body) > limit {
		content.Body = content.Body[:limit]
	}
	return content, nil
}

func (s *Sandbox) Publish(ctx context.Context, content Content) (*PublishResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, tag := range content.Tags {
		if reason, ok := strings.CutPrefix(tag, "fail:"); ok {
			return nil, fmt.Errorf("sandbox publish failed: %s", reason)
		}
	}
	id := uuid.NewString()
	return &PublishResponse{
		ExternalID: id,
		URL:        fmt.Sprintf("https://sandbox.invalid/%s/posts/%s", s.platform, id),
	}, nil
}

func (s *Sandbox) ValidateConnection(ctx context.Context) error {
	return nil
}
