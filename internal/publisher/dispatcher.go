package publisher

import (
	"context"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/connections"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/models"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/platform"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/resilience"
	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/logger"
	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/ratelimit"
)

const opPublish = "publish"

// Dispatcher drives a single publish attempt against one platform: connection
// check, platform-specific formatting, then the publish call through the
// retry executor and circuit breaker. It holds no per-dispatch state and is
// safe to invoke concurrently for different platforms.
type Dispatcher struct {
	registry    *platform.Registry
	connections connections.Store
	retry       *resilience.Executor
	classifier  *resilience.Classifier
	limiter     *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewDispatcher creates a platform dispatcher
func NewDispatcher(
	registry *platform.Registry,
	conns connections.Store,
	retry *resilience.Executor,
	classifier *resilience.Classifier,
	limiter *ratelimit.MultiLimiter,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		connections: conns,
		retry:       retry,
		classifier:  classifier,
		limiter:     limiter,
		log:         log.WithComponent("dispatcher"),
	}
}

// Dispatch publishes content to one platform on behalf of a user. Failures
// are captured in the result, never raised.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, platformName string, content platform.Content) models.PostResult {
	result := models.PostResult{
		Platform: platformName,
		Status:   models.ResultFailed,
	}

	connected, err := d.connections.IsConnected(ctx, userID, platformName)
	if err != nil {
		return d.failed(result, err)
	}
	if !connected {
		return d.failed(result, &resilience.AuthenticationError{
			Platform: platformName,
			Reason:   "platform not connected",
		})
	}

	adapter, err := d.registry.Get(platformName)
	if err != nil {
		return d.failed(result, err)
	}

	if err := d.limiter.Wait(ctx, platformName); err != nil {
		return d.failed(result, err)
	}

	formatted, err := adapter.Format(ctx, content)
	if err != nil {
		return d.failed(result, err)
	}

	var resp *platform.PublishResponse
	err = d.retry.Execute(ctx, platformName, opPublish, userID, func(ctx context.Context) error {
		var publishErr error
		resp, publishErr = adapter.Publish(ctx, formatted)
		return publishErr
	})
	if err != nil {
		return d.failed(result, err)
	}

	result.Status = models.ResultSuccess
	result.ExternalID = resp.ExternalID
	result.URL = resp.URL

	d.log.Info().
		Str("platform", platformName).
		Str("user_id", userID).
		Str("external_id", resp.ExternalID).
		Msg("Dispatch succeeded")

	return result
}

func (d *Dispatcher) failed(result models.PostResult, err error) models.PostResult {
	record := d.classifier.Classify(err, result.Platform, 0)
	result.ErrorMessage = err.Error()
	result.ErrorCode = string(record.Kind)

	d.log.Error().
		Err(err).
		Str("platform", result.Platform).
		Str("kind", string(record.Kind)).
		Msg("Dispatch failed")

	return result
}
