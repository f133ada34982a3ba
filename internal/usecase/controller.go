package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"storage-visual/internal/domain"
	"storage-visual/internal/infra/tracer"
)

// Controller runs the four UI actions against a privilege-gated storage
// service. Get, Set and Remove each re-check privilege immediately before
// touching storage; anything other than Allowed is a quiet deny.
type Controller struct {
	service domain.StorageService
	gate    *PrivilegeGate
	surface *Surface
	bus     domain.EventBus
	logger  *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithEventBus publishes surface and operation events to bus.
func WithEventBus(bus domain.EventBus) ControllerOption {
	return func(c *Controller) { c.bus = bus }
}

// WithSurface shares an existing surface instead of creating one.
func WithSurface(s *Surface) ControllerOption {
	return func(c *Controller) { c.surface = s }
}

// NewController creates a controller bound to service.
func NewController(service domain.StorageService, logger *slog.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		service: service,
		gate:    NewPrivilegeGate(service),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.surface == nil {
		c.surface = NewSurface()
	}
	return c
}

// Surface returns the controller's UI state.
func (c *Controller) Surface() *Surface { return c.surface }

// Invoke dispatches a request to the matching operation. The returned error
// is non-nil only for Unexpected failures.
func (c *Controller) Invoke(ctx context.Context, req domain.OperationRequest) (domain.OperationResult, error) {
	var (
		res domain.OperationResult
		err error
	)
	switch req.Kind {
	case domain.OpStatusCheck:
		res, err = c.reportStatus(ctx, req)
	case domain.OpGet:
		res, err = c.get(ctx, req)
	case domain.OpSet:
		res, err = c.set(ctx, req)
	case domain.OpRemove:
		res, err = c.remove(ctx, req)
	default:
		return domain.OperationResult{RequestID: req.ID, Kind: req.Kind},
			domain.NewDomainError("Controller.Invoke", domain.ErrInvalidInput, fmt.Sprintf("unknown operation %q", req.Kind))
	}

	if err != nil {
		c.publish(ctx, domain.EventOperationError, req.ID, domain.OperationErrorPayload{
			Kind:  req.Kind,
			Key:   req.Key,
			Error: err.Error(),
			Code:  domain.ErrorCodeOf(err),
		})
		return res, err
	}
	c.publish(ctx, domain.EventOperationDone, req.ID, res)
	return res, nil
}

// ReportStatus renders the current privilege status into the status text.
// On failure the status text is left unchanged.
func (c *Controller) ReportStatus(ctx context.Context) (string, error) {
	res, err := c.Invoke(ctx, domain.NewOperationRequest(domain.OpStatusCheck, "", ""))
	return res.Value, err
}

// Get reads key. A storage failure is reported through the error indicator
// and OutcomeFailed, not through the returned error.
func (c *Controller) Get(ctx context.Context, key string) (domain.OperationResult, error) {
	return c.Invoke(ctx, domain.NewOperationRequest(domain.OpGet, key, ""))
}

// Set writes (key, value).
func (c *Controller) Set(ctx context.Context, key, value string) error {
	_, err := c.Invoke(ctx, domain.NewOperationRequest(domain.OpSet, key, value))
	return err
}

// Remove deletes key.
func (c *Controller) Remove(ctx context.Context, key string) error {
	_, err := c.Invoke(ctx, domain.NewOperationRequest(domain.OpRemove, key, ""))
	return err
}

// DismissError hides the error indicator if shown. Idempotent.
func (c *Controller) DismissError(ctx context.Context) {
	if c.surface.dismiss() {
		c.logger.Info("error indicator dismissed")
		c.publishSurface(ctx, "")
	}
}

func (c *Controller) reportStatus(ctx context.Context, req domain.OperationRequest) (domain.OperationResult, error) {
	ctx, span := c.startSpan(ctx, "visual.status", req)
	defer span.End()

	res := domain.OperationResult{RequestID: req.ID, Kind: req.Kind}
	status, err := c.gate.Check(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		return res, err
	}
	text := status.String()
	c.surface.setStatus(text)
	c.publishSurface(ctx, req.ID)

	res.Outcome = domain.OutcomeSuccess
	res.Value = text
	tracer.SetOK(span)
	return res, nil
}

func (c *Controller) get(ctx context.Context, req domain.OperationRequest) (domain.OperationResult, error) {
	ctx, span := c.startSpan(ctx, "visual.get", req)
	defer span.End()

	c.logger.Debug("storage get", "request_id", req.ID, "key", req.Key)
	res := domain.OperationResult{RequestID: req.ID, Kind: req.Kind}

	allowed, err := c.allowed(ctx, span, req)
	if err != nil || !allowed {
		if err == nil {
			res.Outcome = domain.OutcomeDenied
		}
		return res, err
	}

	value, err := c.service.Get(ctx, req.Key)
	if err != nil {
		if c.surface.getFailed(domain.IndicatorMessage) {
			c.logger.Info("error indicator shown", "request_id", req.ID, "key", req.Key, "error", err)
			c.publishSurface(ctx, req.ID)
		}
		res.Outcome = domain.OutcomeFailed
		res.Reason = err.Error()
		span.SetAttributes(tracer.StringAttr("outcome", string(res.Outcome)))
		tracer.RecordError(span, err)
		return res, nil
	}

	if c.surface.getSucceeded(value) {
		c.logger.Info("error indicator cleared", "request_id", req.ID)
	}
	c.publishSurface(ctx, req.ID)

	res.Outcome = domain.OutcomeSuccess
	res.Value = value
	tracer.SetOK(span)
	return res, nil
}

func (c *Controller) set(ctx context.Context, req domain.OperationRequest) (domain.OperationResult, error) {
	ctx, span := c.startSpan(ctx, "visual.set", req)
	defer span.End()

	c.logger.Debug("storage set", "request_id", req.ID, "key", req.Key)
	return c.mutate(ctx, span, req, func(ctx context.Context) error {
		return c.service.Set(ctx, req.Key, req.Value)
	})
}

func (c *Controller) remove(ctx context.Context, req domain.OperationRequest) (domain.OperationResult, error) {
	ctx, span := c.startSpan(ctx, "visual.remove", req)
	defer span.End()

	c.logger.Debug("storage remove", "request_id", req.ID, "key", req.Key)
	return c.mutate(ctx, span, req, func(ctx context.Context) error {
		return c.service.Remove(ctx, req.Key)
	})
}

// mutate is the shared gate-then-write path of set and remove. Write
// failures are Unexpected and never touch the surface.
func (c *Controller) mutate(ctx context.Context, span trace.Span, req domain.OperationRequest, write func(context.Context) error) (domain.OperationResult, error) {
	res := domain.OperationResult{RequestID: req.ID, Kind: req.Kind}

	allowed, err := c.allowed(ctx, span, req)
	if err != nil || !allowed {
		if err == nil {
			res.Outcome = domain.OutcomeDenied
		}
		return res, err
	}

	if err := write(ctx); err != nil {
		err = domain.UnexpectedError("Controller."+string(req.Kind), err)
		tracer.RecordError(span, err)
		return res, err
	}

	res.Outcome = domain.OutcomeSuccess
	tracer.SetOK(span)
	return res, nil
}

// allowed runs the privilege gate. A false result with nil error is a quiet
// deny.
func (c *Controller) allowed(ctx context.Context, span trace.Span, req domain.OperationRequest) (bool, error) {
	status, err := c.gate.Check(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		return false, err
	}
	span.SetAttributes(tracer.StringAttr("privilege", status.String()))
	if !status.Allowed() {
		c.logger.Debug("quiet deny", "request_id", req.ID, "op", string(req.Kind), "status", status.String())
		span.SetAttributes(tracer.StringAttr("outcome", string(domain.OutcomeDenied)))
		return false, nil
	}
	return true, nil
}

func (c *Controller) startSpan(ctx context.Context, name string, req domain.OperationRequest) (context.Context, trace.Span) {
	return tracer.StartSpan(ctx, name, tracer.RequestAttrs(req.ID, req.Key))
}

func (c *Controller) publishSurface(ctx context.Context, requestID string) {
	c.publish(ctx, domain.EventSurfaceChanged, requestID, c.surface.Snapshot())
}

func (c *Controller) publish(ctx context.Context, typ domain.EventType, requestID string, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ctx, domain.NewEvent(typ, requestID, payload))
}
