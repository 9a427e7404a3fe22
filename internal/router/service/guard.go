package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/circuit"
	"custody/pkg/platform/retry"
)

// Guarded module names, used for breakers, metrics and span names.
const (
	moduleReserve    = "reserve"
	moduleToken      = "token"
	moduleCompliance = "compliance"
)

// call runs fn against module under the retry policy and the module's breaker.
// Domain rejections mean the module answered and do not count against it.
func (s *Service) call(ctx context.Context, module, action string, policy retry.Policy, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, module+"."+action,
		trace.WithAttributes(attribute.String("custody.module", module)))
	defer span.End()

	breaker := s.breakers[module]
	if !breaker.Allow() {
		s.metrics.IncModuleCall(module, "short_circuit")
		err := dErrors.New(dErrors.CodeExternalCallFailure, module+" module unavailable: circuit open").
			WithHint("retry later")
		span.SetStatus(codes.Error, "circuit open")
		return err
	}

	err := retry.Do(ctx, policy, fn)
	if err != nil && isModuleFailure(err) {
		s.metrics.IncModuleCall(module, "failure")
		_, change := breaker.RecordFailure()
		s.breakerChanged(ctx, breaker, change)
		if !dErrors.HasCode(err, dErrors.CodeExternalCallFailure) {
			err = dErrors.Wrap(err, dErrors.CodeExternalCallFailure, module+" "+action+" failed")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return err
	}

	_, change := breaker.RecordSuccess()
	s.breakerChanged(ctx, breaker, change)
	if err != nil {
		s.metrics.IncModuleCall(module, "rejected")
		span.SetAttributes(attribute.String("custody.rejection", string(dErrors.CodeOf(err))))
		return err
	}
	s.metrics.IncModuleCall(module, "ok")
	return nil
}

func (s *Service) breakerChanged(ctx context.Context, b *circuit.Breaker, change circuit.Change) {
	switch {
	case change.Opened:
		s.metrics.SetBreakerOpen(b.Name(), true)
		s.logger.WarnContext(ctx, "circuit breaker opened", "module", b.Name())
	case change.Closed:
		s.metrics.SetBreakerOpen(b.Name(), false)
		s.logger.InfoContext(ctx, "circuit breaker closed", "module", b.Name())
	}
}

func isModuleFailure(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeExternalCallFailure) ||
		dErrors.HasCode(err, dErrors.CodeTimeout) ||
		dErrors.CodeOf(err) == dErrors.CodeInternal
}
