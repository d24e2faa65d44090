package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/internal/config"
	"github.com/openkcm/txsession/internal/middleware/responsewriter"
)

var (
	counter   metric.Int64Counter
	hist      metric.Int64Histogram
	txCounter metric.Int64Counter
)

func initMeters(ctx context.Context, cfg *config.Config) error {
	meter := otel.Meter(
		"txsession/"+cfg.Application.Name,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	)

	var err error

	counter, err = meter.Int64Counter(
		"http.request_count",
		metric.WithDescription("Incoming request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating request_count meter")
	}

	hist, err = meter.Int64Histogram(
		"http.duration",
		metric.WithDescription("Incoming end to end duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating duration meter")
	}

	txCounter, err = meter.Int64Counter(
		"db.transaction_count",
		metric.WithDescription("Finished request transactions by outcome"),
		metric.WithUnit("transaction"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating transaction_count meter")
	}

	return nil
}

// newTraceMiddleware returns a constructor of per operation middlewares
// adding a request id, a span and request metrics.
func newTraceMiddleware(cfg *config.Config) func(operationID string) func(http.Handler) http.Handler {
	return func(operationID string) func(http.Handler) http.Handler {
		traceAttrs := otlp.CreateAttributesFrom(cfg.Application, attribute.String(commoncfg.AttrOperation, operationID))
		tracer := otel.Tracer(operationID, trace.WithInstrumentationAttributes(traceAttrs...))

		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := slogctx.With(r.Context(),
					commoncfg.AttrRequestID, uuid.NewString(),
					commoncfg.AttrOperation, operationID,
				)

				parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))

				ctx, span := tracer.Start(parentCtx, operationID+"-span", trace.WithAttributes(traceAttrs...))
				defer span.End()

				rec, ok := w.(*responsewriter.Recorder)
				if !ok {
					rec = responsewriter.NewRecorder(w)
				}

				requestStartTime := time.Now()

				defer func() {
					elapsedTime := time.Since(requestStartTime)

					attrs := metric.WithAttributes(
						otlp.CreateAttributesFrom(cfg.Application,
							attribute.String("userAgent", r.UserAgent()),
							attribute.String(commoncfg.AttrOperation, operationID),
							attribute.String("status", strconv.Itoa(rec.Status())),
						)...,
					)

					counter.Add(ctx, 1, attrs)
					hist.Record(ctx, elapsedTime.Milliseconds(), attrs)
				}()

				slogctx.Info(ctx, fmt.Sprintf("Processing %s request", operationID))
				next.ServeHTTP(rec, r.WithContext(ctx))
				slogctx.Info(ctx, fmt.Sprintf("Finished %s request", operationID), "status", rec.Status())
			})
		}
	}
}
