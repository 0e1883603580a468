package usecases

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/samirrijal/gympass/internal/core/usecases")
