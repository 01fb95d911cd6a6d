package geo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"attendance/internal/geo/models"
)

// Provider performs one positioning request. Implementations are expected to
// give up after timeout; they are not required to honor ctx cancellation.
type Provider interface {
	CurrentPosition(ctx context.Context, timeout time.Duration) (models.Position, error)
}

// PositionErrorCode mirrors the platform geolocation error codes.
type PositionErrorCode int

const (
	PermissionDenied    PositionErrorCode = 1
	PositionUnavailable PositionErrorCode = 2
	Timeout             PositionErrorCode = 3
)

func (c PositionErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "unavailable"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// PositionError is a failed positioning request.
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position error %d (%s): %s", e.Code, e.Code, e.Message)
}

// DefaultAccuracy is the accuracy in meters assumed for a caller-supplied
// position that does not state one.
const DefaultAccuracy = 20

// ValidCoordinates reports whether lat and lng are finite and in range.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// StaticProvider reports a fixed position. It backs the CLI and local API
// when coordinates are supplied by the caller instead of a sensor.
type StaticProvider struct {
	Lat      float64
	Lng      float64
	Accuracy float64
	Clock    clockwork.Clock
}

func (p StaticProvider) CurrentPosition(ctx context.Context, _ time.Duration) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, &PositionError{Code: Timeout, Message: err.Error()}
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return models.Position{
		Lat:       p.Lat,
		Lng:       p.Lng,
		Accuracy:  p.Accuracy,
		Timestamp: clock.Now().UnixMilli(),
	}, nil
}

type positionKey struct{}

// WithPosition attaches a caller-supplied fix to ctx for RequestProvider.
func WithPosition(ctx context.Context, p models.Position) context.Context {
	return context.WithValue(ctx, positionKey{}, p)
}

// PositionFrom returns the fix attached by WithPosition.
func PositionFrom(ctx context.Context) (models.Position, bool) {
	p, ok := ctx.Value(positionKey{}).(models.Position)
	return p, ok
}

// RequestProvider reports the position attached to each request's context,
// so one long-lived sampler can serve callers at different locations. A
// request without a position is unavailable.
type RequestProvider struct {
	Clock clockwork.Clock
}

func (p RequestProvider) CurrentPosition(ctx context.Context, timeout time.Duration) (models.Position, error) {
	pos, ok := PositionFrom(ctx)
	if !ok {
		return models.Position{}, &PositionError{Code: PositionUnavailable, Message: "no position supplied with the request"}
	}
	return StaticProvider{Lat: pos.Lat, Lng: pos.Lng, Accuracy: pos.Accuracy, Clock: p.Clock}.CurrentPosition(ctx, timeout)
}
