package service

import (
	"context"
	"time"

	geomodels "attendance/internal/geo/models"
	"attendance/internal/identity/fingerprint"
	"attendance/internal/rpc"
	rpcmodels "attendance/internal/rpc/models"
	"attendance/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Caller submits remote calls with retry.
type Caller interface {
	CallWithRetry(ctx context.Context, function string, params []any, maxRetries int, observer rpcmodels.ProgressObserver) (*rpcmodels.Result, error)
}

// DeviceResolver supplies the device id and the traits sent with a punch.
type DeviceResolver interface {
	GetDeviceID(ctx context.Context) (string, error)
	IP(ctx context.Context) string
	Profile() fingerprint.Profile
}

// Locator collects positioning samples.
type Locator interface {
	Sample(ctx context.Context, n int, interval time.Duration) ([]geomodels.Sample, error)
}

// Confirmer asks the user whether this device may be bound to their account.
type Confirmer interface {
	ConfirmBind(ctx context.Context, device string) (bool, error)
}

// AuditSink receives one event per settled action.
type AuditSink interface {
	Emit(ctx context.Context, event audit.Event) error
}

// NetworkStatus reports the current connectivity estimate.
type NetworkStatus interface {
	Quality() rpc.Quality
}
