package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"attendance/internal/checkin/models"
	"attendance/internal/coordinator"
	idmodels "attendance/internal/identity/models"
	"attendance/internal/rpc"
	"attendance/pkg/platform/middleware/metadata"
)

// Attendance is the action surface the local UI drives.
type Attendance interface {
	Punch(ctx context.Context, req models.PunchRequest) (*models.PunchResult, error)
	TestLocation(ctx context.Context, code string) (*models.LocationReport, error)
	QueryAttendance(ctx context.Context, code string) (*models.AttendanceReport, error)
	SubmitForm(ctx context.Context, code string, kind models.FormKind, fields []any) (*models.FormReceipt, error)
	LogClick(ctx context.Context, code, target string)
}

// Devices exposes the resolved device identity.
type Devices interface {
	Identity(ctx context.Context) (idmodels.DeviceIdentity, error)
	ValidateStoredIDs(ctx context.Context) (idmodels.Report, error)
}

// Triggers exposes the busy flag and cooling set.
type Triggers interface {
	State() coordinator.State
}

// Network exposes the rolling connectivity estimate.
type Network interface {
	Quality() rpc.Quality
}

// Handler is the thin HTTP layer. It delegates to the services without
// embedding business logic.
type Handler struct {
	attendance Attendance
	devices    Devices
	triggers   Triggers
	network    Network
	logger     *slog.Logger
}

func NewHandler(attendance Attendance, devices Devices, triggers Triggers, network Network, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		attendance: attendance,
		devices:    devices,
		triggers:   triggers,
		network:    network,
		logger:     logger,
	}
}

// NewRouter wires the local API. metricsHandler may be nil.
func NewRouter(h *Handler, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", h.handleHealth)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/punch", h.handlePunch)
		v1.Post("/location-test", h.handleLocationTest)
		v1.Get("/attendance", h.handleAttendance)
		v1.Post("/forms/{kind}", h.handleForm)
		v1.Post("/clicks", h.handleClick)
		v1.Get("/device-id", h.handleDeviceID)
		v1.Post("/device-id/validate", h.handleValidate)
		v1.Get("/triggers", h.handleTriggers)
		v1.Get("/network", h.handleNetwork)
	})
	return r
}
