package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"attendance/internal/checkin/metrics"
	"attendance/internal/checkin/models"
	"attendance/internal/coordinator"
	"attendance/internal/geo"
	geomodels "attendance/internal/geo/models"
	"attendance/internal/rpc"
	rpcmodels "attendance/internal/rpc/models"
	dErrors "attendance/pkg/domain-errors"
	"attendance/pkg/platform/audit"
	"attendance/pkg/platform/correlation"
)

// Service runs the attendance actions end to end: gate, binding check,
// identity, location, submission, audit.
type Service struct {
	caller      Caller
	identity    DeviceResolver
	locator     Locator
	coordinator *coordinator.Coordinator

	confirmer      Confirmer
	audit          AuditSink
	network        NetworkStatus
	observer       rpcmodels.ProgressObserver
	maxRetries     int
	sampleCount    int
	sampleInterval time.Duration
	appVersion     string
	clock          clockwork.Clock
	logger         *slog.Logger
	metrics        *metrics.Metrics

	background sync.WaitGroup
}

type Option func(*Service)

func WithConfirmer(c Confirmer) Option {
	return func(s *Service) {
		s.confirmer = c
	}
}

func WithAudit(sink AuditSink) Option {
	return func(s *Service) {
		s.audit = sink
	}
}

// WithNetworkStatus enables the offline fast-fail.
func WithNetworkStatus(n NetworkStatus) Option {
	return func(s *Service) {
		s.network = n
	}
}

func WithProgressObserver(o rpcmodels.ProgressObserver) Option {
	return func(s *Service) {
		s.observer = o
	}
}

func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

func WithSampling(n int, interval time.Duration) Option {
	return func(s *Service) {
		if n > 0 {
			s.sampleCount = n
		}
		if interval >= 0 {
			s.sampleInterval = interval
		}
	}
}

func WithAppVersion(v string) Option {
	return func(s *Service) {
		s.appVersion = v
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(caller Caller, identity DeviceResolver, locator Locator, coord *coordinator.Coordinator, opts ...Option) *Service {
	s := &Service{
		caller:         caller,
		identity:       identity,
		locator:        locator,
		coordinator:    coord,
		maxRetries:     rpc.DefaultMaxRetries,
		sampleCount:    geo.DefaultSampleCount,
		sampleInterval: geo.DefaultSampleInterval,
		clock:          clockwork.NewRealClock(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until fire-and-forget work such as click logging has finished.
func (s *Service) Wait() {
	s.background.Wait()
}

// CheckDeviceBinding asks the backend whether this device may act for code.
// For punches an unbound device is offered for binding through the
// Confirmer; bindDevice reports that the user accepted. A refusal settles as
// a cancellation.
func (s *Service) CheckDeviceBinding(ctx context.Context, code string, purpose models.Purpose) (bindDevice bool, err error) {
	res, err := s.caller.CallWithRetry(ctx, "checkDeviceBinding", []any{code, string(purpose)}, s.maxRetries, s.observer)
	if err != nil {
		return false, err
	}
	if res.Status != rpcmodels.StatusError {
		return false, nil
	}

	switch res.Error {
	case ReasonNotBound:
		if !purpose.Bindable() || s.confirmer == nil {
			return false, unauthorized(res)
		}
		return s.confirmBinding(ctx, code)
	case ReasonNotInAuthList, ReasonDeviceMismatch, ReasonInvalidUser:
		return false, unauthorized(res)
	default:
		return false, res.Err()
	}
}

func (s *Service) confirmBinding(ctx context.Context, code string) (bool, error) {
	device := s.identity.Profile().DisplayName()
	ok, err := s.confirmer.ConfirmBind(ctx, device)
	if err != nil {
		if ctx.Err() != nil {
			return false, dErrors.Wrap(err, dErrors.CodeAborted, "operation cancelled")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "binding confirmation failed")
	}
	if !ok {
		return false, dErrors.New(dErrors.CodeAborted, "device binding declined")
	}
	s.metrics.IncrementBindings()
	s.logger.InfoContext(ctx, "device binding accepted", "device", device)
	s.emit(ctx, audit.Event{Action: audit.ActionBind, DeviceCode: code, Message: device})
	return true, nil
}

// Punch records a clock-in or clock-out. The operation lock is held from
// input validation through submission and released on every exit path.
func (s *Service) Punch(ctx context.Context, req models.PunchRequest) (*models.PunchResult, error) {
	if !req.Direction.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown punch direction")
	}
	trigger, purpose := coordinator.TriggerClockIn, models.PurposeClockIn
	if req.Direction == models.DirectionOut {
		trigger, purpose = coordinator.TriggerClockOut, models.PurposeClockOut
	}

	var (
		result   *models.PunchResult
		deviceID string
	)
	start := s.clock.Now()
	err := s.coordinator.Run(ctx, trigger, func(ctx context.Context) error {
		if err := s.precheck(req.Code); err != nil {
			return err
		}
		bind, err := s.CheckDeviceBinding(ctx, req.Code, purpose)
		if err != nil {
			return err
		}
		if deviceID, err = s.identity.GetDeviceID(ctx); err != nil {
			return err
		}
		location, err := s.locate(ctx)
		if err != nil {
			return err
		}

		info, err := s.identity.Profile().Info(s.appVersion).JSON()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "device info snapshot failed")
		}
		ip := s.identity.IP(ctx)
		evidence := []models.Evidence{models.NewEvidence(location, s.clock.Now().UnixMilli())}

		res, err := s.caller.CallWithRetry(ctx, "gpsCheckin", []any{
			req.Code, info, string(req.Direction), evidence, req.Force, bind, deviceID, ip, info,
		}, s.maxRetries, s.observer)
		if err != nil {
			return err
		}
		if res.Status == rpcmodels.StatusError {
			return punchRejection(res)
		}

		result = &models.PunchResult{
			Direction: req.Direction,
			Message:   res.Message,
			Location:  location,
			DeviceID:  deviceID,
			Bound:     bind,
		}
		if detail, ok := res.CheckinDetail(); ok {
			result.Detail = detail
		}
		return nil
	})
	s.settle(ctx, audit.ActionPunch, trigger, req.Code, deviceID, start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TestLocation samples the position and asks the backend how it relates to
// the configured check-in areas. Warnings are reports, not failures.
func (s *Service) TestLocation(ctx context.Context, code string) (*models.LocationReport, error) {
	var report *models.LocationReport
	start := s.clock.Now()
	err := s.coordinator.Run(ctx, coordinator.TriggerTest, func(ctx context.Context) error {
		if err := s.precheck(code); err != nil {
			return err
		}
		if _, err := s.CheckDeviceBinding(ctx, code, models.PurposeLocationTest); err != nil {
			return err
		}
		location, err := s.locate(ctx)
		if err != nil {
			return err
		}

		evidence := []models.Evidence{models.NewEvidence(location, s.clock.Now().UnixMilli())}
		res, err := s.caller.CallWithRetry(ctx, "testLocationWithAuth", []any{code, evidence}, s.maxRetries, s.observer)
		if err != nil {
			return err
		}
		if res.Status == rpcmodels.StatusError {
			return res.Err()
		}
		report = &models.LocationReport{
			Status:   res.Status,
			Message:  res.Message,
			HTML:     payloadString(res, "html"),
			Location: location,
		}
		return nil
	})
	s.settle(ctx, audit.ActionLocationTest, coordinator.TriggerTest, code, "", start, err)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// QueryAttendance fetches this month's attendance records for code.
func (s *Service) QueryAttendance(ctx context.Context, code string) (*models.AttendanceReport, error) {
	var report *models.AttendanceReport
	start := s.clock.Now()
	err := s.coordinator.Run(ctx, coordinator.TriggerQuery, func(ctx context.Context) error {
		if !models.ValidCode(code) {
			return errInvalidCode
		}
		if _, err := s.CheckDeviceBinding(ctx, code, models.PurposeQuery); err != nil {
			return err
		}
		res, err := s.caller.CallWithRetry(ctx, "queryMonthlyAttendance", []any{code}, s.maxRetries, s.observer)
		if err != nil {
			return err
		}
		if res.Status == rpcmodels.StatusError {
			return res.Err()
		}
		data, ok := res.Payload["data"]
		if res.Status != rpcmodels.StatusSuccess || !ok || data == nil {
			return dErrors.New(dErrors.CodeTerminal, "attendance records are malformed")
		}
		report = &models.AttendanceReport{
			UserName:    payloadString(res, "userName"),
			RecordCount: payloadInt(res, "recordCount"),
			Records:     data,
			HTML:        payloadString(res, "html"),
		}
		return nil
	})
	s.settle(ctx, audit.ActionQuery, coordinator.TriggerQuery, code, "", start, err)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// SubmitForm passes an already validated form to its backend function after
// the binding check. fields are sent positionally after code.
func (s *Service) SubmitForm(ctx context.Context, code string, kind models.FormKind, fields []any) (*models.FormReceipt, error) {
	function := kind.Function()
	if function == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown form kind")
	}

	var receipt *models.FormReceipt
	start := s.clock.Now()
	err := s.coordinator.Run(ctx, coordinator.TriggerForm, func(ctx context.Context) error {
		if !models.ValidCode(code) {
			return errInvalidCode
		}
		if _, err := s.CheckDeviceBinding(ctx, code, kind.Purpose()); err != nil {
			return err
		}
		params := append([]any{code}, fields...)
		res, err := s.caller.CallWithRetry(ctx, function, params, s.maxRetries, s.observer)
		if err != nil {
			return err
		}
		if res.Status == rpcmodels.StatusError {
			return res.Err()
		}
		receipt = &models.FormReceipt{Kind: kind, Message: res.Message}
		return nil
	})
	s.settle(ctx, audit.ActionForm, coordinator.TriggerForm, code, "", start, err)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// LogClick records a button click in the background. It never blocks and
// never fails the caller; the call outlives ctx cancellation.
func (s *Service) LogClick(ctx context.Context, code, target string) {
	if code == "" {
		code = "0000"
	}
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		start := s.clock.Now()
		res, err := s.caller.CallWithRetry(ctx, "logButtonClick", []any{code, target}, s.maxRetries, nil)
		if err == nil {
			err = res.Err()
		}
		if err != nil {
			s.logger.DebugContext(ctx, "click not logged", "target", target, "error", err)
		}
		s.emit(ctx, audit.Event{
			Action:         audit.ActionClick,
			Trigger:        target,
			DeviceCode:     code,
			Classification: string(dErrors.Classify(err)),
			Latency:        s.clock.Since(start),
		})
	}()
}

func (s *Service) precheck(code string) error {
	if !models.ValidCode(code) {
		return errInvalidCode
	}
	if s.network != nil && s.network.Quality() == rpc.QualityOffline {
		return dErrors.WithReason(dErrors.CodeTerminal, ReasonOffline, "no network connection, check your network and try again")
	}
	return nil
}

func (s *Service) locate(ctx context.Context) (geomodels.Consensus, error) {
	samples, err := s.locator.Sample(ctx, s.sampleCount, s.sampleInterval)
	if err != nil {
		return geomodels.Consensus{}, err
	}
	location := geo.Consolidate(samples)
	if !location.Usable() {
		return geomodels.Consensus{}, dErrors.New(dErrors.CodeTerminal, "unable to determine your location")
	}
	return location, nil
}

func (s *Service) settle(ctx context.Context, action audit.Action, trigger coordinator.Trigger, code, deviceID string, start time.Time, err error) {
	latency := s.clock.Since(start)
	class := dErrors.Classify(err)
	s.metrics.ObserveOutcome(string(action), string(class), latency.Seconds())

	event := audit.Event{
		Action:         action,
		Trigger:        string(trigger),
		DeviceCode:     code,
		DeviceID:       deviceID,
		Classification: string(class),
		Latency:        latency,
	}
	if err != nil {
		event.Reason = dErrors.ReasonOf(err)
		event.Message = dErrors.MessageOf(err)
		s.logger.InfoContext(ctx, "attendance action failed", "action", action, "classification", class, "error", err)
	}
	s.emit(ctx, event)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if id, ok := correlation.ID(ctx); ok {
		event.CorrelationID = id
	}
	if err := s.audit.Emit(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "audit event dropped", "action", event.Action, "error", err)
	}
}

func payloadString(res *rpcmodels.Result, key string) string {
	v, _ := res.Payload[key].(string)
	return v
}

func payloadInt(res *rpcmodels.Result, key string) int {
	switch v := res.Payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
