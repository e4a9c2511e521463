package order

import (
	"Go-Order-Intake/domain"
	"Go-Order-Intake/entities"
	"Go-Order-Intake/internal/logger"
	"Go-Order-Intake/internal/metrics"
	"Go-Order-Intake/internal/utils/storage"
	"Go-Order-Intake/pkg/backend"
	"Go-Order-Intake/pkg/compress"
	"Go-Order-Intake/pkg/record"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultAnalysisTimeout = 60 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
	DefaultStaggerInterval = 500 * time.Millisecond

	archiveFolder = "receipts"
)

type (
	OrderService interface {
		CreateForm(ctx context.Context) (domain.FormResponse, error)
		GetForm(ctx context.Context, formID string) (domain.FormResponse, error)
		SelectManager(ctx context.Context, formID string, req domain.SelectManagerRequest) (domain.FormResponse, error)
		AddOrder(ctx context.Context, formID string) (domain.FormResponse, error)
		CopyLastOrder(ctx context.Context, formID string) (domain.FormResponse, error)
		RemoveOrder(ctx context.Context, formID string, orderID int64) (domain.FormResponse, error)
		AttachImage(ctx context.Context, formID string, orderID int64, file compress.File) (domain.FormResponse, error)
		BulkAttach(ctx context.Context, formID string, files []compress.File) (domain.FormResponse, error)
		RetryAnalysis(ctx context.Context, formID string, orderID int64) (domain.FormResponse, error)
		UpdateAutoField(ctx context.Context, formID string, orderID int64, req domain.UpdateAutoFieldRequest) (domain.FormResponse, error)
		UpdateManualText(ctx context.Context, formID string, orderID int64, req domain.UpdateManualTextRequest) (domain.FormResponse, error)
		ApplyManual(ctx context.Context, formID string, orderID int64) (domain.FormResponse, error)
		EditManual(ctx context.Context, formID string, orderID int64) (domain.FormResponse, error)
		Submit(ctx context.Context, formID string) (domain.SubmitResponse, error)
		GetSubmissions(ctx context.Context, manager string, page, limit int) ([]domain.SubmissionResponse, int64, error)
		Managers() domain.ManagersResponse

		// Close stops pending analyses and background work and waits for them.
		Close()
	}

	Config struct {
		Policy          Policy
		AnalysisTimeout time.Duration
		// RequestTimeout bounds the parse and submit calls.
		RequestTimeout  time.Duration
		StaggerInterval time.Duration
		// FormTTL bounds how long an idle form is kept; zero keeps forms forever.
		FormTTL time.Duration
	}

	orderService struct {
		store     *Store
		backend   backend.Client
		repo      SubmissionRepository
		archive   storage.AwsS3
		cfg       Config
		ctx       context.Context
		cancel    context.CancelFunc
		wg        sync.WaitGroup
		closeOnce sync.Once
	}
)

// NewOrderService wires the service. repo and archive may be nil, in which
// case submissions are not logged or archived.
func NewOrderService(repo SubmissionRepository, client backend.Client, archive storage.AwsS3, cfg Config) OrderService {
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.StaggerInterval < 0 {
		cfg.StaggerInterval = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &orderService{
		store:   NewStore(),
		backend: client,
		repo:    repo,
		archive: archive,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}

	if cfg.FormTTL > 0 {
		s.wg.Add(1)
		go s.janitor()
	}
	return s
}

func (s *orderService) CreateForm(ctx context.Context) (domain.FormResponse, error) {
	return toFormResponse(s.store.Create()), nil
}

func (s *orderService) GetForm(ctx context.Context, formID string) (domain.FormResponse, error) {
	id, err := parseFormID(formID)
	if err != nil {
		return domain.FormResponse{}, err
	}
	f, err := s.store.Get(id)
	if err != nil {
		return domain.FormResponse{}, err
	}
	return toFormResponse(f), nil
}

func (s *orderService) SelectManager(ctx context.Context, formID string, req domain.SelectManagerRequest) (domain.FormResponse, error) {
	if !s.cfg.Policy.AllowsManager(req.Manager) {
		return domain.FormResponse{}, domain.ErrUnknownManager
	}
	return s.update(formID, func(f *Form) error {
		f.Manager = req.Manager
		return nil
	})
}

func (s *orderService) AddOrder(ctx context.Context, formID string) (domain.FormResponse, error) {
	return s.update(formID, func(f *Form) error {
		f.Add()
		return nil
	})
}

func (s *orderService) CopyLastOrder(ctx context.Context, formID string) (domain.FormResponse, error) {
	return s.update(formID, func(f *Form) error {
		f.CopyLast()
		return nil
	})
}

func (s *orderService) RemoveOrder(ctx context.Context, formID string, orderID int64) (domain.FormResponse, error) {
	return s.update(formID, func(f *Form) error {
		return f.Remove(orderID)
	})
}

func (s *orderService) AttachImage(ctx context.Context, formID string, orderID int64, file compress.File) (domain.FormResponse, error) {
	id, err := parseFormID(formID)
	if err != nil {
		return domain.FormResponse{}, err
	}
	if !isImage(file) {
		return domain.FormResponse{}, domain.ErrInvalidImageFormat
	}

	file = s.downscale(file)

	var job analysisJob
	f, err := s.edit(id, func(f *Form) error {
		if _, err := f.Update(orderID, func(it Item) (Item, error) { return it.Attach(file), nil }); err != nil {
			return err
		}
		var err error
		job, err = begin(f, orderID, Item.StartAnalysis)
		return err
	})
	if err != nil {
		return domain.FormResponse{}, err
	}

	s.goAnalyze(id, job)
	return toFormResponse(f), nil
}

func (s *orderService) BulkAttach(ctx context.Context, formID string, files []compress.File) (domain.FormResponse, error) {
	id, err := parseFormID(formID)
	if err != nil {
		return domain.FormResponse{}, err
	}
	if len(files) == 0 {
		return domain.FormResponse{}, domain.ErrNoImages
	}
	for _, file := range files {
		if !isImage(file) {
			return domain.FormResponse{}, domain.ErrInvalidImageFormat
		}
	}

	downscaled, results, err := compress.DownscaleAll(ctx, files)
	if err != nil {
		return domain.FormResponse{}, err
	}
	for _, r := range results {
		metrics.Get().ImagesCompressed.WithLabelValues(string(r)).Inc()
	}

	var ids []int64
	f, err := s.edit(id, func(f *Form) error {
		ids = ids[:0]
		if len(f.Items) == 1 && f.Items[0].Pristine() {
			f.Items = nil
		}
		for _, file := range downscaled {
			it := f.Add().Attach(file)
			if err := f.Replace(it); err != nil {
				return err
			}
			ids = append(ids, it.ID)
		}
		return nil
	})
	if err != nil {
		return domain.FormResponse{}, err
	}

	for i, orderID := range ids {
		s.schedule(id, orderID, time.Duration(i)*s.cfg.StaggerInterval)
	}
	return toFormResponse(f), nil
}

func (s *orderService) RetryAnalysis(ctx context.Context, formID string, orderID int64) (domain.FormResponse, error) {
	id, err := parseFormID(formID)
	if err != nil {
		return domain.FormResponse{}, err
	}

	var job analysisJob
	f, err := s.edit(id, func(f *Form) error {
		var err error
		job, err = begin(f, orderID, Item.Retry)
		return err
	})
	if err != nil {
		return domain.FormResponse{}, err
	}

	s.goAnalyze(id, job)
	return toFormResponse(f), nil
}

func (s *orderService) UpdateAutoField(ctx context.Context, formID string, orderID int64, req domain.UpdateAutoFieldRequest) (domain.FormResponse, error) {
	if !slices.Contains(record.CanonicalFields, req.Field) {
		return domain.FormResponse{}, domain.ErrUnknownField
	}
	return s.update(formID, func(f *Form) error {
		_, err := f.Update(orderID, func(it Item) (Item, error) {
			return it.SetAutoField(req.Field, req.Value)
		})
		return err
	})
}

func (s *orderService) UpdateManualText(ctx context.Context, formID string, orderID int64, req domain.UpdateManualTextRequest) (domain.FormResponse, error) {
	return s.update(formID, func(f *Form) error {
		_, err := f.Update(orderID, func(it Item) (Item, error) {
			return it.SetManualText(req.Text)
		})
		return err
	})
}

// ApplyManual parses template-shaped text locally and hands anything else
// to the parse collaborator. While that call runs the card is Parsing.
func (s *orderService) ApplyManual(ctx context.Context, formID string, orderID int64) (domain.FormResponse, error) {
	id, err := parseFormID(formID)
	if err != nil {
		return domain.FormResponse{}, err
	}

	var (
		text string
		gen  uint64
	)
	f, err := s.edit(id, func(f *Form) error {
		it, err := f.Item(orderID)
		if err != nil {
			return err
		}
		text = it.ManualText()
		if record.IsTemplate(text) {
			_, err = f.Update(orderID, Item.ApplyLocal)
			return err
		}
		gen = f.NextGeneration()
		_, err = f.Update(orderID, func(it Item) (Item, error) { return it.BeginParse(gen) })
		return err
	})
	if err != nil {
		return domain.FormResponse{}, err
	}
	if gen == 0 {
		metrics.Get().ManualParseTotal.WithLabelValues("local", "success").Inc()
		return toFormResponse(f), nil
	}

	parseCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	rec, parseErr := s.backend.ParseOrder(parseCtx, text)
	parseTimedOut := parseErr != nil && isTimeout(parseCtx, parseErr)
	cancel()

	reason := ""
	if parseErr != nil {
		reason = failureReason(parseErr)
		if parseTimedOut {
			reason = domain.MessageRequestTimedOut
		}
	}

	f, err = s.store.Update(id, func(f *Form) error {
		if parseErr != nil {
			if _, err := f.Update(orderID, func(it Item) (Item, error) { return it.AbortParse(gen) }); err != nil {
				return err
			}
			f.SetResult(BannerError, domain.MessageManualParseFailed+reason)
			return nil
		}
		_, err := f.Update(orderID, func(it Item) (Item, error) { return it.FinishParse(gen, rec) })
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleResult) || errors.Is(err, domain.ErrOrderNotFound) {
			logger.Log.Debug("dropping superseded parse result", zap.String("form", formID), zap.Int64("order", orderID))
		}
		return domain.FormResponse{}, err
	}

	if parseErr != nil {
		metrics.Get().ManualParseTotal.WithLabelValues("ai", "failure").Inc()
		return toFormResponse(f), fmt.Errorf("%w: %s", domain.ErrManualParseFailed, reason)
	}
	metrics.Get().ManualParseTotal.WithLabelValues("ai", "success").Inc()
	return toFormResponse(f), nil
}

func (s *orderService) EditManual(ctx context.Context, formID string, orderID int64) (domain.FormResponse, error) {
	return s.update(formID, func(f *Form) error {
		_, err := f.Update(orderID, Item.Edit)
		return err
	})
}

func (s *orderService) Submit(ctx context.Context, formID string) (domain.SubmitResponse, error) {
	id, err := parseFormID(formID)
	if err != nil {
		return domain.SubmitResponse{}, err
	}

	var gateErr error
	f, err := s.store.Update(id, func(f *Form) error {
		gateErr = CheckSubmission(*f, s.cfg.Policy)
		var blocked *GateError
		if errors.As(gateErr, &blocked) {
			f.SetResult(BannerError, blocked.Message)
		}
		if gateErr == nil {
			f.Submitting = true
		}
		return nil
	})
	if err != nil {
		return domain.SubmitResponse{}, err
	}
	if gateErr != nil {
		metrics.Get().SubmissionsTotal.WithLabelValues("rejected").Inc()
		return domain.SubmitResponse{Form: toFormResponse(f)}, gateErr
	}

	req := backend.SubmitRequest{Manager: f.Manager}
	for _, it := range f.Items {
		req.Rows = append(req.Rows, it.Row())
		if file, ok := it.File(); ok {
			req.Images = append(req.Images, file)
		}
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	message, submitErr := s.backend.SubmitOrders(submitCtx, req)
	if submitErr == nil && message == "" {
		message = domain.MessageSubmitCompleted
	}
	if submitErr != nil {
		message = failureReason(submitErr)
		if isTimeout(submitCtx, submitErr) {
			message = domain.MessageRequestTimedOut
		}
	}
	cancel()

	f, err = s.store.Update(id, func(f *Form) error {
		f.Submitting = false
		if submitErr != nil {
			f.SetResult(BannerError, message)
			return nil
		}
		f.Reset()
		f.SetResult(BannerSuccess, message)
		return nil
	})
	if err != nil {
		return domain.SubmitResponse{}, err
	}

	if submitErr != nil {
		metrics.Get().SubmissionsTotal.WithLabelValues("failed").Inc()
		logger.Log.Warn("submit-orders failed", zap.String("form", formID), zap.String("reason", message), zap.Error(submitErr))
		return domain.SubmitResponse{Form: toFormResponse(f)}, submitErr
	}

	metrics.Get().SubmissionsTotal.WithLabelValues("success").Inc()
	metrics.Get().SubmittedOrders.Add(float64(len(req.Rows)))

	batchID := uuid.New()
	s.goRecord(batchID, req, message)

	return domain.SubmitResponse{
		BatchID:    batchID.String(),
		OrderCount: len(req.Rows),
		Message:    message,
		Form:       toFormResponse(f),
	}, nil
}

func (s *orderService) GetSubmissions(ctx context.Context, manager string, page, limit int) ([]domain.SubmissionResponse, int64, error) {
	if s.repo == nil {
		return []domain.SubmissionResponse{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	batches, total, err := s.repo.GetBatches(ctx, manager, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]domain.SubmissionResponse, 0, len(batches))
	for _, b := range batches {
		res = append(res, toSubmissionResponse(b))
	}
	return res, total, nil
}

func (s *orderService) Managers() domain.ManagersResponse {
	return domain.ManagersResponse{
		Managers:        s.cfg.Policy.managers(),
		CanonicalFields: record.CanonicalFields,
		AutoFields:      record.AutoFields,
		ManualFields:    record.ManualFields,
		RequiredFields:  s.cfg.Policy.required(),
	}
}

func (s *orderService) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (s *orderService) update(formID string, fn func(f *Form) error) (domain.FormResponse, error) {
	id, err := parseFormID(formID)
	if err != nil {
		return domain.FormResponse{}, err
	}
	f, err := s.edit(id, fn)
	if err != nil {
		return domain.FormResponse{}, err
	}
	return toFormResponse(f), nil
}

// edit is Store.Update for user edits. A form is frozen while its submission
// is in flight; async results still land through Store.Update directly.
func (s *orderService) edit(id uuid.UUID, fn func(f *Form) error) (Form, error) {
	return s.store.Update(id, func(f *Form) error {
		if f.Submitting {
			return domain.ErrSubmissionInProgress
		}
		return fn(f)
	})
}

func (s *orderService) downscale(file compress.File) compress.File {
	out, result := compress.DownscaleWithResult(file)
	metrics.Get().ImagesCompressed.WithLabelValues(string(result)).Inc()
	return out
}

type analysisJob struct {
	orderID    int64
	generation uint64
	file       compress.File
}

// begin moves a card into Analyzing through transition and returns what the
// analysis goroutine needs.
func begin(f *Form, orderID int64, transition func(Item, uint64) (Item, error)) (analysisJob, error) {
	gen := f.NextGeneration()
	it, err := f.Update(orderID, func(it Item) (Item, error) { return transition(it, gen) })
	if err != nil {
		return analysisJob{}, err
	}
	file, _ := it.File()
	return analysisJob{orderID: orderID, generation: gen, file: file}, nil
}

func (s *orderService) goAnalyze(formID uuid.UUID, job analysisJob) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.analyze(formID, job)
	}()
}

// schedule starts analysis of an attached card after delay. A card that was
// re-attached or removed in the meantime is skipped.
func (s *orderService) schedule(formID uuid.UUID, orderID int64, delay time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-s.ctx.Done():
				return
			case <-t.C:
			}
		}

		var job analysisJob
		_, err := s.store.Update(formID, func(f *Form) error {
			var err error
			job, err = begin(f, orderID, Item.StartAnalysis)
			return err
		})
		if err != nil {
			logger.Log.Debug("skipping scheduled analysis", zap.String("form", formID.String()), zap.Int64("order", orderID), zap.Error(err))
			return
		}
		s.analyze(formID, job)
	}()
}

func (s *orderService) analyze(formID uuid.UUID, job analysisJob) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.AnalysisTimeout)
	defer cancel()

	start := time.Now()
	auto, analyzeErr := s.backend.AnalyzeImage(ctx, compress.DataURL(job.file))

	outcome := "success"
	reason := ""
	if analyzeErr != nil {
		outcome = "failure"
		reason = failureReason(analyzeErr)
		switch {
		case isTimeout(ctx, analyzeErr):
			outcome = "timeout"
			reason = domain.MessageAnalysisTimedOut
		case s.ctx.Err() != nil:
			outcome = "interrupted"
			reason = domain.MessageAnalysisInterrupted
		}
	}
	metrics.Get().AnalysisTotal.WithLabelValues(outcome).Inc()
	metrics.Get().AnalysisDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	_, uerr := s.store.Update(formID, func(f *Form) error {
		_, err := f.Update(job.orderID, func(it Item) (Item, error) {
			if analyzeErr != nil {
				return it.FailAnalysis(job.generation, reason)
			}
			return it.CompleteAnalysis(job.generation, auto)
		})
		return err
	})
	if uerr != nil {
		logger.Log.Debug("dropping analysis result",
			zap.String("form", formID.String()),
			zap.Int64("order", job.orderID),
			zap.Uint64("generation", job.generation),
			zap.Error(uerr),
		)
		return
	}
	if analyzeErr != nil {
		logger.Log.Info("image analysis failed",
			zap.String("form", formID.String()),
			zap.Int64("order", job.orderID),
			zap.String("reason", reason),
			zap.Error(analyzeErr),
		)
	}
}

// goRecord appends an accepted batch to the submission log and archives its
// images. Both are best effort.
func (s *orderService) goRecord(batchID uuid.UUID, req backend.SubmitRequest, message string) {
	if s.repo == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		batch := &entities.SubmissionBatch{
			ID:         batchID,
			Manager:    req.Manager,
			OrderCount: len(req.Rows),
			Message:    message,
		}
		for i, row := range req.Rows {
			encoded, err := json.Marshal(row)
			if err != nil {
				logger.Log.Warn("failed to encode row", zap.Error(err))
				continue
			}
			batch.Orders = append(batch.Orders, &entities.SubmittedOrder{
				ID:          uuid.New(),
				BatchID:     batchID,
				Position:    i + 1,
				OrderNumber: row[slices.Index(record.CanonicalFields, record.FieldOrderNumber)],
				Row:         string(encoded),
			})
		}

		if err := s.repo.CreateBatch(s.ctx, batch); err != nil {
			logger.Log.Warn("failed to record submission", zap.String("batch", batchID.String()), zap.Error(err))
			return
		}

		if s.archive == nil {
			return
		}
		for i, img := range req.Images {
			name := fmt.Sprintf("%s-%d", batchID, i+1)
			key, err := s.archive.UploadFile(s.ctx, name, img.Data, img.ContentType, archiveFolder, storage.AllowImage...)
			if err != nil {
				logger.Log.Warn("failed to archive image", zap.String("batch", batchID.String()), zap.Int("position", i+1), zap.Error(err))
				continue
			}
			if err := s.repo.SetImageURL(s.ctx, batchID.String(), i+1, s.archive.GetPublicLinkKey(key)); err != nil {
				logger.Log.Warn("failed to link archived image", zap.String("key", key), zap.Error(err))
				if err := s.archive.DeleteFile(s.ctx, key); err != nil {
					logger.Log.Warn("failed to remove unlinked image", zap.String("key", key), zap.Error(err))
				}
			}
		}
	}()
}

func (s *orderService) janitor() {
	defer s.wg.Done()

	interval := s.cfg.FormTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if n := s.store.Prune(s.cfg.FormTTL); n > 0 {
				logger.Log.Info("pruned idle forms", zap.Int("count", n))
			}
		}
	}
}

func parseFormID(formID string) (uuid.UUID, error) {
	id, err := uuid.Parse(formID)
	if err != nil {
		return uuid.Nil, domain.ErrParseUUID
	}
	return id, nil
}

func isImage(f compress.File) bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// failureReason is the text shown for a failed collaborator call.
func failureReason(err error) string {
	var apiErr *backend.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return domain.MessageNetworkError
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
