package order

import (
	"Go-Order-Intake/domain"
	"Go-Order-Intake/entities"
	"Go-Order-Intake/pkg/backend"
	"Go-Order-Intake/pkg/compress"
	"Go-Order-Intake/pkg/record"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	mu        sync.Mutex
	analyze   func(ctx context.Context, imageData string) (record.Record, error)
	parse     func(ctx context.Context, text string) (record.Record, error)
	submit    func(ctx context.Context, req backend.SubmitRequest) (string, error)
	analyzed  int
	submitted []backend.SubmitRequest
}

func (b *fakeBackend) AnalyzeImage(ctx context.Context, imageData string) (record.Record, error) {
	b.mu.Lock()
	b.analyzed++
	fn := b.analyze
	b.mu.Unlock()
	if fn == nil {
		return record.Record{record.FieldProductName: "물병", record.FieldOrderNumber: "12345"}, nil
	}
	return fn(ctx, imageData)
}

func (b *fakeBackend) ParseOrder(ctx context.Context, text string) (record.Record, error) {
	if b.parse == nil {
		return nil, &backend.Error{Endpoint: backend.PathParseOrder, Message: backend.FallbackParseError}
	}
	return b.parse(ctx, text)
}

func (b *fakeBackend) SubmitOrders(ctx context.Context, req backend.SubmitRequest) (string, error) {
	b.mu.Lock()
	b.submitted = append(b.submitted, req)
	fn := b.submit
	b.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(ctx, req)
}

func (b *fakeBackend) analyzeCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.analyzed
}

type fakeRepository struct {
	mu      sync.Mutex
	batches []*entities.SubmissionBatch
	links   map[int]string
	linkErr error
}

func (r *fakeRepository) CreateBatch(ctx context.Context, batch *entities.SubmissionBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return nil
}

func (r *fakeRepository) GetBatches(ctx context.Context, manager string, page, limit int) ([]*entities.SubmissionBatch, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.SubmissionBatch
	for _, b := range r.batches {
		if manager == "" || b.Manager == manager {
			out = append(out, b)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepository) SetImageURL(ctx context.Context, batchID string, position int, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linkErr != nil {
		return r.linkErr
	}
	if r.links == nil {
		r.links = make(map[int]string)
	}
	r.links[position] = url
	return nil
}

type fakeArchive struct {
	mu      sync.Mutex
	keys    []string
	deleted []string
}

func (a *fakeArchive) UploadFile(ctx context.Context, fileName string, data []byte, contentType string, folder string, allowed ...string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := folder + "/" + fileName
	a.keys = append(a.keys, key)
	return key, nil
}

func (a *fakeArchive) DeleteFile(ctx context.Context, objectKey string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, objectKey)
	return nil
}

func (a *fakeArchive) GetPublicLinkKey(objectKey string) string {
	return "https://bucket.example/" + objectKey
}

func newTestService(t *testing.T, b *fakeBackend, cfg Config) (OrderService, domain.FormResponse) {
	t.Helper()
	if cfg.Policy.Managers == nil {
		cfg.Policy.Managers = []string{"태일", "자인"}
	}
	svc := NewOrderService(nil, b, nil, cfg)
	t.Cleanup(svc.Close)

	form, err := svc.CreateForm(context.Background())
	require.NoError(t, err)
	return svc, form
}

func waitForStatus(t *testing.T, svc OrderService, formID string, position int, status string) domain.FormResponse {
	t.Helper()
	var form domain.FormResponse
	require.Eventually(t, func() bool {
		var err error
		form, err = svc.GetForm(context.Background(), formID)
		require.NoError(t, err)
		return len(form.Orders) >= position && form.Orders[position-1].ImageStatus == status
	}, 2*time.Second, 5*time.Millisecond)
	return form
}

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	svc, form := newTestService(t, b, Config{})
	orderID := form.Orders[0].ID

	_, err := svc.SelectManager(ctx, form.ID, domain.SelectManagerRequest{Manager: "태일"})
	require.NoError(t, err)

	attached, err := svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)
	assert.Equal(t, StatusAnalyzing, attached.Orders[0].ImageStatus)
	assert.Equal(t, compress.DataURL(receipt), attached.Orders[0].ImagePreview)

	form = waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)
	assert.Equal(t, "12345", form.Orders[0].AutoData[record.FieldOrderNumber])

	_, err = svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: fullManual})
	require.NoError(t, err)
	form, err = svc.ApplyManual(ctx, form.ID, orderID)
	require.NoError(t, err)
	assert.Equal(t, StatusManualApplied, form.Orders[0].ManualStatus)

	res, err := svc.Submit(ctx, form.ID)
	require.NoError(t, err)

	require.Len(t, b.submitted, 1)
	sent := b.submitted[0]
	assert.Equal(t, "태일", sent.Manager)
	require.Len(t, sent.Rows, 1)
	require.Len(t, sent.Rows[0], len(record.CanonicalFields))
	assert.Equal(t, "12345", sent.Rows[0][8])
	assert.Equal(t, "hong", sent.Rows[0][7])
	assert.Equal(t, []compress.File{receipt}, sent.Images)

	assert.Equal(t, 1, res.OrderCount)
	assert.Equal(t, domain.MessageSubmitCompleted, res.Message)
	require.Len(t, res.Form.Orders, 1)
	assert.Equal(t, StatusEmpty, res.Form.Orders[0].ImageStatus)
	assert.Equal(t, "태일", res.Form.Manager)
	require.NotNil(t, res.Form.Result)
	assert.Equal(t, BannerSuccess, res.Form.Result.Type)
	assert.False(t, res.Form.Submitting)
}

// readyToSubmit selects a manager and brings the first card to Analyzed with
// an applied manual entry.
func readyToSubmit(t *testing.T, svc OrderService, formID string, orderID int64) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.SelectManager(ctx, formID, domain.SelectManagerRequest{Manager: "태일"})
	require.NoError(t, err)
	_, err = svc.AttachImage(ctx, formID, orderID, receipt)
	require.NoError(t, err)
	waitForStatus(t, svc, formID, 1, StatusAnalyzed)
	_, err = svc.UpdateManualText(ctx, formID, orderID, domain.UpdateManualTextRequest{Text: fullManual})
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, formID, orderID)
	require.NoError(t, err)
}

func TestFormIsFrozenWhileSubmitting(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	b := &fakeBackend{submit: func(ctx context.Context, req backend.SubmitRequest) (string, error) {
		close(started)
		<-release
		return "", &backend.Error{Endpoint: backend.PathSubmitOrders, Message: "시트 권한 없음"}
	}}
	svc, form := newTestService(t, b, Config{})
	orderID := form.Orders[0].ID
	readyToSubmit(t, svc, form.ID, orderID)

	done := make(chan error)
	go func() {
		_, err := svc.Submit(ctx, form.ID)
		done <- err
	}()
	<-started

	edits := map[string]func() error{
		"select manager": func() error {
			_, err := svc.SelectManager(ctx, form.ID, domain.SelectManagerRequest{Manager: "자인"})
			return err
		},
		"add": func() error { _, err := svc.AddOrder(ctx, form.ID); return err },
		"copy": func() error { _, err := svc.CopyLastOrder(ctx, form.ID); return err },
		"remove": func() error { _, err := svc.RemoveOrder(ctx, form.ID, orderID); return err },
		"attach": func() error { _, err := svc.AttachImage(ctx, form.ID, orderID, receipt); return err },
		"bulk attach": func() error {
			_, err := svc.BulkAttach(ctx, form.ID, []compress.File{receipt})
			return err
		},
		"retry": func() error { _, err := svc.RetryAnalysis(ctx, form.ID, orderID); return err },
		"auto field": func() error {
			_, err := svc.UpdateAutoField(ctx, form.ID, orderID, domain.UpdateAutoFieldRequest{Field: record.FieldOrderNumber, Value: "1"})
			return err
		},
		"edit manual": func() error { _, err := svc.EditManual(ctx, form.ID, orderID); return err },
		"apply manual": func() error { _, err := svc.ApplyManual(ctx, form.ID, orderID); return err },
		"manual text": func() error {
			_, err := svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: "x"})
			return err
		},
		"submit again": func() error { _, err := svc.Submit(ctx, form.ID); return err },
	}
	for name, edit := range edits {
		assert.ErrorIs(t, edit(), domain.ErrSubmissionInProgress, name)
	}

	close(release)
	require.Error(t, <-done)

	// the failed submission leaves the form exactly as it was sent
	form, err := svc.GetForm(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, form.Orders, 1)
	assert.Equal(t, orderID, form.Orders[0].ID)
	assert.Equal(t, "태일", form.Manager)
	assert.Equal(t, StatusManualApplied, form.Orders[0].ManualStatus)
	assert.Equal(t, "12345", form.Orders[0].AutoData[record.FieldOrderNumber])
	assert.False(t, form.Submitting)

	_, err = svc.AddOrder(ctx, form.ID)
	assert.NoError(t, err, "edits resume once the submission settles")
}

func TestSubmitTimeoutReleasesForm(t *testing.T) {
	ctx := context.Background()
	var calls int
	var mu sync.Mutex
	b := &fakeBackend{submit: func(ctx context.Context, req backend.SubmitRequest) (string, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "", nil
	}}
	svc, form := newTestService(t, b, Config{RequestTimeout: 20 * time.Millisecond})
	readyToSubmit(t, svc, form.ID, form.Orders[0].ID)

	res, err := svc.Submit(ctx, form.ID)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.Form.Submitting)
	require.NotNil(t, res.Form.Result)
	assert.Equal(t, BannerError, res.Form.Result.Type)
	assert.Equal(t, domain.MessageRequestTimedOut, res.Form.Result.Message)
	assert.Equal(t, StatusManualApplied, res.Form.Orders[0].ManualStatus)

	res, err = svc.Submit(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageSubmitCompleted, res.Message)
}

func TestApplyManualRemoteTimeout(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{parse: func(ctx context.Context, text string) (record.Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc, form := newTestService(t, b, Config{RequestTimeout: 20 * time.Millisecond})
	orderID := form.Orders[0].ID

	_, err := svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)
	waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)
	_, err = svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: "국민 123 홍길동"})
	require.NoError(t, err)

	res, err := svc.ApplyManual(ctx, form.ID, orderID)
	require.ErrorIs(t, err, domain.ErrManualParseFailed)
	assert.Equal(t, StatusManualDraft, res.Orders[0].ManualStatus)
	require.NotNil(t, res.Result)
	assert.Equal(t, domain.MessageManualParseFailed+domain.MessageRequestTimedOut, res.Result.Message)
}

func TestSubmitBlockedSendsNothing(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	svc, form := newTestService(t, b, Config{})

	res, err := svc.Submit(ctx, form.ID)
	require.ErrorIs(t, err, domain.ErrSubmissionBlocked)
	require.NotNil(t, res.Form.Result)
	assert.Equal(t, domain.MessageSelectManager, res.Form.Result.Message)

	_, err = svc.SelectManager(ctx, form.ID, domain.SelectManagerRequest{Manager: "자인"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, form.ID)
	var gate *GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, domain.MessageAnalysisIncomplete, gate.Message)

	assert.Empty(t, b.submitted)
}

func TestSubmitFailureKeepsCards(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{submit: func(ctx context.Context, req backend.SubmitRequest) (string, error) {
		return "", &backend.Error{Endpoint: backend.PathSubmitOrders, Message: "시트 권한 없음"}
	}}
	svc, form := newTestService(t, b, Config{})
	orderID := form.Orders[0].ID

	_, err := svc.SelectManager(ctx, form.ID, domain.SelectManagerRequest{Manager: "태일"})
	require.NoError(t, err)
	_, err = svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)
	waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)
	_, err = svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: fullManual})
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, form.ID, orderID)
	require.NoError(t, err)

	res, err := svc.Submit(ctx, form.ID)
	var apiErr *backend.Error
	require.ErrorAs(t, err, &apiErr)

	assert.Equal(t, StatusAnalyzed, res.Form.Orders[0].ImageStatus)
	assert.Equal(t, StatusManualApplied, res.Form.Orders[0].ManualStatus)
	require.NotNil(t, res.Form.Result)
	assert.Equal(t, BannerError, res.Form.Result.Type)
	assert.Equal(t, "시트 권한 없음", res.Form.Result.Message)
	assert.False(t, res.Form.Submitting)
}

func TestSubmitRecordsBatch(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{submit: func(ctx context.Context, req backend.SubmitRequest) (string, error) {
		return "1건 저장 완료", nil
	}}
	repo := &fakeRepository{}
	archive := &fakeArchive{}
	svc := NewOrderService(repo, b, archive, Config{Policy: Policy{Managers: []string{"태일"}}})

	form, err := svc.CreateForm(ctx)
	require.NoError(t, err)
	orderID := form.Orders[0].ID
	_, err = svc.SelectManager(ctx, form.ID, domain.SelectManagerRequest{Manager: "태일"})
	require.NoError(t, err)
	_, err = svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)
	waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)
	_, err = svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: fullManual})
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, form.ID, orderID)
	require.NoError(t, err)

	res, err := svc.Submit(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, "1건 저장 완료", res.Message)
	assert.Equal(t, "1건 저장 완료", res.Form.Result.Message)

	// Close waits for the background recording.
	svc.Close()

	require.Len(t, repo.batches, 1)
	batch := repo.batches[0]
	assert.Equal(t, res.BatchID, batch.ID.String())
	assert.Equal(t, "태일", batch.Manager)
	require.Len(t, batch.Orders, 1)
	assert.Equal(t, "12345", batch.Orders[0].OrderNumber)

	require.Len(t, archive.keys, 1)
	assert.Equal(t, fmt.Sprintf("%s/%s-1", archiveFolder, res.BatchID), archive.keys[0])
	assert.Equal(t, "https://bucket.example/"+archive.keys[0], repo.links[1])

	subs, total, err := svc.GetSubmissions(ctx, "태일", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"물병", "", "", "국민", "123-45", "홍길동", "", "hong", "12345", "", "길동", "", ""}, subs[0].Orders[0].Row)
}

func TestAnalysisFailureAndRetry(t *testing.T) {
	ctx := context.Background()
	var calls int
	var mu sync.Mutex
	b := &fakeBackend{analyze: func(ctx context.Context, imageData string) (record.Record, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return nil, &backend.Error{Endpoint: backend.PathAnalyzeImage, Message: "이미지를 읽을 수 없습니다"}
		}
		return record.Record{record.FieldOrderNumber: "777"}, nil
	}}
	svc, form := newTestService(t, b, Config{})
	orderID := form.Orders[0].ID

	_, err := svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)

	form = waitForStatus(t, svc, form.ID, 1, StatusAnalysisFailed)
	assert.Equal(t, "이미지를 읽을 수 없습니다", form.Orders[0].Error)

	form, err = svc.RetryAnalysis(ctx, form.ID, orderID)
	require.NoError(t, err)
	assert.Equal(t, StatusAnalyzing, form.Orders[0].ImageStatus)

	form = waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)
	assert.Equal(t, "777", form.Orders[0].AutoData[record.FieldOrderNumber])
	assert.Empty(t, form.Orders[0].Error)
}

func TestAnalysisTimeout(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{analyze: func(ctx context.Context, imageData string) (record.Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc, form := newTestService(t, b, Config{AnalysisTimeout: 20 * time.Millisecond})

	_, err := svc.AttachImage(ctx, form.ID, form.Orders[0].ID, receipt)
	require.NoError(t, err)

	form = waitForStatus(t, svc, form.ID, 1, StatusAnalysisFailed)
	assert.Equal(t, domain.MessageAnalysisTimedOut, form.Orders[0].Error)
}

func TestReattachDropsStaleAnalysis(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	b := &fakeBackend{analyze: func(ctx context.Context, imageData string) (record.Record, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			<-release
			return record.Record{record.FieldOrderNumber: "old"}, nil
		}
		return record.Record{record.FieldOrderNumber: "new"}, nil
	}}
	svc, form := newTestService(t, b, Config{})
	orderID := form.Orders[0].ID

	_, err := svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.analyzeCalls() == 1 }, time.Second, time.Millisecond)

	second := compress.File{Name: "second.png", ContentType: "image/png", Data: []byte{9}}
	_, err = svc.AttachImage(ctx, form.ID, orderID, second)
	require.NoError(t, err)
	waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)

	close(release)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, time.Millisecond)
	svc.Close()

	form, err = svc.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", form.Orders[0].AutoData[record.FieldOrderNumber])
	assert.Equal(t, "second.png", form.Orders[0].ImageName)
}

func TestBulkAttachReplacesPristineCard(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	svc, form := newTestService(t, b, Config{StaggerInterval: time.Millisecond})
	pristine := form.Orders[0].ID

	files := []compress.File{
		{Name: "a.png", ContentType: "image/png", Data: []byte{1}},
		{Name: "b.png", ContentType: "image/png", Data: []byte{2}},
		{Name: "c.png", ContentType: "image/png", Data: []byte{3}},
	}
	form, err := svc.BulkAttach(ctx, form.ID, files)
	require.NoError(t, err)
	require.Len(t, form.Orders, 3)
	for i, o := range form.Orders {
		assert.NotEqual(t, pristine, o.ID)
		assert.Equal(t, files[i].Name, o.ImageName)
	}

	for i := range files {
		waitForStatus(t, svc, form.ID, i+1, StatusAnalyzed)
	}
	assert.Equal(t, 3, b.analyzeCalls())

	// a second batch appends
	form, err = svc.BulkAttach(ctx, form.ID, files[:1])
	require.NoError(t, err)
	assert.Len(t, form.Orders, 4)
}

func TestBulkAttachValidation(t *testing.T) {
	ctx := context.Background()
	svc, form := newTestService(t, &fakeBackend{}, Config{})

	_, err := svc.BulkAttach(ctx, form.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNoImages)

	_, err = svc.BulkAttach(ctx, form.ID, []compress.File{{Name: "notes.txt", ContentType: "text/plain"}})
	assert.ErrorIs(t, err, domain.ErrInvalidImageFormat)
}

func TestCloseCancelsStaggeredAnalyses(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	svc, form := newTestService(t, b, Config{StaggerInterval: time.Hour})

	files := []compress.File{
		{Name: "a.png", ContentType: "image/png", Data: []byte{1}},
		{Name: "b.png", ContentType: "image/png", Data: []byte{2}},
	}
	_, err := svc.BulkAttach(ctx, form.ID, files)
	require.NoError(t, err)
	waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)

	svc.Close()

	form, err = svc.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAttached, form.Orders[1].ImageStatus)
	assert.Equal(t, 1, b.analyzeCalls())
}

func TestApplyManualRemote(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	proceed := make(chan struct{})
	b := &fakeBackend{parse: func(ctx context.Context, text string) (record.Record, error) {
		close(started)
		<-proceed
		return record.Record{record.FieldBank: "카카오뱅크", record.FieldAccountHolder: "홍길동"}, nil
	}}
	svc, form := newTestService(t, b, Config{})
	orderID := form.Orders[0].ID

	_, err := svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)
	waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)
	_, err = svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: "카카오뱅크 3333-12-1234567 홍길동"})
	require.NoError(t, err)

	done := make(chan domain.FormResponse)
	go func() {
		res, err := svc.ApplyManual(ctx, form.ID, orderID)
		assert.NoError(t, err)
		done <- res
	}()

	<-started
	during, err := svc.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusManualParsing, during.Orders[0].ManualStatus)

	_, err = svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	close(proceed)
	res := <-done
	assert.Equal(t, StatusManualApplied, res.Orders[0].ManualStatus)
	assert.Equal(t, "카카오뱅크", res.Orders[0].ManualData[record.FieldBank])
}

func TestApplyManualRemoteFailure(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{parse: func(ctx context.Context, text string) (record.Record, error) {
		return nil, &backend.Error{Endpoint: backend.PathParseOrder, Message: "quota"}
	}}
	svc, form := newTestService(t, b, Config{})
	orderID := form.Orders[0].ID

	_, err := svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)
	waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)

	_, err = svc.ApplyManual(ctx, form.ID, orderID)
	assert.ErrorIs(t, err, domain.ErrEmptyManualText)

	_, err = svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: "국민 123 홍길동"})
	require.NoError(t, err)

	res, err := svc.ApplyManual(ctx, form.ID, orderID)
	require.ErrorIs(t, err, domain.ErrManualParseFailed)
	assert.Equal(t, StatusManualDraft, res.Orders[0].ManualStatus)
	assert.Equal(t, "국민 123 홍길동", res.Orders[0].ManualText)
	require.NotNil(t, res.Result)
	assert.Equal(t, "AI 파싱 실패: quota", res.Result.Message)
}

func TestFormOperations(t *testing.T) {
	ctx := context.Background()
	svc, form := newTestService(t, &fakeBackend{}, Config{})

	_, err := svc.SelectManager(ctx, form.ID, domain.SelectManagerRequest{Manager: "민수"})
	assert.ErrorIs(t, err, domain.ErrUnknownManager)

	_, err = svc.GetForm(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrParseUUID)

	_, err = svc.RemoveOrder(ctx, form.ID, form.Orders[0].ID)
	assert.ErrorIs(t, err, domain.ErrLastOrder)

	_, err = svc.UpdateManualText(ctx, form.ID, form.Orders[0].ID, domain.UpdateManualTextRequest{Text: "아이디: hong"})
	require.NoError(t, err)
	form, err = svc.CopyLastOrder(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, form.Orders, 2)
	assert.Equal(t, "아이디: hong", form.Orders[1].ManualText)

	form, err = svc.AddOrder(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, form.Orders, 3)
	assert.Equal(t, 3, form.Orders[2].Number)

	form, err = svc.RemoveOrder(ctx, form.ID, form.Orders[0].ID)
	require.NoError(t, err)
	assert.Len(t, form.Orders, 2)
	assert.Equal(t, 1, form.Orders[0].Number)

	_, err = svc.UpdateAutoField(ctx, form.ID, form.Orders[0].ID, domain.UpdateAutoFieldRequest{Field: "색상", Value: "red"})
	assert.ErrorIs(t, err, domain.ErrUnknownField)
	_, err = svc.UpdateAutoField(ctx, form.ID, form.Orders[0].ID, domain.UpdateAutoFieldRequest{Field: record.FieldOrderNumber, Value: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.AttachImage(ctx, form.ID, form.Orders[0].ID, compress.File{Name: "a.pdf", ContentType: "application/pdf"})
	assert.ErrorIs(t, err, domain.ErrInvalidImageFormat)

	managers := svc.Managers()
	assert.Equal(t, []string{"태일", "자인"}, managers.Managers)
	assert.Equal(t, record.DefaultRequiredFields, managers.RequiredFields)
}

func TestGetSubmissionsWithoutRepository(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{}, Config{})

	subs, total, err := svc.GetSubmissions(context.Background(), "", 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, subs)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "quota", failureReason(fmt.Errorf("wrapped: %w", &backend.Error{Message: "quota"})))
	assert.Equal(t, domain.MessageNetworkError, failureReason(errors.New("connection refused")))
}

func TestSubmitRemovesUnlinkedImage(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{linkErr: errors.New("db down")}
	archive := &fakeArchive{}
	svc := NewOrderService(repo, &fakeBackend{}, archive, Config{})

	form, err := svc.CreateForm(ctx)
	require.NoError(t, err)
	orderID := form.Orders[0].ID
	_, err = svc.SelectManager(ctx, form.ID, domain.SelectManagerRequest{Manager: "자인"})
	require.NoError(t, err)
	_, err = svc.AttachImage(ctx, form.ID, orderID, receipt)
	require.NoError(t, err)
	waitForStatus(t, svc, form.ID, 1, StatusAnalyzed)
	_, err = svc.UpdateManualText(ctx, form.ID, orderID, domain.UpdateManualTextRequest{Text: fullManual})
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, form.ID, orderID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, form.ID)
	require.NoError(t, err)
	svc.Close()

	require.Len(t, archive.keys, 1)
	assert.Equal(t, archive.keys, archive.deleted)
}
