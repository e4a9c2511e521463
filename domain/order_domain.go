package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessCreateForm      = "order form created successfully"
	MessageSuccessGetForm         = "order form retrieved successfully"
	MessageSuccessSelectManager   = "manager selected successfully"
	MessageSuccessAddOrder        = "order added successfully"
	MessageSuccessCopyOrder       = "order copied successfully"
	MessageSuccessRemoveOrder     = "order removed successfully"
	MessageSuccessAttachImage     = "image attached, analysis started"
	MessageSuccessBulkAttach      = "images attached, analysis scheduled"
	MessageSuccessRetryAnalysis   = "analysis restarted"
	MessageSuccessUpdateAutoField = "field updated successfully"
	MessageSuccessUpdateManual    = "manual text updated successfully"
	MessageSuccessApplyManual     = "manual entry applied successfully"
	MessageSuccessEditManual      = "manual entry reopened for editing"
	MessageSuccessSubmitOrders    = "orders submitted successfully"
	MessageSuccessGetSubmissions  = "submissions retrieved successfully"
	MessageSuccessGetManagers     = "form settings retrieved successfully"

	MessageFailedCreateForm      = "failed to create order form"
	MessageFailedGetForm         = "failed to retrieve order form"
	MessageFailedSelectManager   = "failed to select manager"
	MessageFailedAddOrder        = "failed to add order"
	MessageFailedCopyOrder       = "failed to copy order"
	MessageFailedRemoveOrder     = "failed to remove order"
	MessageFailedAttachImage     = "failed to attach image"
	MessageFailedBulkAttach      = "failed to attach images"
	MessageFailedRetryAnalysis   = "failed to restart analysis"
	MessageFailedUpdateAutoField = "failed to update field"
	MessageFailedUpdateManual    = "failed to update manual text"
	MessageFailedApplyManual     = "failed to apply manual entry"
	MessageFailedEditManual      = "failed to reopen manual entry"
	MessageFailedSubmitOrders    = "failed to submit orders"
	MessageFailedGetSubmissions  = "failed to retrieve submissions"

	// Banner texts shown to the operator.
	MessageSelectManager       = "담당자를 선택해주세요."
	MessageAnalysisInProgress  = "주문 #%d 이미지 분석이 아직 진행 중입니다."
	MessageAnalysisIncomplete  = "모든 주문의 이미지를 업로드하고 분석을 완료해주세요."
	MessageManualNotApplied    = "주문 #%d 직접 입력 항목을 적용해주세요."
	MessageRequiredFieldEmpty  = "주문 #%d %s을(를) 입력해주세요."
	MessageSubmitCompleted     = "✅ 완료되었습니다!"
	MessageManualParseFailed   = "AI 파싱 실패: "
	MessageNetworkError        = "네트워크 오류"
	MessageAnalysisTimedOut    = "분석 시간이 초과되었습니다"
	MessageRequestTimedOut     = "요청 시간이 초과되었습니다"
	MessageAnalysisInterrupted = "분석이 중단되었습니다"

	ErrFormNotFound         = errors.New("order form not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrLastOrder            = errors.New("at least one order must remain")
	ErrUnknownManager       = errors.New("unknown manager")
	ErrUnknownField         = errors.New("unknown field")
	ErrInvalidTransition    = errors.New("action not allowed in the current order state")
	ErrStaleResult          = errors.New("result belongs to a superseded request")
	ErrEmptyManualText      = errors.New("manual text is empty")
	ErrNoImages             = errors.New("no images provided")
	ErrInvalidImageFormat   = errors.New("invalid image format")
	ErrSubmissionBlocked    = errors.New("submission blocked")
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrManualParseFailed    = errors.New("manual parse failed")
)

type (
	SelectManagerRequest struct {
		Manager string `json:"manager" validate:"required"`
	}

	UpdateAutoFieldRequest struct {
		Field string `json:"field" validate:"required"`
		Value string `json:"value"`
	}

	UpdateManualTextRequest struct {
		Text string `json:"text"`
	}

	ResultBanner struct {
		Type    string `json:"type"` // "success", "error"
		Message string `json:"message"`
	}

	OrderItemResponse struct {
		ID           int64             `json:"id"`
		Number       int               `json:"number"`
		ImageStatus  string            `json:"image_status"`
		ImageName    string            `json:"image_name,omitempty"`
		ImagePreview string            `json:"image_preview,omitempty"`
		Error        string            `json:"error,omitempty"`
		AutoData     map[string]string `json:"auto_data"`
		ManualStatus string            `json:"manual_status"`
		ManualText   string            `json:"manual_text"`
		ManualData   map[string]string `json:"manual_data"`
		Row          []string          `json:"row"`
	}

	FormResponse struct {
		ID         string              `json:"id"`
		Manager    string              `json:"manager"`
		Orders     []OrderItemResponse `json:"orders"`
		Result     *ResultBanner       `json:"result,omitempty"`
		Submitting bool                `json:"submitting"`
	}

	SubmitResponse struct {
		BatchID    string       `json:"batch_id"`
		OrderCount int          `json:"order_count"`
		Message    string       `json:"message"`
		Form       FormResponse `json:"form"`
	}

	SubmittedOrderResponse struct {
		Position    int      `json:"position"`
		OrderNumber string   `json:"order_number"`
		Row         []string `json:"row"`
		ImageURL    string   `json:"image_url,omitempty"`
	}

	SubmissionResponse struct {
		ID         string                   `json:"id"`
		Manager    string                   `json:"manager"`
		OrderCount int                      `json:"order_count"`
		Message    string                   `json:"message"`
		Orders     []SubmittedOrderResponse `json:"orders"`
		CreatedAt  time.Time                `json:"created_at"`
	}

	ManagersResponse struct {
		Managers        []string `json:"managers"`
		CanonicalFields []string `json:"canonical_fields"`
		AutoFields      []string `json:"auto_fields"`
		ManualFields    []string `json:"manual_fields"`
		RequiredFields  []string `json:"required_fields"`
	}
)
