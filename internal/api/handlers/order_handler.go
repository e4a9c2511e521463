package handlers

import (
	"Go-Order-Intake/domain"
	"Go-Order-Intake/internal/api/presenters"
	"Go-Order-Intake/pkg/backend"
	"Go-Order-Intake/pkg/compress"
	"Go-Order-Intake/pkg/order"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	OrderHandler interface {
		CreateForm(c *fiber.Ctx) error
		GetForm(c *fiber.Ctx) error
		SelectManager(c *fiber.Ctx) error
		AddOrder(c *fiber.Ctx) error
		CopyLastOrder(c *fiber.Ctx) error
		RemoveOrder(c *fiber.Ctx) error
		AttachImage(c *fiber.Ctx) error
		BulkAttach(c *fiber.Ctx) error
		RetryAnalysis(c *fiber.Ctx) error
		UpdateAutoField(c *fiber.Ctx) error
		UpdateManualText(c *fiber.Ctx) error
		ApplyManual(c *fiber.Ctx) error
		EditManual(c *fiber.Ctx) error
		Submit(c *fiber.Ctx) error
		GetSubmissions(c *fiber.Ctx) error
		GetManagers(c *fiber.Ctx) error
	}

	orderHandler struct {
		orderService order.OrderService
		validator    *validator.Validate
	}
)

func NewOrderHandler(orderService order.OrderService, validator *validator.Validate) OrderHandler {
	return &orderHandler{
		orderService: orderService,
		validator:    validator,
	}
}

func (h *orderHandler) CreateForm(c *fiber.Ctx) error {
	res, err := h.orderService.CreateForm(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedCreateForm, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateForm)
}

func (h *orderHandler) GetForm(c *fiber.Ctx) error {
	res, err := h.orderService.GetForm(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetForm, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetForm)
}

func (h *orderHandler) SelectManager(c *fiber.Ctx) error {
	req := new(domain.SelectManagerRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSelectManager, err)
	}

	res, err := h.orderService.SelectManager(c.Context(), c.Params("id"), *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedSelectManager, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessSelectManager)
}

func (h *orderHandler) AddOrder(c *fiber.Ctx) error {
	res, err := h.orderService.AddOrder(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedAddOrder, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessAddOrder)
}

func (h *orderHandler) CopyLastOrder(c *fiber.Ctx) error {
	res, err := h.orderService.CopyLastOrder(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedCopyOrder, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCopyOrder)
}

func (h *orderHandler) RemoveOrder(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRemoveOrder, err)
	}

	res, err := h.orderService.RemoveOrder(c.Context(), c.Params("id"), orderID)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedRemoveOrder, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessRemoveOrder)
}

func (h *orderHandler) AttachImage(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAttachImage, err)
	}

	header, err := c.FormFile("image")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	file, err := readFile(header)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAttachImage, err)
	}

	res, err := h.orderService.AttachImage(c.Context(), c.Params("id"), orderID, file)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedAttachImage, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusAccepted, domain.MessageSuccessAttachImage)
}

func (h *orderHandler) BulkAttach(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	headers := form.File["images"]
	if len(headers) == 0 {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBulkAttach, domain.ErrNoImages)
	}

	files := make([]compress.File, 0, len(headers))
	for _, header := range headers {
		file, err := readFile(header)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBulkAttach, err)
		}
		files = append(files, file)
	}

	res, err := h.orderService.BulkAttach(c.Context(), c.Params("id"), files)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedBulkAttach, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusAccepted, domain.MessageSuccessBulkAttach)
}

func (h *orderHandler) RetryAnalysis(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRetryAnalysis, err)
	}

	res, err := h.orderService.RetryAnalysis(c.Context(), c.Params("id"), orderID)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedRetryAnalysis, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusAccepted, domain.MessageSuccessRetryAnalysis)
}

func (h *orderHandler) UpdateAutoField(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateAutoField, err)
	}

	req := new(domain.UpdateAutoFieldRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateAutoField, err)
	}

	res, err := h.orderService.UpdateAutoField(c.Context(), c.Params("id"), orderID, *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedUpdateAutoField, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateAutoField)
}

func (h *orderHandler) UpdateManualText(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateManual, err)
	}

	req := new(domain.UpdateManualTextRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	res, err := h.orderService.UpdateManualText(c.Context(), c.Params("id"), orderID, *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedUpdateManual, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateManual)
}

func (h *orderHandler) ApplyManual(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedApplyManual, err)
	}

	res, err := h.orderService.ApplyManual(c.Context(), c.Params("id"), orderID)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedApplyManual, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessApplyManual)
}

func (h *orderHandler) EditManual(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedEditManual, err)
	}

	res, err := h.orderService.EditManual(c.Context(), c.Params("id"), orderID)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedEditManual, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessEditManual)
}

func (h *orderHandler) Submit(c *fiber.Ctx) error {
	res, err := h.orderService.Submit(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedSubmitOrders, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessSubmitOrders)
}

func (h *orderHandler) GetSubmissions(c *fiber.Ctx) error {
	manager := c.Query("manager")

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	items, count, err := h.orderService.GetSubmissions(c.Context(), manager, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedGetSubmissions, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"items": items,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetSubmissions)
}

func (h *orderHandler) GetManagers(c *fiber.Ctx) error {
	return presenters.SuccessResponse(c, h.orderService.Managers(), fiber.StatusOK, domain.MessageSuccessGetManagers)
}

func parseOrderID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("orderID"), 10, 64)
	if err != nil {
		return 0, domain.ErrParseID
	}
	return id, nil
}

func readFile(header *multipart.FileHeader) (compress.File, error) {
	f, err := header.Open()
	if err != nil {
		return compress.File{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return compress.File{}, err
	}
	return compress.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		ModTime:     time.Now(),
	}, nil
}

func statusFor(err error) int {
	var apiErr *backend.Error
	switch {
	case errors.Is(err, domain.ErrFormNotFound), errors.Is(err, domain.ErrOrderNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrSubmissionBlocked):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSubmissionInProgress),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrStaleResult),
		errors.Is(err, domain.ErrLastOrder):
		return fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, domain.ErrManualParseFailed), errors.As(err, &apiErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusBadRequest
	}
}
