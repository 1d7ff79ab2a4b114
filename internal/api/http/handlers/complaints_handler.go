package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/complaints-service/internal/api/dto"
	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/service"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

// ComplaintsHandler exposes the complaint lifecycle endpoints.
type ComplaintsHandler struct {
	complaints  *service.ComplaintService
	assignment  *service.AssignmentService
	attachments *service.AttachmentService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaints *service.ComplaintService, assignment *service.AssignmentService, attachments *service.AttachmentService) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaints, assignment: assignment, attachments: attachments}
}

// Create handles POST /api/complaints with either a JSON body or a multipart
// form carrying files under "attachments".
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	var uploads []service.Upload
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return invalidPayload()
		}
		for _, fh := range form.File["attachments"] {
			uploads = append(uploads, fileUpload(fh))
		}
	}

	complaint, err := h.complaints.CreateComplaint(c.UserContext(), identity, service.ComplaintInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Province:    req.Province,
		District:    req.District,
		Sector:      req.Sector,
		Priority:    req.Priority,
	}, uploads)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintResponse(complaint, identity)})
}

func fileUpload(fh *multipart.FileHeader) service.Upload {
	return service.Upload{
		FileName: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// List handles GET /api/complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	query, err := complaintQuery(c)
	if err != nil {
		return err
	}

	page, err := h.complaints.ListComplaints(c.UserContext(), identity, query)
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, complaintResponse(&page.Items[i], identity))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"pagination": dto.Pagination{
			Page:     page.Offset/page.Limit + 1,
			PageSize: page.Limit,
			Total:    page.Total,
		},
	})
}

func complaintQuery(c *fiber.Ctx) (service.ComplaintQuery, error) {
	fields := apperrors.FieldErrors{}
	var query service.ComplaintQuery

	for _, raw := range splitList(queryValues(c, "status")...) {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			fields.Add("status", "unknown status "+raw)
			continue
		}
		query.Statuses = append(query.Statuses, status)
	}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category := domain.Category(strings.ToLower(raw))
		if !category.Valid() {
			fields.Add("category", "unknown category "+raw)
		} else {
			query.Category = &category
		}
	}
	if agencyID := strings.TrimSpace(c.Query("agency_id")); agencyID != "" {
		query.AgencyID = &agencyID
	}
	query.SearchTerm = strings.TrimSpace(c.Query("search"))

	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	page := parseInt(c.Query("page"), 1)
	query.Limit = pageSize
	query.Offset = (page - 1) * pageSize

	return query, fields.Err()
}

// Get handles GET /api/complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	complaint, err := h.complaints.GetComplaint(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint, identity)})
}

// Update handles PUT /api/complaints/:id. An agency change is applied before
// a status change so an admin can route and accept in one call. The status
// change is checked first so a rejected body writes nothing.
func (h *ComplaintsHandler) Update(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.Status == nil && req.AgencyID == nil {
		return apperrors.NewValidationError("status or agency_id is required", nil)
	}

	ctx := c.UserContext()
	id := c.Params("id")
	var target domain.ComplaintStatus
	if req.Status != nil {
		target = domain.ComplaintStatus(strings.TrimSpace(*req.Status))
	}
	if req.Status != nil && req.AgencyID != nil {
		agencyID := strings.TrimSpace(*req.AgencyID)
		if err := h.complaints.CheckTransition(ctx, identity, id, target, &agencyID); err != nil {
			return err
		}
	}

	var complaint *domain.Complaint
	if req.AgencyID != nil {
		if complaint, err = h.assignment.AssignAgency(ctx, identity, id, *req.AgencyID); err != nil {
			return err
		}
	}
	if req.Status != nil {
		if complaint, err = h.complaints.Transition(ctx, identity, id, target, req.Note); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint, identity)})
}

// UpdateStatus handles PUT /api/complaints/:id/status.
func (h *ComplaintsHandler) UpdateStatus(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	complaint, err := h.complaints.Transition(c.UserContext(), identity, c.Params("id"), domain.ComplaintStatus(strings.TrimSpace(req.Status)), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint, identity)})
}

// Assign handles PUT /api/complaints/:id/agency.
func (h *ComplaintsHandler) Assign(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	complaint, err := h.assignment.AssignAgency(c.UserContext(), identity, c.Params("id"), req.AgencyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint, identity)})
}

// History handles GET /api/complaints/:id/history.
func (h *ComplaintsHandler) History(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	entries, err := h.complaints.History(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// ListResponses handles GET /api/complaints/:id/responses.
func (h *ComplaintsHandler) ListResponses(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	responses, err := h.complaints.ListResponses(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.ThreadMessageResponse, 0, len(responses))
	for i := range responses {
		resp = append(resp, threadResponse(&responses[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AddResponse handles POST /api/complaints/:id/responses.
func (h *ComplaintsHandler) AddResponse(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	response, err := h.complaints.AddResponse(c.UserContext(), identity, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": threadResponse(response)})
}

// Attachment handles GET /api/complaints/:id/attachments/* and streams the
// stored file.
func (h *ComplaintsHandler) Attachment(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	handle, err := url.PathUnescape(c.Params("*"))
	if err != nil || handle == "" {
		return apperrors.NewNotFound("attachment", nil)
	}

	body, ref, err := h.attachments.Open(c.UserContext(), identity, c.Params("id"), handle)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, ref.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+strings.ReplaceAll(ref.FileName, `"`, "")+`"`)
	return c.SendStream(body, int(ref.SizeBytes))
}
