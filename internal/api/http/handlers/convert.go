package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/complaints-service/internal/api/dto"
	"github.com/civicdesk/complaints-service/internal/auth"
	"github.com/civicdesk/complaints-service/internal/domain"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

func currentIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthenticated("authentication required")
	}
	return identity, nil
}

func invalidPayload() error {
	return apperrors.NewValidationError("invalid payload", nil)
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// queryValues returns every value of a repeated query parameter.
func queryValues(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		out = append(out, string(raw))
	}
	return out
}

// splitList parses comma separated and repeated query values.
func splitList(values ...string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func userResponse(user *domain.User, maskNationalID bool) dto.UserResponse {
	var parent *string
	if user.ParentRole != nil {
		role := string(*user.ParentRole)
		parent = &role
	}
	nationalID := user.NationalID
	if maskNationalID {
		nationalID = domain.MaskNationalID(nationalID)
	}
	return dto.UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		NationalID:  nationalID,
		PhoneNumber: user.PhoneNumber,
		Role:        string(user.Role),
		ParentRole:  parent,
		Active:      user.Active,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func authResponse(token domain.Token) dto.AuthResponse {
	return dto.AuthResponse{Token: token.Value, TokenType: "bearer", ExpiresAt: token.ExpiresAt}
}

func complaintResponse(complaint *domain.Complaint, viewer domain.Identity) dto.ComplaintResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(complaint.Attachments))
	for _, ref := range complaint.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			Handle:      ref.Handle,
			FileName:    ref.FileName,
			ContentType: ref.ContentType,
			SizeBytes:   ref.SizeBytes,
			URL:         "/api/complaints/" + url.PathEscape(complaint.ID) + "/attachments/" + ref.Handle,
		})
	}
	next := []string{}
	if viewer.Role != domain.RoleAgencyAdmin || viewer.ManagesAgency(complaint.AgencyID) {
		for _, status := range domain.NextStatuses(complaint.Status, viewer.Role) {
			next = append(next, string(status))
		}
	}
	return dto.ComplaintResponse{
		ID:          complaint.ID,
		Title:       complaint.Title,
		Description: complaint.Description,
		Category:    string(complaint.Category),
		Location: dto.LocationResponse{
			Province: complaint.Location.Province,
			District: complaint.Location.District,
			Sector:   complaint.Location.Sector,
		},
		Priority:      int(complaint.Priority),
		PriorityLabel: complaint.Priority.Label(),
		Status:        string(complaint.Status),
		SubmitterID:   complaint.SubmitterID,
		AgencyID:      complaint.AgencyID,
		Attachments:   attachments,
		NextStatuses:  next,
		CreatedAt:     complaint.CreatedAt,
		UpdatedAt:     complaint.UpdatedAt,
		ResolvedAt:    complaint.ResolvedAt,
	}
}

func historyResponses(entries []domain.ComplaintHistory) []dto.HistoryResponse {
	resp := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.HistoryResponse{
			ID:         entry.ID,
			ActorID:    entry.ActorID,
			ActorRole:  string(entry.ActorRole),
			ChangeType: string(entry.ChangeType),
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}

func threadResponse(response *domain.ComplaintResponse) dto.ThreadMessageResponse {
	return dto.ThreadMessageResponse{
		ID:         response.ID,
		AuthorID:   response.AuthorID,
		AuthorRole: string(response.AuthorRole),
		Message:    response.Message,
		CreatedAt:  response.CreatedAt,
	}
}

func agencyResponse(agency *domain.Agency) dto.AgencyResponse {
	categories := make([]string, 0, len(agency.Categories))
	for _, category := range agency.Categories {
		categories = append(categories, string(category))
	}
	return dto.AgencyResponse{
		ID:           agency.ID,
		Name:         agency.Name,
		Description:  agency.Description,
		ContactEmail: agency.ContactEmail,
		ContactPhone: agency.ContactPhone,
		AdminID:      agency.AdminID,
		Categories:   categories,
		CreatedAt:    agency.CreatedAt,
		UpdatedAt:    agency.UpdatedAt,
	}
}
