package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
	"github.com/Chavhanmoin/CrackBatu/internal/service"
)

// UserLister lists profiles within the scope of a gate decision.
type UserLister interface {
	ListUsers(ctx context.Context, d access.Decision) ([]profile.Profile, error)
	ListDepartment(ctx context.Context, d access.Decision, dept profile.Department) ([]profile.Profile, error)
}

// PageHandlers serves the gated portal pages. Every handler runs behind a
// Gatekeeper and reads the decision from the request context.
type PageHandlers struct {
	Directory UserLister
	Logger    *slog.Logger
}

func (h *PageHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Link is a navigation entry on a dashboard.
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

type pageBody struct {
	Page       string              `json:"page"`
	Profile    *profile.Profile    `json:"profile"`
	Grants     access.Grants       `json:"grants"`
	Department *profile.Department `json:"department,omitempty"`
	Links      []Link              `json:"links,omitempty"`
	Users      []profile.Profile   `json:"users,omitempty"`
}

func decisionOr500(w http.ResponseWriter, r *http.Request) (access.Decision, bool) {
	d, ok := DecisionFromContext(r.Context())
	if !ok || !d.Allowed() {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "gate_missing",
			Message: "page is not gated",
		})
		return d, false
	}
	return d, true
}

// Dashboard serves the student dashboard.
// GET /dashboard.
func (h *PageHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := decisionOr500(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, pageBody{Page: "dashboard", Profile: d.Profile, Grants: d.Grants})
}

// AdminDashboard serves the admin landing page with the links the viewer's
// grants allow.
// GET /admin/dashboard?dept=<department>.
func (h *PageHandlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := decisionOr500(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, pageBody{
		Page:       "admin_dashboard",
		Profile:    d.Profile,
		Grants:     d.Grants,
		Department: selectedDepartment(r, d),
		Links:      dashboardLinks(d),
	})
}

// selectedDepartment honours ?dept when the grants cover it. Department
// admins otherwise default to their own department.
func selectedDepartment(r *http.Request, d access.Decision) *profile.Department {
	if raw := r.URL.Query().Get("dept"); raw != "" {
		if dept, err := profile.ParseDepartment(raw); err == nil && d.Grants.AllowsDepartment(dept) {
			return &dept
		}
	}
	if !d.Grants.AllDepartments && len(d.Grants.Departments) == 1 {
		return profile.DepartmentPtr(d.Grants.Departments[0])
	}
	return nil
}

func departmentHref(dept profile.Department) string {
	return "/admin/departments/" + url.PathEscape(string(dept))
}

func dashboardLinks(d access.Decision) []Link {
	if d.Grants.AllDepartments {
		return []Link{
			{Label: "Manage All Departments", Href: "/admin/users"},
			{Label: "Approve Deletes", Href: "/admin/approvals"},
			{Label: "Edit or Delete Any Content"},
		}
	}
	if len(d.Grants.Departments) == 1 {
		return []Link{
			{Label: "Manage your Department", Href: departmentHref(d.Grants.Departments[0])},
			{Label: "Upload or Edit Content"},
			{Label: "Delete requires Super Admin Approval"},
		}
	}
	return nil
}

// Users lists the profiles the viewer may see.
// GET /admin/users.
func (h *PageHandlers) Users(w http.ResponseWriter, r *http.Request) {
	d, ok := decisionOr500(w, r)
	if !ok {
		return
	}
	users, err := h.Directory.ListUsers(r.Context(), d)
	if err != nil {
		h.writeListError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, pageBody{Page: "users", Profile: d.Profile, Grants: d.Grants, Users: users})
}

// Department lists one department's profiles.
// GET /admin/departments/{dept}.
func (h *PageHandlers) Department(w http.ResponseWriter, r *http.Request) {
	d, ok := decisionOr500(w, r)
	if !ok {
		return
	}
	dept, err := profile.ParseDepartment(r.PathValue("dept"))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
		return
	}
	users, err := h.Directory.ListDepartment(r.Context(), d, dept)
	if err != nil {
		h.writeListError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, pageBody{
		Page:       "department",
		Profile:    d.Profile,
		Grants:     d.Grants,
		Department: &dept,
		Users:      users,
	})
}

// Approvals serves the super admin's delete approval page.
// GET /admin/approvals.
func (h *PageHandlers) Approvals(w http.ResponseWriter, r *http.Request) {
	d, ok := decisionOr500(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, pageBody{Page: "approvals", Profile: d.Profile, Grants: d.Grants})
}

func (h *PageHandlers) writeListError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrListingNotPermitted):
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "forbidden",
			Message: "You do not have access to this page.",
		})
	case profile.IsFetchError(err):
		h.logger().ErrorContext(r.Context(), "list profiles failed", "path", r.URL.Path, "error", err)
		WriteError(w, ErrorParams{
			Code:      http.StatusServiceUnavailable,
			ErrCode:   "profile_unavailable",
			Message:   "Profiles could not be loaded. Please try again.",
			Retryable: true,
		})
	default:
		h.logger().ErrorContext(r.Context(), "list profiles failed", "path", r.URL.Path, "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: err})
	}
}

// departmentRequirement builds the requirement for /admin/departments/{dept}.
// Unknown departments are reported as missing pages.
func departmentRequirement(r *http.Request) (access.Requirement, error) {
	dept, err := profile.ParseDepartment(r.PathValue("dept"))
	if err != nil {
		return access.Requirement{}, fmt.Errorf("%w: %w", errPageNotFound, err)
	}
	return access.Requirement{
		Capability: access.CapabilityDepartmentScope,
		Audience:   access.AudienceAdmin,
		Department: &dept,
	}, nil
}
