// Package policy is the explicit authorization layer: every data-access code
// path asks it whether the calling profile may perform an operation on a
// resource. Evaluation is pure (the engine never mutates state) and
// deny-by-default: the absence of a matching allow rule is a denial, and all
// denials are the same uniform error so callers cannot learn which rule failed.
//
// The caller profile handed to Decide must always be the one looked up
// server-side from the authenticated session subject, never one asserted by
// the client.
package policy

import (
	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/profile"
)

// Action is the operation being attempted on a resource.
type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Kind identifies the type of resource under a logical document path.
type Kind string

const (
	KindProfile         Kind = "users"
	KindSchool          Kind = "schools"
	KindFolder          Kind = "schools/folders"
	KindPendingTeacher  Kind = "schools/pendingTeachers"
	KindApprovalHistory Kind = "schools/approvalHistory"
	KindCourse          Kind = "courses"
	KindInternship      Kind = "estagios"
	KindDocument        Kind = "documentos"
	KindReport          Kind = "internshipReports"
	KindSchoolRequest   Kind = "schoolRequests"
)

// Resource describes the target of an operation. Only the fields relevant to
// the Kind need to be set.
type Resource struct {
	Kind     Kind
	ID       string
	SchoolID string // tenant partition of the target
	OwnerID  string // profile that owns the resource (the profile itself, a report's student, ...)

	// profile targets
	Role string

	// internship-scoped targets
	StudentID  string
	TeacherID  string
	TutorID    string
	Visibility string // documents: "todos" | "tutores"
}

// FieldDelta is the set of fields a write proposes to change, keyed by the
// stored field name.
type FieldDelta map[string]interface{}

func (d FieldDelta) has(field string) bool {
	_, ok := d[field]
	return ok
}

// only reports whether the delta touches no field outside the given set.
func (d FieldDelta) only(fields ...string) bool {
	for key := range d {
		var ok bool
		for _, fld := range fields {
			if key == fld {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// privileged profile fields no caller may self-mutate.
var privilegedProfileFields = []string{"role", "estado", "school_id"}

// Decide evaluates the rule table for the caller/resource/action triple.
// It returns nil when some rule allows the operation and
// core.ErrPermissionDenied otherwise.
func Decide(caller profile.Profile, action Action, res Resource, delta FieldDelta) error {
	// platform admins bypass tenancy; callers audit this via the logger.
	if caller.IsAdmin() {
		return nil
	}

	for _, r := range rules {
		if r.role != anyRole && r.role != caller.Role {
			continue
		}
		if r.kind != res.Kind || r.action != action {
			continue
		}
		if r.allow(caller, res, delta) {
			return nil
		}
	}
	return core.ErrPermissionDenied
}

const anyRole = "*"

type rule struct {
	role   string // profile role or anyRole
	kind   Kind
	action Action
	allow  func(caller profile.Profile, res Resource, delta FieldDelta) bool
}
