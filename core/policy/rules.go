package policy

import "github.com/internlink/backend/core/profile"

// The rule table. First allow wins; no match denies.
var rules = []rule{
	// ------------------------------------------------------------------ profiles

	// anyone may read their own profile...
	{anyRole, KindProfile, ActionRead, func(caller profile.Profile, res Resource, _ FieldDelta) bool {
		return res.ID == caller.ID
	}},
	// ...and update its non-privileged fields. Role, estado and school are
	// never self-mutable regardless of the caller's role.
	{anyRole, KindProfile, ActionUpdate, func(caller profile.Profile, res Resource, delta FieldDelta) bool {
		if res.ID != caller.ID {
			return false
		}
		for _, fld := range privilegedProfileFields {
			if delta.has(fld) {
				return false
			}
		}
		return true
	}},

	// active same-school teachers and school admins may read any profile in
	// their own school. Cross-tenant reads fall through to a denial.
	{profile.RoleTeacher, KindProfile, ActionRead, sameSchoolProfileRead},
	{profile.RoleSchoolAdmin, KindProfile, ActionRead, sameSchoolProfileRead},

	// approvers may update only the estado of student profiles in their school.
	{profile.RoleTeacher, KindProfile, ActionUpdate, approverEstadoUpdate},
	{profile.RoleSchoolAdmin, KindProfile, ActionUpdate, approverEstadoUpdate},
	// school admins additionally approve their own teachers.
	{profile.RoleSchoolAdmin, KindProfile, ActionUpdate, func(caller profile.Profile, res Resource, delta FieldDelta) bool {
		return caller.IsActive() && caller.SchoolID != "" && res.SchoolID == caller.SchoolID &&
			res.Role == profile.RoleTeacher && delta.only("estado")
	}},

	// ------------------------------------------------------------------- schools

	{anyRole, KindSchool, ActionRead, func(profile.Profile, Resource, FieldDelta) bool {
		return true // the school directory is public (names & registration policy)
	}},
	{profile.RoleSchoolAdmin, KindSchool, ActionUpdate, ownSchool},

	{profile.RoleSchoolAdmin, KindFolder, ActionRead, ownSchool},
	{profile.RoleSchoolAdmin, KindFolder, ActionCreate, ownSchool},
	{profile.RoleSchoolAdmin, KindFolder, ActionDelete, ownSchool},

	{profile.RoleSchoolAdmin, KindPendingTeacher, ActionRead, ownSchool},
	{profile.RoleSchoolAdmin, KindPendingTeacher, ActionCreate, ownSchool},
	{profile.RoleSchoolAdmin, KindPendingTeacher, ActionDelete, ownSchool},
	{profile.RoleTeacher, KindPendingTeacher, ActionRead, activeOwnSchool},

	{profile.RoleSchoolAdmin, KindApprovalHistory, ActionRead, ownSchool},
	{profile.RoleTeacher, KindApprovalHistory, ActionRead, activeOwnSchool},

	// anyone, even unauthenticated, may ask to onboard a school.
	{anyRole, KindSchoolRequest, ActionCreate, func(profile.Profile, Resource, FieldDelta) bool {
		return true
	}},

	// ------------------------------------------------------------------- courses

	{anyRole, KindCourse, ActionRead, func(profile.Profile, Resource, FieldDelta) bool {
		return true // course listings back the registration forms
	}},
	{profile.RoleSchoolAdmin, KindCourse, ActionCreate, ownSchool},
	{profile.RoleSchoolAdmin, KindCourse, ActionUpdate, ownSchool},
	{profile.RoleSchoolAdmin, KindCourse, ActionDelete, ownSchool},

	// --------------------------------------------------------------- internships

	{profile.RoleStudent, KindInternship, ActionRead, func(caller profile.Profile, res Resource, _ FieldDelta) bool {
		return res.StudentID == caller.ID
	}},
	{profile.RoleTutor, KindInternship, ActionRead, tutorOnInternship},
	{profile.RoleTeacher, KindInternship, ActionRead, activeOwnSchool},
	{profile.RoleSchoolAdmin, KindInternship, ActionRead, ownSchool},
	{profile.RoleTeacher, KindInternship, ActionCreate, activeOwnSchool},
	{profile.RoleSchoolAdmin, KindInternship, ActionCreate, ownSchool},
	{profile.RoleTeacher, KindInternship, ActionUpdate, activeOwnSchool},
	{profile.RoleSchoolAdmin, KindInternship, ActionUpdate, ownSchool},
	{profile.RoleTutor, KindInternship, ActionUpdate, func(caller profile.Profile, res Resource, delta FieldDelta) bool {
		// tutors report hours on their own internships, nothing else
		return tutorOnInternship(caller, res, delta) && delta.only("completed_hours")
	}},

	// ----------------------------------------------------------------- documents

	{profile.RoleStudent, KindDocument, ActionRead, func(caller profile.Profile, res Resource, _ FieldDelta) bool {
		// tutor-only documents are invisible to the student
		return res.StudentID == caller.ID && res.Visibility != VisibilityTutors
	}},
	{profile.RoleTutor, KindDocument, ActionRead, tutorOnInternship},
	{profile.RoleTeacher, KindDocument, ActionRead, activeOwnSchool},
	{profile.RoleSchoolAdmin, KindDocument, ActionRead, ownSchool},
	{profile.RoleTeacher, KindDocument, ActionCreate, activeOwnSchool},
	{profile.RoleSchoolAdmin, KindDocument, ActionCreate, ownSchool},
	{profile.RoleTeacher, KindDocument, ActionUpdate, activeOwnSchool},
	{profile.RoleSchoolAdmin, KindDocument, ActionUpdate, ownSchool},
	// signing is an update restricted to the signer's own signature slot
	{profile.RoleStudent, KindDocument, ActionUpdate, func(caller profile.Profile, res Resource, delta FieldDelta) bool {
		return res.StudentID == caller.ID && res.Visibility != VisibilityTutors && delta.only("signature")
	}},
	{profile.RoleTutor, KindDocument, ActionUpdate, func(caller profile.Profile, res Resource, delta FieldDelta) bool {
		return tutorOnInternship(caller, res, delta) && delta.only("signature")
	}},

	// ------------------------------------------------------------------- reports

	{profile.RoleStudent, KindReport, ActionRead, ownReport},
	{profile.RoleStudent, KindReport, ActionCreate, ownReport},
	{profile.RoleStudent, KindReport, ActionUpdate, ownReport},
	{profile.RoleStudent, KindReport, ActionDelete, ownReport},
	{profile.RoleTeacher, KindReport, ActionRead, activeOwnSchool},
	{profile.RoleSchoolAdmin, KindReport, ActionRead, ownSchool},
}

// VisibilityTutors marks documents only company tutors may see.
const VisibilityTutors = "tutores"

func sameSchoolProfileRead(caller profile.Profile, res Resource, _ FieldDelta) bool {
	return caller.IsActive() && caller.SchoolID != "" && res.SchoolID == caller.SchoolID
}

// approverEstadoUpdate is the approval path: active same-school approvers may
// flip estado on student profiles, and touch nothing else.
func approverEstadoUpdate(caller profile.Profile, res Resource, delta FieldDelta) bool {
	if !caller.IsActive() || caller.SchoolID == "" || res.SchoolID != caller.SchoolID {
		return false
	}
	if res.Role != profile.RoleStudent {
		return false
	}
	return delta.only("estado")
}

func ownSchool(caller profile.Profile, res Resource, _ FieldDelta) bool {
	return caller.SchoolID != "" && res.SchoolID == caller.SchoolID
}

func activeOwnSchool(caller profile.Profile, res Resource, _ FieldDelta) bool {
	return caller.IsActive() && caller.SchoolID != "" && res.SchoolID == caller.SchoolID
}

func tutorOnInternship(caller profile.Profile, res Resource, _ FieldDelta) bool {
	return res.TutorID != "" && res.TutorID == caller.ID
}

func ownReport(caller profile.Profile, res Resource, _ FieldDelta) bool {
	return res.OwnerID == caller.ID
}
