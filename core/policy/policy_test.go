package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/profile"
)

const (
	schoolA = "11111111-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	schoolB = "22222222-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
)

func prof(id, role, estado, schoolID string) profile.Profile {
	return profile.Profile{ID: id, Role: role, Estado: estado, SchoolID: schoolID}
}

func profileRes(p profile.Profile) Resource {
	return Resource{Kind: KindProfile, ID: p.ID, SchoolID: p.SchoolID, OwnerID: p.ID, Role: p.Role}
}

func TestDecide_crossTenantDenial(t *testing.T) {
	student := prof("stu-b", profile.RoleStudent, profile.EstadoPendente, schoolB)
	target := profileRes(student)

	tests := []struct {
		name   string
		caller profile.Profile
		action Action
		delta  FieldDelta
	}{
		{name: "teacher A reads profile B", caller: prof("t-a", profile.RoleTeacher, profile.EstadoAtivo, schoolA), action: ActionRead},
		{name: "school admin A reads profile B", caller: prof("sa-a", profile.RoleSchoolAdmin, profile.EstadoAtivo, schoolA), action: ActionRead},
		{
			name:   "teacher A approves student B",
			caller: prof("t-a", profile.RoleTeacher, profile.EstadoAtivo, schoolA),
			action: ActionUpdate,
			delta:  FieldDelta{"estado": profile.EstadoAtivo},
		},
		{
			name:   "school admin A approves student B",
			caller: prof("sa-a", profile.RoleSchoolAdmin, profile.EstadoAtivo, schoolA),
			action: ActionUpdate,
			delta:  FieldDelta{"estado": profile.EstadoAtivo},
		},
		{
			name:   "teacher B reads pendingTeachers under school A",
			caller: prof("t-b", profile.RoleTeacher, profile.EstadoAtivo, schoolB),
			action: ActionRead,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := target
			if tt.name == "teacher B reads pendingTeachers under school A" {
				res = Resource{Kind: KindPendingTeacher, SchoolID: schoolA}
			}
			err := Decide(tt.caller, tt.action, res, tt.delta)
			assert.Equal(t, core.ErrPermissionDenied, err)
		})
	}
}

func TestDecide_sameSchoolApproval(t *testing.T) {
	student := prof("stu-a", profile.RoleStudent, profile.EstadoPendente, schoolA)
	target := profileRes(student)
	delta := FieldDelta{"estado": profile.EstadoAtivo}

	assert.NoError(t, Decide(prof("t-a", profile.RoleTeacher, profile.EstadoAtivo, schoolA), ActionUpdate, target, delta))
	assert.NoError(t, Decide(prof("sa-a", profile.RoleSchoolAdmin, profile.EstadoAtivo, schoolA), ActionUpdate, target, delta))

	// a pendente teacher cannot approve
	err := Decide(prof("t-a2", profile.RoleTeacher, profile.EstadoPendente, schoolA), ActionUpdate, target, delta)
	assert.Equal(t, core.ErrPermissionDenied, err)

	// approvers cannot touch anything besides estado
	err = Decide(prof("t-a", profile.RoleTeacher, profile.EstadoAtivo, schoolA), ActionUpdate, target,
		FieldDelta{"estado": profile.EstadoAtivo, "school_id": schoolB})
	assert.Equal(t, core.ErrPermissionDenied, err)

	// approval is for student targets; a teacher cannot approve another teacher
	teacher := prof("t-x", profile.RoleTeacher, profile.EstadoPendente, schoolA)
	err = Decide(prof("t-a", profile.RoleTeacher, profile.EstadoAtivo, schoolA), ActionUpdate, profileRes(teacher), delta)
	assert.Equal(t, core.ErrPermissionDenied, err)

	// ...but their school admin can
	assert.NoError(t, Decide(prof("sa-a", profile.RoleSchoolAdmin, profile.EstadoAtivo, schoolA), ActionUpdate, profileRes(teacher), delta))
}

func TestDecide_selfMutation(t *testing.T) {
	for _, role := range profile.AllRoles {
		if role == profile.RoleAdmin {
			continue // platform admins bypass the table
		}
		caller := prof("self", role, profile.EstadoAtivo, schoolA)
		target := profileRes(caller)

		// non-privileged self-update is fine
		assert.NoError(t, Decide(caller, ActionUpdate, target, FieldDelta{"name": "New Name", "phone": "+351..."}), role)
		// reading own profile is fine even when not ativo
		pending := prof("self", role, profile.EstadoPendente, schoolA)
		assert.NoError(t, Decide(pending, ActionRead, profileRes(pending), nil), role)

		for _, fld := range []string{"role", "estado", "school_id"} {
			err := Decide(caller, ActionUpdate, target, FieldDelta{fld: "whatever"})
			assert.Equal(t, core.ErrPermissionDenied, err, "%s must not self-mutate %s", role, fld)
		}
	}
}

func TestDecide_documents(t *testing.T) {
	student := prof("stu", profile.RoleStudent, profile.EstadoAtivo, schoolA)
	tutor := prof("tut", profile.RoleTutor, profile.EstadoAtivo, "")
	other := prof("tut2", profile.RoleTutor, profile.EstadoAtivo, "")

	shared := Resource{Kind: KindDocument, SchoolID: schoolA, StudentID: student.ID, TutorID: tutor.ID, Visibility: "todos"}
	tutorOnly := Resource{Kind: KindDocument, SchoolID: schoolA, StudentID: student.ID, TutorID: tutor.ID, Visibility: VisibilityTutors}

	assert.NoError(t, Decide(student, ActionRead, shared, nil))
	assert.NoError(t, Decide(tutor, ActionRead, shared, nil))
	assert.NoError(t, Decide(tutor, ActionRead, tutorOnly, nil))
	assert.Equal(t, core.ErrPermissionDenied, Decide(student, ActionRead, tutorOnly, nil))
	assert.Equal(t, core.ErrPermissionDenied, Decide(other, ActionRead, shared, nil))

	// signing: own slot only
	assert.NoError(t, Decide(student, ActionUpdate, shared, FieldDelta{"signature": "aluno"}))
	assert.Equal(t, core.ErrPermissionDenied, Decide(student, ActionUpdate, shared, FieldDelta{"signature": "aluno", "title": "x"}))
}

func TestDecide_reports(t *testing.T) {
	student := prof("stu", profile.RoleStudent, profile.EstadoAtivo, schoolA)
	rep := Resource{Kind: KindReport, SchoolID: schoolA, OwnerID: student.ID}

	for _, action := range []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete} {
		assert.NoError(t, Decide(student, action, rep, nil), action.String())
	}

	intruder := prof("stu2", profile.RoleStudent, profile.EstadoAtivo, schoolA)
	assert.Equal(t, core.ErrPermissionDenied, Decide(intruder, ActionRead, rep, nil))

	teacher := prof("t", profile.RoleTeacher, profile.EstadoAtivo, schoolA)
	assert.NoError(t, Decide(teacher, ActionRead, rep, nil))
	assert.Equal(t, core.ErrPermissionDenied, Decide(teacher, ActionDelete, rep, nil))
}

func TestDecide_adminBypassesTenancy(t *testing.T) {
	admin := prof("root", profile.RoleAdmin, profile.EstadoAtivo, "")
	for _, kind := range []Kind{KindProfile, KindSchool, KindCourse, KindInternship, KindDocument, KindReport} {
		assert.NoError(t, Decide(admin, ActionUpdate, Resource{Kind: kind, SchoolID: schoolB}, FieldDelta{"estado": "x"}))
	}
}

func TestDecide_denyByDefault(t *testing.T) {
	caller := prof("x", profile.RoleStudent, profile.EstadoAtivo, schoolA)
	// unknown kind matches no rule
	err := Decide(caller, ActionRead, Resource{Kind: Kind("unknown")}, nil)
	assert.Equal(t, core.ErrPermissionDenied, err)
	// deletes on profiles are never allowed below platform admin
	err = Decide(prof("sa", profile.RoleSchoolAdmin, profile.EstadoAtivo, schoolA), ActionDelete, Resource{Kind: KindProfile, SchoolID: schoolA}, nil)
	assert.Equal(t, core.ErrPermissionDenied, err)
}
