package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core/policy"
	"github.com/internlink/backend/core/profile"
	"github.com/internlink/backend/core/school"
)

type schoolApi struct {
	svc      school.Service
	profSvc  profile.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{
		svc:      deps.SchoolSvc,
		profSvc:  deps.ProfileSvc,
		validate: deps.Validate,
	}

	// public: the school and course directories back the registration forms,
	// and anyone may ask to onboard a school.
	sg := g.Group("/schools")
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.GET("/:id/courses", api.queryCourses)
	g.GET("/courses/:id", api.retrieveCourse)

	rg := g.Group("/school-requests")
	rg.POST("", api.requestSchool)
	rg.GET("", api.querySchoolRequests, jwt, adminMiddleware())

	// authed, tenant-scoped
	sg.POST("", api.create, jwt, adminMiddleware())
	ag := sg.Group("/:id", jwt)
	ag.PUT("", api.update)
	ag.POST("/courses", api.createCourse)
	ag.GET("/folders", api.queryFolders)
	ag.POST("/folders", api.createFolder)
	ag.DELETE("/folders/:folderId", api.deleteFolder)
	ag.GET("/pending-teachers", api.queryPendingTeachers)
	ag.POST("/pending-teachers", api.inviteTeacher)
	ag.DELETE("/pending-teachers/:inviteId", api.revokeTeacherInvite)
	ag.GET("/approval-history", api.queryApprovalHistory)

	cg := g.Group("/courses/:id", jwt)
	cg.PUT("", api.updateCourse)
	cg.DELETE("", api.deleteCourse)
}

// authorize resolves the caller profile and runs the policy check for a
// school-scoped resource.
func (api *schoolApi) authorize(ctx echo.Context, action policy.Action, res policy.Resource, delta policy.FieldDelta) (profile.Profile, error) {
	caller, err := getContextProfile(ctx, api.profSvc)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "getting context profile")
	}
	if err = policy.Decide(caller, action, res, delta); err != nil {
		return profile.Profile{}, err
	}
	return caller, nil
}

// Handlers

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) query(ctx echo.Context) error {
	schools, err := api.svc.GetAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	sch, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) update(ctx echo.Context) error {
	schoolID := ctx.Param("id")
	sch, err := api.svc.GetByID(ctx.Request().Context(), schoolID)
	if err != nil {
		return err
	}

	var data school.UpdateSchool
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err = data.Validate(sch, api.validate); err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindSchool, ID: schoolID, SchoolID: schoolID}
	if _, err = api.authorize(ctx, policy.ActionUpdate, res, nil); err != nil {
		return err
	}

	sch, err = api.svc.Update(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

// Courses

func (api *schoolApi) createCourse(ctx echo.Context) error {
	schoolID := ctx.Param("id")

	var data school.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindCourse, SchoolID: schoolID}
	if _, err := api.authorize(ctx, policy.ActionCreate, res, nil); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *schoolApi) queryCourses(ctx echo.Context) error {
	courses, err := api.svc.QueryCourses(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []school.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *schoolApi) retrieveCourse(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *schoolApi) updateCourse(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data school.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindCourse, ID: crs.ID, SchoolID: crs.SchoolID}
	if _, err = api.authorize(ctx, policy.ActionUpdate, res, nil); err != nil {
		return err
	}

	crs, err = api.svc.UpdateCourse(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *schoolApi) deleteCourse(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindCourse, ID: crs.ID, SchoolID: crs.SchoolID}
	if _, err = api.authorize(ctx, policy.ActionDelete, res, nil); err != nil {
		return err
	}

	if err = api.svc.DeleteCourse(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Folders

func (api *schoolApi) queryFolders(ctx echo.Context) error {
	schoolID := ctx.Param("id")
	res := policy.Resource{Kind: policy.KindFolder, SchoolID: schoolID}
	if _, err := api.authorize(ctx, policy.ActionRead, res, nil); err != nil {
		return err
	}

	folders, err := api.svc.QueryFolders(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "querying folders")
	}
	if folders == nil {
		folders = []school.Folder{}
	}
	return ctx.JSON(http.StatusOK, folders)
}

func (api *schoolApi) createFolder(ctx echo.Context) error {
	schoolID := ctx.Param("id")

	var data school.NewFolder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFolder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindFolder, SchoolID: schoolID}
	if _, err := api.authorize(ctx, policy.ActionCreate, res, nil); err != nil {
		return err
	}

	fld, err := api.svc.CreateFolder(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating folder")
	}
	return ctx.JSON(http.StatusCreated, fld)
}

func (api *schoolApi) deleteFolder(ctx echo.Context) error {
	schoolID := ctx.Param("id")
	res := policy.Resource{Kind: policy.KindFolder, SchoolID: schoolID}
	if _, err := api.authorize(ctx, policy.ActionDelete, res, nil); err != nil {
		return err
	}

	// the folder must belong to the school the caller was authorized on
	folders, err := api.svc.QueryFolders(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "querying folders")
	}
	var found bool
	for _, fld := range folders {
		if fld.ID == ctx.Param("folderId") {
			found = true
			break
		}
	}
	if !found {
		return errHttpNotFound
	}

	if err = api.svc.DeleteFolder(ctx.Request().Context(), ctx.Param("folderId")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Pending teachers

func (api *schoolApi) queryPendingTeachers(ctx echo.Context) error {
	schoolID := ctx.Param("id")
	res := policy.Resource{Kind: policy.KindPendingTeacher, SchoolID: schoolID}
	if _, err := api.authorize(ctx, policy.ActionRead, res, nil); err != nil {
		return err
	}

	pts, err := api.svc.QueryPendingTeachers(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "querying pending teachers")
	}
	if pts == nil {
		pts = []school.PendingTeacher{}
	}
	return ctx.JSON(http.StatusOK, pts)
}

func (api *schoolApi) inviteTeacher(ctx echo.Context) error {
	schoolID := ctx.Param("id")

	var data school.NewPendingTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPendingTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindPendingTeacher, SchoolID: schoolID}
	caller, err := api.authorize(ctx, policy.ActionCreate, res, nil)
	if err != nil {
		return err
	}

	pt, err := api.svc.InviteTeacher(ctx.Request().Context(), schoolID, caller.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, pt)
}

func (api *schoolApi) revokeTeacherInvite(ctx echo.Context) error {
	schoolID := ctx.Param("id")
	res := policy.Resource{Kind: policy.KindPendingTeacher, SchoolID: schoolID}
	if _, err := api.authorize(ctx, policy.ActionDelete, res, nil); err != nil {
		return err
	}

	pts, err := api.svc.QueryPendingTeachers(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "querying pending teachers")
	}
	var found bool
	for _, pt := range pts {
		if pt.ID == ctx.Param("inviteId") {
			found = true
			break
		}
	}
	if !found {
		return errHttpNotFound
	}

	if err = api.svc.RevokeTeacherInvite(ctx.Request().Context(), ctx.Param("inviteId")); err != nil {
		return errors.Wrap(err, "revoking teacher invite")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Approval history

func (api *schoolApi) queryApprovalHistory(ctx echo.Context) error {
	schoolID := ctx.Param("id")
	res := policy.Resource{Kind: policy.KindApprovalHistory, SchoolID: schoolID}
	if _, err := api.authorize(ctx, policy.ActionRead, res, nil); err != nil {
		return err
	}

	entries, err := api.svc.QueryApprovalHistory(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "querying approval history")
	}
	if entries == nil {
		entries = []school.ApprovalHistory{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// School requests

func (api *schoolApi) requestSchool(ctx echo.Context) error {
	var data school.NewSchoolRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchoolRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sr, err := api.svc.RequestSchool(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "requesting school")
	}
	return ctx.JSON(http.StatusCreated, sr)
}

func (api *schoolApi) querySchoolRequests(ctx echo.Context) error {
	reqs, err := api.svc.QuerySchoolRequests(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying school requests")
	}
	if reqs == nil {
		reqs = []school.SchoolRequest{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}
