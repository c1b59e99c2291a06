package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core/internship"
	"github.com/internlink/backend/core/policy"
	"github.com/internlink/backend/core/profile"
)

type internshipApi struct {
	svc      internship.Service
	profSvc  profile.Service
	validate *validator.Validate
}

func registerInternshipAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := internshipApi{
		svc:      deps.InternshipSvc,
		profSvc:  deps.ProfileSvc,
		validate: deps.Validate,
	}

	ig := g.Group("/internships", jwt)
	ig.POST("", api.create)
	ig.GET("", api.query)
	ig.GET("/:id", api.retrieve)
	ig.PUT("/:id", api.update)
	ig.GET("/:id/documents", api.queryDocuments)
	ig.POST("/:id/documents", api.addDocument)
	ig.GET("/:id/reports", api.queryReports)

	dg := g.Group("/documents", jwt)
	dg.GET("/:id", api.retrieveDocument)
	dg.POST("/:id/sign", api.signDocument)

	pg := g.Group("/reports", jwt)
	pg.POST("", api.createReport)
	pg.GET("/:id", api.retrieveReport)
	pg.PUT("/:id", api.updateReport)
	pg.DELETE("/:id", api.deleteReport)
}

func (api *internshipApi) caller(ctx echo.Context) (profile.Profile, error) {
	prof, err := getContextProfile(ctx, api.profSvc)
	return prof, errors.Wrap(err, "getting context profile")
}

// Handlers

func (api *internshipApi) create(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	var data internship.NewInternship
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInternship")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	// placements live in the creating staff member's school; platform admins
	// name the school explicitly.
	schoolID := caller.SchoolID
	if caller.IsAdmin() {
		schoolID = ctx.QueryParam("school_id")
	}

	res := policy.Resource{Kind: policy.KindInternship, SchoolID: schoolID, StudentID: data.StudentID}
	if err = policy.Decide(caller, policy.ActionCreate, res, nil); err != nil {
		return err
	}

	itn, err := api.svc.Create(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating internship")
	}
	return ctx.JSON(http.StatusCreated, itn)
}

func (api *internshipApi) query(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	var itns []internship.Internship
	switch {
	case caller.IsStudent():
		itns, err = api.svc.QueryByStudent(ctx.Request().Context(), caller.ID)
	case caller.IsTutor():
		itns, err = api.svc.QueryByTutor(ctx.Request().Context(), caller.ID)
	case caller.IsAdmin():
		itns, err = api.svc.QueryBySchool(ctx.Request().Context(), ctx.QueryParam("school_id"))
	default:
		itns, err = api.svc.QueryBySchool(ctx.Request().Context(), caller.SchoolID)
	}
	if err != nil {
		return errors.Wrap(err, "querying internships")
	}
	if itns == nil {
		itns = []internship.Internship{}
	}
	return ctx.JSON(http.StatusOK, itns)
}

func (api *internshipApi) retrieve(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	itn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = policy.Decide(caller, policy.ActionRead, internshipResource(itn), nil); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, itn)
}

func (api *internshipApi) update(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	itn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data internship.UpdateInternship
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInternship")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = policy.Decide(caller, policy.ActionUpdate, internshipResource(itn), internshipDelta(data)); err != nil {
		return err
	}

	itn, err = api.svc.Update(ctx.Request().Context(), itn.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating internship")
	}
	return ctx.JSON(http.StatusOK, itn)
}

// Documents

func (api *internshipApi) addDocument(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	itn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data internship.NewDocument
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocument")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindDocument, SchoolID: itn.SchoolID, StudentID: itn.StudentID, TutorID: itn.TutorID}
	if err = policy.Decide(caller, policy.ActionCreate, res, nil); err != nil {
		return err
	}

	doc, err := api.svc.AddDocument(ctx.Request().Context(), itn.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

// queryDocuments lists an internship's documents, dropping those the caller's
// role may not see (tutor-only documents are invisible to the student).
func (api *internshipApi) queryDocuments(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	itn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = policy.Decide(caller, policy.ActionRead, internshipResource(itn), nil); err != nil {
		return err
	}

	docs, err := api.svc.QueryDocuments(ctx.Request().Context(), itn.ID)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}

	visible := make([]internship.Document, 0, len(docs))
	for _, doc := range docs {
		if policy.Decide(caller, policy.ActionRead, documentResource(doc, itn), nil) == nil {
			visible = append(visible, doc)
		}
	}
	return ctx.JSON(http.StatusOK, visible)
}

func (api *internshipApi) retrieveDocument(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	doc, err := api.svc.GetDocument(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	itn, err := api.svc.GetByID(ctx.Request().Context(), doc.InternshipID)
	if err != nil {
		return err
	}
	if err = policy.Decide(caller, policy.ActionRead, documentResource(doc, itn), nil); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *internshipApi) signDocument(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	doc, err := api.svc.GetDocument(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	itn, err := api.svc.GetByID(ctx.Request().Context(), doc.InternshipID)
	if err != nil {
		return err
	}

	delta := policy.FieldDelta{"signature": caller.Role}
	if err = policy.Decide(caller, policy.ActionUpdate, documentResource(doc, itn), delta); err != nil {
		return err
	}

	doc, err = api.svc.Sign(ctx.Request().Context(), caller, doc.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, doc)
}

// Reports

func (api *internshipApi) createReport(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	var data internship.NewReport
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	itn, err := api.svc.GetByID(ctx.Request().Context(), data.InternshipID)
	if err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindReport, SchoolID: itn.SchoolID, OwnerID: itn.StudentID}
	if err = policy.Decide(caller, policy.ActionCreate, res, nil); err != nil {
		return err
	}

	rep, err := api.svc.CreateReport(ctx.Request().Context(), itn.StudentID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rep)
}

func (api *internshipApi) queryReports(ctx echo.Context) error {
	caller, err := api.caller(ctx)
	if err != nil {
		return err
	}

	itn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	res := policy.Resource{Kind: policy.KindReport, SchoolID: itn.SchoolID, OwnerID: itn.StudentID}
	if err = policy.Decide(caller, policy.ActionRead, res, nil); err != nil {
		return err
	}

	reps, err := api.svc.QueryReportsByInternship(ctx.Request().Context(), itn.ID)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if reps == nil {
		reps = []internship.Report{}
	}
	return ctx.JSON(http.StatusOK, reps)
}

func (api *internshipApi) retrieveReport(ctx echo.Context) error {
	caller, rep, itn, err := api.reportWithInternship(ctx)
	if err != nil {
		return err
	}
	if err = policy.Decide(caller, policy.ActionRead, reportResource(rep, itn), nil); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *internshipApi) updateReport(ctx echo.Context) error {
	caller, rep, itn, err := api.reportWithInternship(ctx)
	if err != nil {
		return err
	}

	var data internship.UpdateReport
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReport")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = policy.Decide(caller, policy.ActionUpdate, reportResource(rep, itn), nil); err != nil {
		return err
	}

	rep, err = api.svc.UpdateReport(ctx.Request().Context(), rep.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *internshipApi) deleteReport(ctx echo.Context) error {
	caller, rep, itn, err := api.reportWithInternship(ctx)
	if err != nil {
		return err
	}
	if err = policy.Decide(caller, policy.ActionDelete, reportResource(rep, itn), nil); err != nil {
		return err
	}
	if err = api.svc.DeleteReport(ctx.Request().Context(), rep.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *internshipApi) reportWithInternship(ctx echo.Context) (profile.Profile, internship.Report, internship.Internship, error) {
	caller, err := api.caller(ctx)
	if err != nil {
		return profile.Profile{}, internship.Report{}, internship.Internship{}, err
	}
	rep, err := api.svc.GetReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return profile.Profile{}, internship.Report{}, internship.Internship{}, err
	}
	itn, err := api.svc.GetByID(ctx.Request().Context(), rep.InternshipID)
	if err != nil {
		return profile.Profile{}, internship.Report{}, internship.Internship{}, err
	}
	return caller, rep, itn, nil
}

// Resource mappers

func internshipResource(itn internship.Internship) policy.Resource {
	return policy.Resource{
		Kind:      policy.KindInternship,
		ID:        itn.ID,
		SchoolID:  itn.SchoolID,
		StudentID: itn.StudentID,
		TeacherID: itn.TeacherID,
		TutorID:   itn.TutorID,
	}
}

func documentResource(doc internship.Document, itn internship.Internship) policy.Resource {
	return policy.Resource{
		Kind:       policy.KindDocument,
		ID:         doc.ID,
		SchoolID:   itn.SchoolID,
		StudentID:  itn.StudentID,
		TutorID:    itn.TutorID,
		Visibility: doc.Visibility,
	}
}

func reportResource(rep internship.Report, itn internship.Internship) policy.Resource {
	return policy.Resource{
		Kind:     policy.KindReport,
		ID:       rep.ID,
		SchoolID: itn.SchoolID,
		OwnerID:  rep.StudentID,
	}
}

// internshipDelta maps the provided edit fields to their stored names so the
// policy can tell a tutor's hours report from a staff edit.
func internshipDelta(ui internship.UpdateInternship) policy.FieldDelta {
	delta := policy.FieldDelta{}
	if ui.TeacherID != "" {
		delta["teacher_id"] = ui.TeacherID
	}
	if ui.TutorEmail != "" {
		delta["tutor_email"] = ui.TutorEmail
	}
	if ui.CompanyName != "" {
		delta["company_name"] = ui.CompanyName
	}
	if ui.StartDate != nil {
		delta["start_date"] = *ui.StartDate
	}
	if ui.CompletedHours != nil {
		delta["completed_hours"] = *ui.CompletedHours
	}
	if ui.ProtocolRef != "" {
		delta["protocol_ref"] = ui.ProtocolRef
	}
	return delta
}
