package echoapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/internship"
	"github.com/internlink/backend/core/policy"
	"github.com/internlink/backend/core/profile"
	"github.com/internlink/backend/core/session"
)

type profileApi struct {
	conf       *core.Config
	svc        profile.Service
	itnSvc     internship.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := profileApi{
		conf:       deps.Conf,
		svc:        deps.ProfileSvc,
		itnSvc:     deps.InternshipSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	rg := g.Group("/register")
	rg.POST("/student", api.registerStudent)
	rg.POST("/teacher", api.registerTeacher)
	rg.POST("/tutor", api.registerTutor)

	// the session route works with or without a token; the resolver turns a
	// missing identity into a login destination, not a 401.
	g.GET("/session/route", api.sessionRoute)

	// authed endpoints
	pg := g.Group("/profiles", jwt)
	pg.GET("/me", api.retrieveSelf)
	pg.PUT("/me", api.updateSelf)
	pg.GET("", api.query)
	pg.GET("/roles", api.queryRoles)
	pg.GET("/:id", api.retrieve)
	pg.POST("/:id/approve", api.approve)
	pg.POST("/:id/reject", api.reject)
}

// Handlers

func (api *profileApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc, api.conf)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *profileApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *profileApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == profile.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *profileApi) confirmPasswordReset(ctx echo.Context) error {
	var data profile.ResetProfilePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetProfilePassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *profileApi) registerStudent(ctx echo.Context) error {
	var data profile.RegisterStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	prof, err := api.svc.RegisterStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusCreated, prof)
}

func (api *profileApi) registerTeacher(ctx echo.Context) error {
	var data profile.RegisterTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterTeacher")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	prof, err := api.svc.RegisterTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	return ctx.JSON(http.StatusCreated, prof)
}

func (api *profileApi) registerTutor(ctx echo.Context) error {
	var data profile.RegisterTutor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterTutor")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	prof, err := api.svc.RegisterTutor(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering tutor")
	}

	// claim any internship slots already waiting on this email
	if _, err = api.itnSvc.LinkTutor(ctx.Request().Context(), prof); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "linking tutor"))
	}
	return ctx.JSON(http.StatusCreated, prof)
}

func (api *profileApi) sessionRoute(ctx echo.Context) error {
	requested := session.Surface(ctx.QueryParam("surface"))

	var prof *profile.Profile
	var authenticated bool
	if claims, ok := api.bearerClaims(ctx); ok {
		authenticated = true
		p, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
		if err == nil {
			prof = &p
		} else if errors.Cause(err) != profile.ErrNotFound {
			return errors.Wrap(err, "finding profile by ID")
		}
		// a deleted profile behind a live token resolves to login
	}

	return ctx.JSON(http.StatusOK, session.Resolve(authenticated, prof, requested))
}

// bearerClaims parses and verifies an optional Authorization header.
func (api *profileApi) bearerClaims(ctx echo.Context) (*Claims, bool) {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return nil, false
	}
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, prefix), claims,
		func(*jwt.Token) (interface{}, error) { return appJWTConfig.SigningKey, nil })
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

func (api *profileApi) retrieveSelf(ctx echo.Context) error {
	prof, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if err = policy.Decide(prof, policy.ActionRead, profileResource(prof), nil); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) updateSelf(ctx echo.Context) error {
	prof, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	var data profile.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(prof, api.validate); err != nil {
		return err
	}

	delta := policy.FieldDelta{"name": data.Name, "phone": data.Phone, "locale": data.Locale, "photo_url": data.PhotoURL}
	if err = policy.Decide(prof, policy.ActionUpdate, profileResource(prof), delta); err != nil {
		return err
	}

	prof, err = api.svc.Update(ctx.Request().Context(), prof.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) query(ctx echo.Context) error {
	caller, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	filter := new(profile.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []profile.Profile{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	filter.Ordering = ordering.Orderings

	// non-admins only ever see their own school
	if !caller.IsAdmin() {
		filter.SchoolID = caller.SchoolID
	}
	if err = policy.Decide(caller, policy.ActionRead, policy.Resource{Kind: policy.KindProfile, SchoolID: filter.SchoolID}, nil); err != nil {
		return err
	}

	profs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profs == nil {
		profs = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	caller, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	prof, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding profile by ID")
	}
	if err = policy.Decide(caller, policy.ActionRead, profileResource(prof), nil); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) approve(ctx echo.Context) error {
	return api.transitionEstado(ctx, profile.EstadoAtivo, api.svc.Approve)
}

func (api *profileApi) reject(ctx echo.Context) error {
	return api.transitionEstado(ctx, profile.EstadoRejeitado, api.svc.Reject)
}

// transitionEstado is the shared approve/reject path: policy check against the
// stored target, then the conditional service transition.
func (api *profileApi) transitionEstado(
	ctx echo.Context,
	next string,
	transition func(context.Context, profile.Profile, string) (profile.Profile, error),
) error {
	caller, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	target, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding profile by ID")
	}

	delta := policy.FieldDelta{"estado": next}
	if err = policy.Decide(caller, policy.ActionUpdate, profileResource(target), delta); err != nil {
		return err
	}

	prof, err := transition(ctx.Request().Context(), caller, target.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

func profileResource(p profile.Profile) policy.Resource {
	return policy.Resource{
		Kind:     policy.KindProfile,
		ID:       p.ID,
		SchoolID: p.SchoolID,
		OwnerID:  p.ID,
		Role:     p.Role,
	}
}

func (api *profileApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, profile.Roles)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
