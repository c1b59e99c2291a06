package echoapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core"
)

var errCaptchaUnavailable = echo.NewHTTPError(http.StatusBadGateway, "captcha verification unavailable")

// captchaApi proxies CAPTCHA verification so the provider secret never
// reaches a client. Every failure path verifies as unsuccessful.
type captchaApi struct {
	conf     *core.Config
	client   *http.Client
	validate *validator.Validate
}

func registerCaptchaAPI(g *echo.Group, deps ServerDeps) {
	api := captchaApi{
		conf:     deps.Conf,
		client:   &http.Client{Timeout: deps.Conf.Captcha.Timeout},
		validate: deps.Validate,
	}
	g.POST("/captcha/verify", api.verify)
}

type (
	CaptchaVerifyRequest struct {
		Token  string `json:"token" validate:"required"`
		Action string `json:"action"`
	}

	CaptchaVerifyResponse struct {
		Success  bool    `json:"success"`
		Score    float64 `json:"score"`
		Action   string  `json:"action,omitempty"`
		MinScore float64 `json:"minScore"`
	}

	// upstreamCaptchaResponse is the provider's siteverify payload.
	upstreamCaptchaResponse struct {
		Success bool    `json:"success"`
		Score   float64 `json:"score"`
		Action  string  `json:"action"`
	}
)

func (cr *CaptchaVerifyRequest) Validate(validate *validator.Validate) error {
	cr.Token = core.CleanString(cr.Token)
	cr.Action = core.CleanString(cr.Action)
	return validate.Struct(cr)
}

func (api *captchaApi) verify(ctx echo.Context) error {
	var data CaptchaVerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CaptchaVerifyRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// without a secret there is nothing to verify against: fail closed
	if api.conf.Captcha.Secret == "" {
		return errCaptchaUnavailable
	}

	form := url.Values{
		"secret":   {api.conf.Captcha.Secret},
		"response": {data.Token},
	}
	req, err := http.NewRequestWithContext(ctx.Request().Context(),
		http.MethodPost, api.conf.Captcha.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "building captcha request")
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	res, err := api.client.Do(req)
	if err != nil {
		return errCaptchaUnavailable
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusInternalServerError {
		return errCaptchaUnavailable
	}

	var upstream upstreamCaptchaResponse
	if err = json.NewDecoder(res.Body).Decode(&upstream); err != nil {
		return errCaptchaUnavailable
	}

	success := upstream.Success && upstream.Score >= api.conf.Captcha.MinScore
	if data.Action != "" && upstream.Action != data.Action {
		success = false
	}
	return ctx.JSON(http.StatusOK, CaptchaVerifyResponse{
		Success:  success,
		Score:    upstream.Score,
		Action:   upstream.Action,
		MinScore: api.conf.Captcha.MinScore,
	})
}
