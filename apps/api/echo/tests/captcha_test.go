package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/internlink/backend/apps/api/echo"
	"github.com/internlink/backend/core"
)

// newUpstream fakes the provider's siteverify endpoint.
func newUpstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing upstream form: %v", err)
		}
		if r.Form.Get("secret") == "" || r.Form.Get("response") == "" {
			t.Error("upstream call is missing the secret or the token")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func Test_captchaApi_verify(t *testing.T) {
	app := setup(t)

	// the proxy reads the provider settings per request
	restore := conf.Captcha
	t.Cleanup(func() { conf.Captcha = restore })
	conf.Captcha.Secret = "provider-secret"
	conf.Captcha.MinScore = 0.5

	t.Run("missing token", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"token": "this field is required"}),
		}
		req, rec := newRequest(http.MethodPost, "/v1/captcha/verify", marchallObj(t, CaptchaVerifyRequest{}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("no secret fails closed", func(t *testing.T) {
		conf.Captcha.Secret = ""
		defer func() { conf.Captcha.Secret = "provider-secret" }()

		tt := httpTest{
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, httpErr{Error: "captcha verification unavailable"}),
		}
		req, rec := newRequest(http.MethodPost, "/v1/captcha/verify",
			marchallObj(t, CaptchaVerifyRequest{Token: "tok"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	tests := []struct {
		name         string
		upstreamCode int
		upstreamBody string
		action       string
		wantCode     int
		wantData     interface{}
	}{
		{
			name:         "ok",
			upstreamCode: http.StatusOK,
			upstreamBody: `{"success": true, "score": 0.9, "action": "login"}`,
			action:       "login",
			wantCode:     http.StatusOK,
			wantData:     CaptchaVerifyResponse{Success: true, Score: 0.9, Action: "login", MinScore: 0.5},
		},
		{
			name:         "low score",
			upstreamCode: http.StatusOK,
			upstreamBody: `{"success": true, "score": 0.2, "action": "login"}`,
			wantCode:     http.StatusOK,
			wantData:     CaptchaVerifyResponse{Success: false, Score: 0.2, Action: "login", MinScore: 0.5},
		},
		{
			name:         "action mismatch",
			upstreamCode: http.StatusOK,
			upstreamBody: `{"success": true, "score": 0.9, "action": "register"}`,
			action:       "login",
			wantCode:     http.StatusOK,
			wantData:     CaptchaVerifyResponse{Success: false, Score: 0.9, Action: "register", MinScore: 0.5},
		},
		{
			name:         "provider rejects",
			upstreamCode: http.StatusOK,
			upstreamBody: `{"success": false}`,
			wantCode:     http.StatusOK,
			wantData:     CaptchaVerifyResponse{Success: false, MinScore: 0.5},
		},
		{
			name:         "provider down",
			upstreamCode: http.StatusInternalServerError,
			upstreamBody: "",
			wantCode:     http.StatusBadGateway,
			wantData:     httpErr{Error: "captcha verification unavailable"},
		},
		{
			name:         "provider talks garbage",
			upstreamCode: http.StatusOK,
			upstreamBody: "not json",
			wantCode:     http.StatusBadGateway,
			wantData:     httpErr{Error: "captcha verification unavailable"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			upstream := newUpstream(t, tc.upstreamCode, tc.upstreamBody)
			conf.Captcha.VerifyURL = upstream.URL

			tt := httpTest{wantCode: tc.wantCode, wantData: marchallObj(t, tc.wantData)}
			req, rec := newRequest(http.MethodPost, "/v1/captcha/verify",
				marchallObj(t, CaptchaVerifyRequest{Token: "tok", Action: tc.action}))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_configApi_retrieve(t *testing.T) {
	app := setup(t)

	restore := conf.Client
	t.Cleanup(func() { conf.Client = restore })

	t.Run("unset fields are reported", func(t *testing.T) {
		conf.Client = core.ClientConfig{}

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, RuntimeConfigResponse{
				Config:  conf.Client,
				Missing: []string{"apiKey", "authDomain", "projectId", "appId"},
				OK:      false,
			}),
		}
		req, rec := newRequest(http.MethodGet, "/v1/config")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("complete config is ok", func(t *testing.T) {
		conf.Client = core.ClientConfig{
			APIKey:     "key",
			AuthDomain: "app.internlink.pt",
			ProjectID:  "internlink",
			AppID:      "1:123:web:abc",
		}

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, RuntimeConfigResponse{Config: conf.Client, Missing: []string{}, OK: true}),
		}
		req, rec := newRequest(http.MethodGet, "/v1/config")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
