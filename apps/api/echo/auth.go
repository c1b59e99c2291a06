package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/profile"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	// The signing key is filled in from the config at server construction.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "profileToken",
		Claims:        new(Claims),
	}
	contextProfileKey = "profile"
)

// Claims represents the authorization claims transmitted via a JWT.
// Role, Estado and SchoolID are convenience hints for clients; the policy
// layer never trusts them and always re-reads the stored profile.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	Estado       string `json:"estado,omitempty"`
	SchoolID     string `json:"school_id,omitempty"`
}

func GetProfileClaims(conf *core.Config, prof profile.Profile, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   prof.ID,
			Audience:  "InternLink",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         prof.Name,
		Email:        prof.Email,
		Role:         prof.Role,
		Estado:       prof.Estado,
		SchoolID:     prof.SchoolID,
	}
}

// authenticate verifies the credentials. Any estado may log in: the session
// resolver decides afterwards whether the account lands on a waiting page or
// a dashboard.
func authenticate(ctx context.Context, email, pwd string, svc profile.Service, conf *core.Config) (*Claims, error) {
	prof, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding profile by email")
	}
	if err = prof.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	prof, err = svc.SetLastLogin(ctx, prof)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetProfileClaims(conf, prof), nil
}

// GenerateToken generates a signed JWT token string representing the profile Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextProfile resolves the caller's stored profile from the token
// subject. The result is cached on the request context; policy decisions are
// always made against this server-side profile.
func getContextProfile(ctx echo.Context, svc profile.Service, clms ...Claims) (profile.Profile, error) {
	if prof, ok := ctx.Get(contextProfileKey).(profile.Profile); ok {
		return prof, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return profile.Profile{}, errors.Wrap(err, "getting context claims")
		}
	}

	prof, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "finding profile by ID")
	}
	ctx.Set(contextProfileKey, prof)
	return prof, nil
}

func refreshToken(ctx echo.Context, svc profile.Service, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	prof, err := getContextProfile(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context profile")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetProfileClaims(conf, prof, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
