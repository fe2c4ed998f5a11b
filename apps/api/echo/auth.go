package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/user"
)

const (
	contextTokenKey   = "userToken"
	contextSessionKey = "session"
)

var nowFunc = time.Now // mockable

// Claims carries the teacher's session in a JWT. The roster store token rides along
// so that no server-side session state is needed.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	StoreToken   string `json:"stk,omitempty"`
	SessionIAT   int64  `json:"siat,omitempty"`
}

func (c Claims) Session() user.Session {
	return user.Session{
		Teacher:     user.Teacher{Username: c.Subject, Name: c.Name, Email: c.Email},
		AccessToken: c.StoreToken,
		IssuedAt:    time.Unix(c.SessionIAT, 0).UTC(),
	}
}

type authenticator struct {
	appName      string
	expiration   time.Duration
	refreshDelta time.Duration
	jwtConfig    middleware.JWTConfig
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{
		appName:      conf.AppName,
		expiration:   conf.Server.JWTExpirationDelta,
		refreshDelta: conf.Server.JWTRefreshExpirationDelta,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

// claims returns the JWT claims of sess. origIat keeps the refresh window of a refreshed token.
func (a *authenticator) claims(sess user.Session, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.appName,
			Subject:   sess.Teacher.Username,
			Audience:  "Teachers",
			ExpiresAt: now.Add(a.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         sess.Teacher.Name,
		Email:        sess.Teacher.Email,
		StoreToken:   sess.AccessToken,
		SessionIAT:   sess.IssuedAt.Unix(),
	}
}

// token generates a signed JWT token string representing the Claims.
func (a *authenticator) token(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) sessionToken(sess user.Session) (string, error) {
	return a.token(a.claims(sess))
}

func (a *authenticator) refresh(ctx echo.Context) (string, error) {
	claims, err := contextClaims(ctx)
	if err != nil {
		return "", err
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshDelta)
	if nowFunc().After(expTime) {
		return "", errRefreshExpired
	}
	return a.token(a.claims(claims.Session(), claims.OrigIssuedAt))
}

// sessionMiddleware puts the session of the authenticated teacher in the context.
func (a *authenticator) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := contextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Subject == "" {
			return errUnauthorized
		}
		ctx.Set(contextSessionKey, claims.Session())
		return next(ctx)
	}
}

func contextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextSession(ctx echo.Context) (user.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(user.Session); ok {
		return sess, nil
	}
	return user.Session{}, errUnauthorized
}
