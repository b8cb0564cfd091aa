package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/utils"
)

// SessionCookieName is the cookie carrying the opaque server session id.
const SessionCookieName = "studio_session"

// LocalTokenTTL is the lifetime of a locally issued bearer token.
const LocalTokenTTL = 7 * 24 * time.Hour

const principalContextKey = "principal"

// CredentialScheme tags which verifier supplied a credential.
type CredentialScheme string

const (
	SchemeLocalToken CredentialScheme = "local_token"
	SchemeProvider   CredentialScheme = "provider_token"
	SchemeSession    CredentialScheme = "session"
)

// Credential is the verified claim a scheme extracted from the request.
// Exactly one of AccountID or ProviderSubject is set: provider tokens are
// looked up by the subject the provider assigned, not by a local id.
type Credential struct {
	Scheme          CredentialScheme
	AccountID       string
	ProviderSubject string
	Role            models.Role
}

// Verifier is one credential scheme. Verify returns ok=false to fall through
// to the next scheme; it never aborts the request.
type Verifier interface {
	Name() string
	Verify(c *gin.Context) (*Credential, bool)
}

// LocalClaims are the claims of a locally signed bearer token.
type LocalClaims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueLocalToken signs a 7-day HS256 bearer token for an account.
func IssueLocalToken(account *models.Account, secret []byte) (string, error) {
	now := time.Now()
	claims := LocalClaims{
		Username: account.Username,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(LocalTokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// LocalTokenVerifier verifies locally issued HS256 bearer tokens.
type LocalTokenVerifier struct {
	secret []byte
}

func NewLocalTokenVerifier(secret []byte) *LocalTokenVerifier {
	return &LocalTokenVerifier{secret: secret}
}

func (v *LocalTokenVerifier) Name() string { return string(SchemeLocalToken) }

func (v *LocalTokenVerifier) Verify(c *gin.Context) (*Credential, bool) {
	tokenString := extractBearerToken(c)
	if tokenString == "" {
		return nil, false
	}

	claims := &LocalClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, false
	}

	return &Credential{
		Scheme:    SchemeLocalToken,
		AccountID: claims.Subject,
		Role:      claims.Role,
	}, true
}

// ProviderTokenVerifier verifies third-party identity-provider tokens
// against the provider's JWKS. A verified token yields the provider subject,
// which the loader resolves to a local account.
type ProviderTokenVerifier struct {
	validator *utils.JWKSValidator
}

func NewProviderTokenVerifier(validator *utils.JWKSValidator) *ProviderTokenVerifier {
	return &ProviderTokenVerifier{validator: validator}
}

func (v *ProviderTokenVerifier) Name() string { return string(SchemeProvider) }

func (v *ProviderTokenVerifier) Verify(c *gin.Context) (*Credential, bool) {
	tokenString := extractBearerToken(c)
	if tokenString == "" {
		return nil, false
	}

	token, err := v.validator.ValidateToken(tokenString)
	if err != nil {
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, false
	}

	return &Credential{
		Scheme:          SchemeProvider,
		ProviderSubject: sub,
	}, true
}

// SessionVerifier resolves the opaque session cookie against the server-side
// session store.
type SessionVerifier struct{}

func NewSessionVerifier() *SessionVerifier { return &SessionVerifier{} }

func (v *SessionVerifier) Name() string { return string(SchemeSession) }

func (v *SessionVerifier) Verify(c *gin.Context) (*Credential, bool) {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || sessionID == "" {
		return nil, false
	}

	session, err := utils.GetSession(sessionID)
	if err != nil {
		return nil, false
	}

	_ = utils.TouchSession(sessionID)

	return &Credential{
		Scheme:    SchemeSession,
		AccountID: session.AccountID,
		Role:      session.Role,
	}, true
}

// AuthMiddleware resolves credentials and loads principals. The verifier
// chain is ordered; the first scheme to produce a credential wins, and a
// request no scheme matches proceeds anonymously so route guards can decide.
type AuthMiddleware struct {
	db        *gorm.DB
	verifiers []Verifier
}

// NewAuthMiddleware wires the default verifier chain: local bearer token,
// then provider token, then session cookie.
func NewAuthMiddleware(db *gorm.DB) (*AuthMiddleware, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	verifiers := []Verifier{
		NewLocalTokenVerifier([]byte(secret)),
		NewProviderTokenVerifier(utils.NewJWKSValidator(ProviderJWKSURL())),
		NewSessionVerifier(),
	}

	return &AuthMiddleware{db: db, verifiers: verifiers}, nil
}

// NewAuthMiddlewareWithVerifiers builds the middleware with an explicit
// chain; used by tests and alternative deployments.
func NewAuthMiddlewareWithVerifiers(db *gorm.DB, verifiers ...Verifier) *AuthMiddleware {
	return &AuthMiddleware{db: db, verifiers: verifiers}
}

// ProviderJWKSURL returns the identity provider's JWKS endpoint, either set
// directly or derived from the Cognito region and user pool.
func ProviderJWKSURL() string {
	if url := os.Getenv("PROVIDER_JWKS_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json",
		os.Getenv("AWS_REGION"), os.Getenv("COGNITO_USER_POOL_ID"))
}

// Authenticate resolves a credential, loads the matching account from the
// identity store and attaches the principal to the request context. Every
// resolution failure fails closed into an anonymous request; it never aborts
// here, so unauthenticated routes keep working and guards return a clean 401
// instead of the handler crashing.
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, verifier := range am.verifiers {
			cred, ok := verifier.Verify(c)
			if !ok {
				continue
			}

			principal, err := am.loadPrincipal(cred)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"scheme": verifier.Name(),
					"error":  err,
				}).Warn("credential verified but principal not loaded")
				break
			}

			c.Set(principalContextKey, principal)
			break
		}

		c.Next()
	}
}

// loadPrincipal fetches the account behind a credential from the global
// identity store. Inactive accounts are rejected distinctly from missing
// ones; store errors fail closed.
func (am *AuthMiddleware) loadPrincipal(cred *Credential) (*models.Principal, error) {
	var account models.Account
	var err error

	switch cred.Scheme {
	case SchemeProvider:
		err = am.db.Where("provider_subject = ?", cred.ProviderSubject).First(&account).Error
	default:
		err = am.db.Where("id = ?", cred.AccountID).First(&account).Error
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account not found")
		}
		return nil, fmt.Errorf("identity store unreachable: %w", err)
	}

	if !account.IsActive {
		return nil, fmt.Errorf("account inactive")
	}

	return models.PrincipalFromAccount(&account), nil
}

// RequireAuth rejects requests that carry no principal.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetPrincipal(c); !ok {
			utils.UnauthorizedResponse(c, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole rejects principals whose role is not in the allowed set.
func (am *AuthMiddleware) RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			utils.UnauthorizedResponse(c, "authentication required")
			c.Abort()
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "insufficient permissions")
		c.Abort()
	}
}

// GetPrincipal extracts the request principal from the gin context.
func GetPrincipal(c *gin.Context) (*models.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*models.Principal)
	return principal, ok
}

// MustGetPrincipal extracts the principal or writes a 401 and reports false.
// Handlers behind RequireAuth use it as a belt-and-braces accessor.
func MustGetPrincipal(c *gin.Context) (*models.Principal, bool) {
	principal, ok := GetPrincipal(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		c.Abort()
	}
	return principal, ok
}

// extractBearerToken pulls the token out of the Authorization header.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return authHeader
}
