package main

import (
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/middleware"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/utils"
)

var (
	cognitoClient  *cognitoidentityprovider.CognitoIdentityProvider
	circuitBreaker *utils.CircuitBreaker
)

func init() {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
	})
	if err == nil {
		cognitoClient = cognitoidentityprovider.New(sess)
	}

	// Breaker for identity-provider calls (max 5 failures, 30 second reset)
	circuitBreaker = utils.NewCircuitBreaker(5, 30*time.Second)
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProviderSignInRequest carries the identity-provider token for the
// "sign in with provider" flow.
type ProviderSignInRequest struct {
	Token string `json:"token" binding:"required"`
}

// handleLogin authenticates against the local identity store and issues both
// a 7-day bearer token and a server-side session cookie.
func handleLogin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var account models.Account
		if err := db.Where("email = ?", req.Email).First(&account).Error; err != nil {
			utils.UnauthorizedResponse(c, "Invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
			utils.UnauthorizedResponse(c, "Invalid credentials")
			return
		}

		if !account.IsActive {
			utils.ForbiddenResponse(c, "Account is inactive")
			return
		}

		secret := os.Getenv("JWT_SECRET")
		token, err := middleware.IssueLocalToken(&account, []byte(secret))
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to issue token")
			return
		}

		response := gin.H{
			"access_token": token,
			"expires_in":   int64(middleware.LocalTokenTTL.Seconds()),
			"token_type":   "Bearer",
			"account":      models.PrincipalFromAccount(&account),
		}

		// Session cookie is best effort; bearer auth works without Redis.
		if utils.GetRedisClient() != nil {
			sess, err := utils.CreateSession(account.ID, account.Role, middleware.LocalTokenTTL)
			if err != nil {
				logrus.WithField("error", err).Warn("failed to create session")
			} else {
				c.SetCookie(middleware.SessionCookieName, sess.SessionID,
					int(middleware.LocalTokenTTL.Seconds()), "/", "", false, true)
				response["session_id"] = sess.SessionID
			}
		}

		go func() {
			now := time.Now()
			db.Model(&models.Account{}).Where("id = ?", account.ID).Update("last_login_at", now)
		}()

		utils.OKResponse(c, "Login successful", response)
	}
}

// handleProviderSignIn verifies an identity-provider token and signs in the
// local account linked to its provider subject. The token is verified against
// the provider's published keys; the account is looked up by provider-subject
// id, not by the claim's own id.
func handleProviderSignIn(db *gorm.DB) gin.HandlerFunc {
	validator := utils.NewJWKSValidator(middleware.ProviderJWKSURL())

	return func(c *gin.Context) {
		var req ProviderSignInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		token, err := validator.ValidateToken(req.Token)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid provider token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid provider token")
			return
		}

		subject, _ := claims["sub"].(string)
		if subject == "" {
			utils.UnauthorizedResponse(c, "Provider token missing subject")
			return
		}

		var account models.Account
		if err := db.Where("provider_subject = ?", subject).First(&account).Error; err != nil {
			utils.NotFoundResponse(c, "No account linked to this provider identity")
			return
		}

		if !account.IsActive {
			utils.ForbiddenResponse(c, "Account is inactive")
			return
		}

		// Backfill the email from the provider directory when the local
		// record never captured it.
		if account.Email == "" && cognitoClient != nil && os.Getenv("COGNITO_USER_POOL_ID") != "" {
			_ = circuitBreaker.Call(func() error {
				out, err := cognitoClient.AdminGetUser(&cognitoidentityprovider.AdminGetUserInput{
					UserPoolId: aws.String(os.Getenv("COGNITO_USER_POOL_ID")),
					Username:   aws.String(subject),
				})
				if err != nil {
					return err
				}
				for _, attr := range out.UserAttributes {
					if *attr.Name == "email" {
						account.Email = *attr.Value
						db.Model(&models.Account{}).Where("id = ?", account.ID).Update("email", account.Email)
					}
				}
				return nil
			})
		}

		secret := os.Getenv("JWT_SECRET")
		localToken, err := middleware.IssueLocalToken(&account, []byte(secret))
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to issue token")
			return
		}

		response := gin.H{
			"access_token": localToken,
			"expires_in":   int64(middleware.LocalTokenTTL.Seconds()),
			"token_type":   "Bearer",
			"account":      models.PrincipalFromAccount(&account),
		}

		if utils.GetRedisClient() != nil {
			sess, err := utils.CreateSession(account.ID, account.Role, middleware.LocalTokenTTL)
			if err == nil {
				c.SetCookie(middleware.SessionCookieName, sess.SessionID,
					int(middleware.LocalTokenTTL.Seconds()), "/", "", false, true)
			}
		}

		go func() {
			now := time.Now()
			db.Model(&models.Account{}).Where("id = ?", account.ID).Update("last_login_at", now)
		}()

		utils.OKResponse(c, "Provider sign-in successful", response)
	}
}

// handleLogout revokes the server-side session, when one exists.
func handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionID, err := c.Cookie(middleware.SessionCookieName); err == nil && sessionID != "" {
			if err := utils.RevokeSession(sessionID); err != nil {
				logrus.WithField("error", err).Warn("failed to revoke session")
			}
			c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
		}

		utils.OKResponse(c, "Logged out", nil)
	}
}

// handleMe returns the request principal.
func handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}

		utils.OKResponse(c, "Principal retrieved", principal)
	}
}
