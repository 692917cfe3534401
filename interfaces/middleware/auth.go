package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"social-hub/domain/dto"
	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"
	"social-hub/infrastructure/logger"
)

// ContextUserIDKey is where Auth stores the authenticated user id for
// downstream handlers.
const ContextUserIDKey = "user_id"

// Auth validates the Bearer token and resolves the caller. Handlers behind it
// can rely on ContextUserIDKey being set.
func Auth(userRepository repository.IUser) gin.HandlerFunc {
	unauthorized := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

	return func(ctx *gin.Context) {
		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}
		parts := strings.Split(authorization, "Bearer ")
		if len(parts) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		userClaims, token, err := parseClaims(parts[1], configuration.C.App.SecretKey)
		if err != nil || !token.Valid {
			logger.GetLogger().WithField("error", describeTokenError(err)).Warn("Rejected bearer token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		if _, err := userRepository.GetByUserName(ctx.Request.Context(), userClaims.UserName); err != nil {
			logger.GetLogger().WithField("userName", userClaims.UserName).Warn("Token subject unknown")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		ctx.Set(ContextUserIDKey, userClaims.Issuer)
		ctx.Next()
	}
}

func parseClaims(raw, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(
		raw,
		&userClaims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
	)
	return userClaims, token, err
}

func describeTokenError(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "malformed token"
		}
		if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return "token expired or not yet valid"
		}
	}
	if err != nil {
		return err.Error()
	}
	return "invalid token"
}
