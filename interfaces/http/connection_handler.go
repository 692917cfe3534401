package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"social-hub/domain/apperrors"
	"social-hub/domain/dto"
	"social-hub/domain/model"
	"social-hub/infrastructure/logger"
	"social-hub/interfaces/middleware"
	"social-hub/usecase"
)

type IConnectionHandler interface {
	Initiate(c *gin.Context)
	Callback(c *gin.Context)
	List(c *gin.Context)
	Disconnect(c *gin.Context)
	Refresh(c *gin.Context)
}

type connectionHandler struct {
	connection  usecase.IConnection
	frontendURL string
}

func NewConnectionHandler(connection usecase.IConnection, frontendURL string) IConnectionHandler {
	return &connectionHandler{connection: connection, frontendURL: frontendURL}
}

// Browser-facing redirect reasons. Deliberately coarse: state validation
// failures all collapse into one retryable reason so no internal detail leaks.
const (
	reasonConnectionFailed = "connection_failed"
	reasonAccessDenied     = "access_denied"
	reasonPlatformRejected = "platform_rejected"
	reasonInternalError    = "internal_error"
)

// Initiate starts an OAuth flow for the authenticated user and returns the
// authorization URL the frontend should send the browser to.
func (h *connectionHandler) Initiate(c *gin.Context) {
	p, ok := model.ParsePlatform(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "unsupported platform"})
		return
	}
	userID := c.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"})
		return
	}
	var organizationID *string
	if v := c.Query("organization_id"); v != "" {
		organizationID = &v
	}

	res, err := h.connection.Initiate(c.Request.Context(), userID, organizationID, p)
	if err != nil {
		if errors.Is(err, apperrors.ErrStorageFailure) {
			c.JSON(http.StatusServiceUnavailable, dto.Res{ResponseCode: "503", ResponseMessage: "connection service temporarily unavailable"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Callback is the platform-facing OAuth redirect target. It never renders
// errors directly; the browser is always redirected back to the frontend with
// a coarse reason code.
func (h *connectionHandler) Callback(c *gin.Context) {
	p, ok := model.ParsePlatform(c.Param("platform"))
	if !ok {
		h.redirectFailure(c, c.Param("platform"), reasonConnectionFailed)
		return
	}

	if errCode := c.Query("error"); errCode != "" {
		// The user declined at the platform's consent screen.
		logger.GetLogger().
			WithField("platform", p).
			WithField("oauthError", errCode).
			Info("OAuth consent denied or aborted")
		h.redirectFailure(c, p.String(), reasonAccessDenied)
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		h.redirectFailure(c, p.String(), reasonConnectionFailed)
		return
	}

	account, err := h.connection.CompleteCallback(c.Request.Context(), p, state, code)
	if err != nil {
		h.redirectFailure(c, p.String(), callbackReason(err))
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"/connections?connected="+url.QueryEscape(account.Platform.String()))
}

func callbackReason(err error) string {
	switch {
	case apperrors.IsCSRFSignal(err):
		// Already logged with the state-token prefix where it was detected.
		return reasonConnectionFailed
	default:
		var xErr *apperrors.OAuthExchangeError
		if errors.As(err, &xErr) {
			return reasonPlatformRejected
		}
		logger.GetLogger().WithField("error", err.Error()).Error("OAuth callback failed")
		return reasonInternalError
	}
}

func (h *connectionHandler) redirectFailure(c *gin.Context, platform, reason string) {
	q := url.Values{}
	q.Set("error", reason)
	q.Set("platform", platform)
	c.Redirect(http.StatusFound, h.frontendURL+"/connections?"+q.Encode())
}

// List returns the caller's linked accounts, token-free.
func (h *connectionHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"})
		return
	}
	list, err := h.connection.ListConnections(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "failed to list connections"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *connectionHandler) Disconnect(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"})
		return
	}
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid account id"})
		return
	}

	if err := h.connection.Disconnect(c.Request.Context(), userID, accountID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: "connection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "failed to disconnect"})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "disconnected"})
}

// Refresh forces a token validity check. The token itself never leaves the
// server; callers only learn whether the connection is usable.
func (h *connectionHandler) Refresh(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"})
		return
	}
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid account id"})
		return
	}

	if _, err := h.connection.RefreshIfNeeded(c.Request.Context(), userID, accountID); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: "connection not found"})
		case errors.Is(err, apperrors.ErrReAuthRequired), errors.Is(err, apperrors.ErrRefreshNotSupported), errors.Is(err, apperrors.ErrDecryptionFailed):
			c.JSON(http.StatusConflict, dto.Res{ResponseCode: "409", ResponseMessage: "re-authentication required"})
		default:
			c.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: "token refresh failed"})
		}
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "token valid"})
}
