package httpapi

import (
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/logging"
	"github.com/dmitrijs2005/carvault/internal/server/metrics"
)

type registerBody struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type saltBody struct {
	Username string `json:"username"`
}

type authorizeBody struct {
	Username         string `json:"username"`
	Verifier         []byte `json:"verifier"`
	SessionPublicKey string `json:"session_public_key"`
	MaxTimeToLive    int64  `json:"max_time_to_live"`
}

type IdentityHandler struct {
	Service identityService
	Metrics *metrics.Metrics
	Logger  logging.Logger
}

func (h *IdentityHandler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.Service.Register(c.Request.Context(), body.Username, body.Salt, body.Verifier)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		case errors.Is(err, common.ErrorValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.Logger.Error(c.Request.Context(), "register failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	h.Logger.Info(c.Request.Context(), "Registered", "username", user.UserName)
	c.JSON(http.StatusCreated, gin.H{"id": user.ID})
}

func (h *IdentityHandler) Salt(c *gin.Context) {
	var body saltBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	salt, err := h.Service.GetSalt(c.Request.Context(), body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"salt": salt})
}

func (h *IdentityHandler) Authorize(c *gin.Context) {
	var body authorizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sessionKey, err := cryptox.DecodePublicKey(body.SessionPublicKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.Service.Authorize(c.Request.Context(), body.Username, body.Verifier, sessionKey, time.Duration(body.MaxTimeToLive))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case errors.Is(err, common.ErrorValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	if h.Metrics != nil {
		h.Metrics.DelegationIssued()
	}
	c.JSON(http.StatusOK, gin.H{
		"delegation": d.Token,
		"principal":  d.Principal.String(),
		"expires_at": d.ExpiresAt,
	})
}

// AssetHeaderSHA256 carries the hex content hash of a downloaded asset.
const AssetHeaderSHA256 = "X-Content-Sha256"

type AssetHandler struct {
	Assets assetReader
}

func (h *AssetHandler) Download(c *gin.Context) {
	asset, body, err := h.Assets.Get(c.Request.Context(), c.Param("canister"), c.Param("key"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header(AssetHeaderSHA256, hex.EncodeToString(asset.SHA256))
	c.Data(http.StatusOK, asset.ContentType, body)
}
