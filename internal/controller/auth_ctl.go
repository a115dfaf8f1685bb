package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"storesync_dev_v1_202608/internal/middleware"
)

// ==================== AuthController 运维登录 ====================

// AuthController 运维操作员认证
// 单操作员账号，口令从配置注入并以 bcrypt 哈希保存在内存中
type AuthController struct {
	username     string
	passwordHash []byte
}

// NewAuthController 创建认证控制器
func NewAuthController(username, password string) (*AuthController, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AuthController{
		username:     username,
		passwordHash: hash,
	}, nil
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录换取 Access Token
// POST /api/auth/login
func (c *AuthController) Login(ctx *gin.Context) {
	var req loginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	if req.Username != c.username ||
		bcrypt.CompareHashAndPassword(c.passwordHash, []byte(req.Password)) != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "用户名或口令错误"})
		return
	}

	token, err := middleware.GenerateAccessToken(req.Username)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"access_token": token})
}
