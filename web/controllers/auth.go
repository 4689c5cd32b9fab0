package controllers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"hitechstore/web/db"
	"hitechstore/web/email"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxLoginAttempts  = 5
	lockoutDuration   = 15 * time.Minute
	verifyTokenTTL    = 24 * time.Hour
	resetTokenTTL     = time.Hour
	sessionTokenTTL   = 24 * time.Hour
	minPasswordLength = 8
)

var phonePattern = regexp.MustCompile(`^[0-9]{8}$`)

type Auth struct {
	DB *gorm.DB
}

// newToken returns a raw single-use token and the sha256 digest stored at rest.
func newToken() (raw string, digest string) {
	buf := make([]byte, 20)
	rand.Read(buf)
	raw = hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(raw))
	return raw, hex.EncodeToString(sum[:])
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func signToken(user *db.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"exp":  time.Now().Add(sessionTokenTTL).Unix(),
	})
	return token.SignedString([]byte(os.Getenv("SECRET")))
}

func userJSON(user *db.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"email":     user.Email,
		"role":      user.Role,
		"preferences": gin.H{
			"language": user.Language,
			"currency": user.Currency,
			"notifications": gin.H{
				"email": user.EmailNotifications,
				"sms":   user.SMSNotifications,
			},
		},
	}
}

func (a *Auth) Register(c *gin.Context) {
	var body struct {
		FirstName string `json:"firstName" binding:"required"`
		LastName  string `json:"lastName" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required"`
		Phone     string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Champs invalides ou manquants"})
		return
	}
	if len(body.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Le mot de passe doit contenir au moins 8 caractères"})
		return
	}
	if !phonePattern.MatchString(body.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Veuillez fournir un numéro de téléphone valide"})
		return
	}

	addr := strings.ToLower(strings.TrimSpace(body.Email))

	var existing db.User
	if err := a.DB.Where("email = ?", addr).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Cet email est déjà utilisé"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de l'inscription"})
		return
	}

	rawToken, digest := newToken()
	user := db.User{
		FirstName:         body.FirstName,
		LastName:          body.LastName,
		Email:             addr,
		Password:          string(hash),
		Phone:             body.Phone,
		Role:              db.RoleUser,
		VerifyTokenHash:   digest,
		VerifyTokenExpiry: time.Now().Add(verifyTokenTTL),
	}

	if err := a.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Cet email est déjà utilisé"})
		return
	}

	go email.SendVerificationEmail(user.Email, rawToken)

	token, err := signToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de l'inscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "token": token, "user": userJSON(&user)})
}

func (a *Auth) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Champs invalides ou manquants"})
		return
	}

	var user db.User
	err := a.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(body.Email))).First(&user).Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Email ou mot de passe incorrect"})
		return
	}

	now := time.Now()
	if user.Locked(now) {
		// rejected even with correct credentials until the lock expires
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Compte temporairement bloqué. Veuillez réessayer plus tard"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)) != nil {
		a.recordFailedLogin(&user, now)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Email ou mot de passe incorrect"})
		return
	}

	a.DB.Model(&user).Updates(map[string]any{
		"login_attempts": 0,
		"lock_until":     nil,
		"last_login":     now,
	})

	token, err := signToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la connexion"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": userJSON(&user)})
}

// recordFailedLogin bumps the counter and locks the account on the 5th
// consecutive failure.
func (a *Auth) recordFailedLogin(user *db.User, now time.Time) {
	attempts := user.LoginAttempts + 1
	updates := map[string]any{"login_attempts": attempts}
	if attempts >= maxLoginAttempts {
		updates["lock_until"] = now.Add(lockoutDuration)
	}
	a.DB.Model(user).Updates(updates)
}

func (a *Auth) VerifyEmail(c *gin.Context) {
	digest := hashToken(c.Param("token"))

	var user db.User
	err := a.DB.Where("verify_token_hash = ? AND verify_token_expiry > ?", digest, time.Now()).
		First(&user).Error
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Token invalide ou expiré"})
		return
	}

	a.DB.Model(&user).Updates(map[string]any{
		"is_verified":       true,
		"verify_token_hash": "",
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email vérifié avec succès"})
}

func (a *Auth) ForgotPassword(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Champs invalides ou manquants"})
		return
	}

	var user db.User
	err := a.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(body.Email))).First(&user).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Aucun compte associé à cet email"})
		return
	}

	rawToken, digest := newToken()
	a.DB.Model(&user).Updates(map[string]any{
		"reset_token_hash":   digest,
		"reset_token_expiry": time.Now().Add(resetTokenTTL),
	})

	go email.SendResetPasswordEmail(user.Email, rawToken)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email de réinitialisation envoyé"})
}

func (a *Auth) ResetPassword(c *gin.Context) {
	var body struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Le mot de passe doit contenir au moins 8 caractères"})
		return
	}

	digest := hashToken(c.Param("token"))

	var user db.User
	err := a.DB.Where("reset_token_hash = ? AND reset_token_hash != '' AND reset_token_expiry > ?", digest, time.Now()).
		First(&user).Error
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Token invalide ou expiré"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la réinitialisation du mot de passe"})
		return
	}

	a.DB.Model(&user).Updates(map[string]any{
		"password":         string(hash),
		"reset_token_hash": "",
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Mot de passe réinitialisé avec succès"})
}

func (a *Auth) Me(c *gin.Context) {
	user := c.MustGet("user").(db.User)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userJSON(&user)})
}

func (a *Auth) UpdateProfile(c *gin.Context) {
	user := c.MustGet("user").(db.User)

	var body struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		Phone       string `json:"phone"`
		Preferences *struct {
			Language      string `json:"language"`
			Currency      string `json:"currency"`
			Notifications *struct {
				Email *bool `json:"email"`
				SMS   *bool `json:"sms"`
			} `json:"notifications"`
		} `json:"preferences"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Champs invalides"})
		return
	}

	updates := map[string]any{}
	if body.FirstName != "" {
		updates["first_name"] = body.FirstName
	}
	if body.LastName != "" {
		updates["last_name"] = body.LastName
	}
	if body.Phone != "" {
		if !phonePattern.MatchString(body.Phone) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Veuillez fournir un numéro de téléphone valide"})
			return
		}
		updates["phone"] = body.Phone
	}
	if body.Preferences != nil {
		if body.Preferences.Language != "" {
			updates["language"] = body.Preferences.Language
		}
		if body.Preferences.Currency != "" {
			updates["currency"] = body.Preferences.Currency
		}
		if body.Preferences.Notifications != nil {
			if body.Preferences.Notifications.Email != nil {
				updates["email_notifications"] = *body.Preferences.Notifications.Email
			}
			if body.Preferences.Notifications.SMS != nil {
				updates["sms_notifications"] = *body.Preferences.Notifications.SMS
			}
		}
	}

	if err := a.DB.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la mise à jour du profil"})
		return
	}

	var fresh db.User
	if err := a.DB.First(&fresh, user.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Utilisateur non trouvé"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userJSON(&fresh)})
}

func (a *Auth) ChangePassword(c *gin.Context) {
	user := c.MustGet("user").(db.User)

	var body struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.NewPassword) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Champs invalides ou manquants"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.CurrentPassword)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Mot de passe actuel incorrect"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors du changement de mot de passe"})
		return
	}

	if err := a.DB.Model(&user).Update("password", string(hash)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors du changement de mot de passe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Mot de passe modifié avec succès"})
}
