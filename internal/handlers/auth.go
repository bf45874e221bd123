package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/models"
)

func ShowRegister(c *gin.Context) {
	render(c, http.StatusOK, "register.html", gin.H{"roles": registerRoles()})
}

type registerForm struct {
	Username  string `form:"username"`
	Email     string `form:"email"`
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Password  string `form:"password"`
	Role      string `form:"role"`
}

// менеджера через форму не создать — он заводится из окружения
func registerRoles() []models.Choice {
	out := make([]models.Choice, 0, len(models.UserRoleChoices))
	for _, ch := range models.UserRoleChoices {
		if ch.Value != string(models.RoleManager) {
			out = append(out, ch)
		}
	}
	return out
}

func Register(c *gin.Context) {
	fail := func(status int, msg string) {
		render(c, status, "register.html", gin.H{"error": msg, "roles": registerRoles()})
	}

	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		fail(http.StatusBadRequest, "Invalid form data")
		return
	}

	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	if len(form.Username) < 3 || len(form.Password) < 6 {
		fail(http.StatusBadRequest, "Username must be at least 3 and password at least 6 characters")
		return
	}
	if !strings.Contains(form.Email, "@") {
		fail(http.StatusBadRequest, "A valid email is required")
		return
	}

	role := models.UserRole(form.Role)
	if !role.Valid() || role == models.RoleManager {
		fail(http.StatusBadRequest, "Invalid role")
		return
	}

	var existing int64
	database.DB.Model(&models.User{}).
		Where("username = ? OR email = ?", form.Username, form.Email).
		Count(&existing)
	if existing > 0 {
		fail(http.StatusBadRequest, "User already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(http.StatusInternalServerError, "Could not save user")
		return
	}
	user := models.User{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    strings.TrimSpace(form.FirstName),
		LastName:     strings.TrimSpace(form.LastName),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		fail(http.StatusInternalServerError, "Could not save user")
		return
	}

	database.CreateActivityLog(&user.ID, "user", user.ID, nil, "create", "Registered user "+user.Username)
	flash(c, "Account created, please sign in")
	c.Redirect(http.StatusFound, "/login")
}

func ShowLogin(c *gin.Context) {
	render(c, http.StatusOK, "login.html", gin.H{"next": c.Query("next")})
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

// safeNext — только локальные пути, иначе на главную.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/"
}

func Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Invalid form data"})
		return
	}

	var user models.User
	if err := database.DB.Where("username = ?", strings.TrimSpace(form.Username)).First(&user).Error; err != nil {
		render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Invalid username or password", "next": form.Next})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Invalid username or password", "next": form.Next})
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	sess.Set("role", string(user.Role))
	_ = sess.Save()

	deps.Logger.Info().Str("username", user.Username).Msg("user logged in")
	c.Redirect(http.StatusFound, safeNext(form.Next))
}

func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Redirect(http.StatusFound, "/login")
}
