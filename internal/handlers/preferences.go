package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/errs"
)

// Preferences — настройки отображения пользователя, живут в сессии.
// Обработчики читают их явно на каждый запрос.
type Preferences struct {
	Theme string `json:"theme" form:"theme"`
}

var themes = map[string]bool{"light": true, "dark": true}

func loadPreferences(c *gin.Context) Preferences {
	sess := sessions.Default(c)
	theme, _ := sess.Get("theme").(string)
	if !themes[theme] {
		theme = "light"
	}
	return Preferences{Theme: theme}
}

// GET /api/preferences
func GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": loadPreferences(c)})
}

// POST /api/preferences
func SavePreferences(c *gin.Context) {
	var p Preferences
	if err := c.ShouldBind(&p); err != nil {
		jsonError(c, errs.Invalid("", "invalid preferences payload"))
		return
	}
	if !themes[p.Theme] {
		jsonError(c, errs.Invalid("theme", "theme must be light or dark"))
		return
	}

	sess := sessions.Default(c)
	sess.Set("theme", p.Theme)
	if err := sess.Save(); err != nil {
		jsonError(c, errs.Wrap(err, "save session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": p})
}
