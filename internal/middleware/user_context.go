package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/models"
)

// InjectUser кладёт пользователя сессии в контекст как "CurrentUser".
// Удалённого пользователя выкидываем из сессии.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			uid, ok := uidRaw.(uint)
			var user models.User
			if ok && uid > 0 && database.DB.First(&user, uid).Error == nil {
				c.Set("CurrentUser", user)
			} else {
				sess.Delete("user_id")
				sess.Delete("role")
				_ = sess.Save()
			}
		}

		c.Next()
	}
}
