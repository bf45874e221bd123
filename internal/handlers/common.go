package handlers

import (
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
)

func idStr(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// nameTaken — есть ли другая запись T (id != self), подходящая под условие.
func nameTaken[T any](self uint, query string, args ...any) bool {
	var n int64
	database.DB.Model(new(T)).Where(query, args...).Where("id <> ?", self).Count(&n)
	return n > 0
}

// mediaPath — абсолютный путь файла артефакта внутри MEDIA_ROOT.
func mediaPath(rel string) string {
	return filepath.Join(deps.MediaRoot, filepath.FromSlash(rel))
}

// bindForm — ошибку разбора тела формы отдаём как ErrValidation.
func bindForm(c *gin.Context, form any) error {
	if err := c.ShouldBind(form); err != nil {
		return errs.Invalid("", "invalid form")
	}
	return nil
}
