package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/export"
	"familyhub-tracker/internal/models"
)

// Options — зависимости обработчиков, задаются один раз при сборке роутера.
type Options struct {
	Clock     clock.Clock
	MediaRoot string
	Exports   *export.Registry
	Logger    zerolog.Logger
}

var deps = Options{Clock: clock.Real{}, MediaRoot: "media", Exports: export.NewRegistry(true), Logger: zerolog.Nop()}

func Configure(opts Options) {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.MediaRoot == "" {
		opts.MediaRoot = "media"
	}
	if opts.Exports == nil {
		opts.Exports = export.NewRegistry(true)
	}
	deps = opts
}

func today() time.Time { return clock.Today(deps.Clock) }

// render — обёртка над c.HTML, которая во все шаблоны прокидывает CurrentUser и настройки.
func render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	// пользователь, которого положил middleware.InjectUser
	if uVal, ok := c.Get("CurrentUser"); ok {
		switch u := uVal.(type) {
		case models.User:
			data["CurrentUser"] = u
			data["CurrentUsername"] = u.Username
			data["CurrentUserRole"] = u.Role
		case *models.User:
			data["CurrentUser"] = u
			data["CurrentUsername"] = u.Username
			data["CurrentUserRole"] = u.Role
		}
	}
	data["IsManager"] = currentRole(c) == models.RoleManager
	data["Prefs"] = loadPreferences(c)
	data["flashes"] = flashes(c)
	if _, ok := data["error"]; !ok {
		data["error"] = ""
	}

	c.HTML(status, tmpl, data)
}

// statusOf переводит ошибку в HTTP-код.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrFormatUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// jsonError — {success:false, message} для API.
func jsonError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		deps.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"success": false, "message": errs.Message(err)})
}

// pageError — страница ошибки для HTML-маршрутов.
func pageError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := errs.Message(err)
	if status == http.StatusInternalServerError {
		deps.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "Something went wrong"
	}
	render(c, status, "error.html", gin.H{"status": status, "message": msg})
}

// paramID — :id из пути; ошибка уже ErrValidation.
func paramID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Invalid("id", "invalid id %q", c.Param("id"))
	}
	return uint(id), nil
}

// optionalID — пустая или некорректная строка даёт nil.
func optionalID(s string) *uint {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

// optionalInt — часы и недели в формах; пустое поле — nil.
func optionalInt(field, s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, errs.Invalid(field, "must be a whole number")
	}
	return &v, nil
}

// parseDate — YYYY-MM-DD из формы; пустое поле — nil.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, errs.Invalid(field, "date must be YYYY-MM-DD")
	}
	return &t, nil
}

// currentUserID — id из сессии; nil для анонимных запросов.
func currentUserID(c *gin.Context) *uint {
	sess := sessions.Default(c)
	if uid, ok := sess.Get("user_id").(uint); ok && uid > 0 {
		return &uid
	}
	return nil
}

func currentRole(c *gin.Context) models.UserRole {
	sess := sessions.Default(c)
	roleStr, _ := sess.Get("role").(string)
	return models.UserRole(roleStr)
}

// flash — одноразовое сообщение через сессию.
func flash(c *gin.Context, msg string) {
	sess := sessions.Default(c)
	sess.AddFlash(msg)
	_ = sess.Save()
}

func flashes(c *gin.Context) []string {
	sess := sessions.Default(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save()
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
