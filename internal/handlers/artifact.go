package handlers

import (
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
)

const uploadDir = "artifacts"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

//
// СПИСОК АРТЕФАКТОВ
//

func ListArtifacts(c *gin.Context) {
	filter := map[string]string{
		"application": c.Query("application"),
		"type":        c.Query("type"),
		"status":      c.Query("status"),
		"q":           strings.TrimSpace(c.Query("q")),
	}

	dbq := database.DB.Preload("Application").Order("updated_at desc")
	if aid := optionalID(filter["application"]); aid != nil {
		dbq = dbq.Where("application_id = ?", *aid)
	}
	if v := filter["type"]; v != "" {
		dbq = dbq.Where("type = ?", v)
	}
	if v := filter["status"]; v != "" {
		dbq = dbq.Where("status = ?", v)
	}
	if q := filter["q"]; q != "" {
		pat := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(content) LIKE ? OR LOWER(description) LIKE ?", pat, pat, pat)
	}

	var artifacts []models.Artifact
	if err := dbq.Find(&artifacts).Error; err != nil {
		pageError(c, errs.Wrap(err, "load artifacts"))
		return
	}
	var apps []models.Application
	database.DB.Order("name asc").Find(&apps)

	render(c, http.StatusOK, "artifacts_list.html", gin.H{
		"artifacts": artifacts,
		"apps":      apps,
		"types":     models.ArtifactTypeChoices,
		"statuses":  models.ArtifactStatusChoices,
		"filter":    filter,
	})
}

//
// КАРТОЧКА АРТЕФАКТА
//

func ShowArtifact(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	artifact, err := database.FindByID[models.Artifact](database.DB, id, "Application", "CreatedBy")
	if err != nil {
		pageError(c, err)
		return
	}

	// другие версии — артефакты с тем же именем в том же приложении
	var history []models.Artifact
	hq := database.DB.Where("name = ? AND id <> ?", artifact.Name, artifact.ID)
	if artifact.ApplicationID != nil {
		hq = hq.Where("application_id = ?", *artifact.ApplicationID)
	} else {
		hq = hq.Where("application_id IS NULL")
	}
	hq.Order("created_at desc").Find(&history)

	render(c, http.StatusOK, "artifact_detail.html", gin.H{
		"artifact": artifact,
		"history":  history,
	})
}

// GET /artifacts/:id/download
func DownloadArtifact(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	artifact, err := database.FindByID[models.Artifact](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	if !artifact.HasFile() {
		pageError(c, errs.Wrapf(errs.ErrNotFound, "artifact %d has no file", id))
		return
	}
	full := mediaPath(artifact.FilePath)
	if _, err := os.Stat(full); err != nil {
		pageError(c, errs.Wrapf(errs.ErrNotFound, "file of artifact %d", id))
		return
	}
	c.FileAttachment(full, artifact.FileName)
}

//
// СОЗДАНИЕ / РЕДАКТИРОВАНИЕ
//

type artifactForm struct {
	ApplicationID    string `form:"application_id"`
	Name             string `form:"name"`
	Type             string `form:"type"`
	Description      string `form:"description"`
	Content          string `form:"content"`
	URL              string `form:"url"`
	Version          string `form:"version"`
	Status           string `form:"status"`
	IncrementVersion bool   `form:"increment_version"`
	RemoveFile       bool   `form:"remove_file"`
}

func (f artifactForm) apply(a *models.Artifact) error {
	a.ApplicationID = optionalID(f.ApplicationID)
	a.Application = nil
	if a.ApplicationID != nil {
		var exists int64
		database.DB.Model(&models.Application{}).Where("id = ?", *a.ApplicationID).Count(&exists)
		if exists == 0 {
			return errs.Invalid("application_id", "application not found")
		}
	}
	a.Name = f.Name
	a.Type = models.ArtifactType(f.Type)
	a.Description = strings.TrimSpace(f.Description)
	a.Content = f.Content
	a.URL = strings.TrimSpace(f.URL)
	a.Status = models.ArtifactStatus(f.Status)
	if v := strings.TrimSpace(f.Version); v != "" {
		a.Version = v
	}
	if f.IncrementVersion && a.ID != 0 {
		a.Version = models.NextVersion(a.Version)
	}
	return nil
}

// saveUpload кладёт файл в MEDIA_ROOT/artifacts под уникальным именем
// и возвращает путь относительно MEDIA_ROOT.
func saveUpload(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	if err := models.ValidateUpload(fh.Filename, fh.Size); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(deps.MediaRoot, uploadDir), 0o755); err != nil {
		return "", errs.Wrap(err, "create upload dir")
	}
	clean := unsafeFileChars.ReplaceAllString(filepath.Base(fh.Filename), "_")
	rel := path.Join(uploadDir, uuid.NewString()+"_"+clean)
	if err := c.SaveUploadedFile(fh, mediaPath(rel)); err != nil {
		return "", errs.Wrap(err, "save upload")
	}
	return rel, nil
}

func renderArtifactForm(c *gin.Context, status int, artifact models.Artifact, err error) {
	var apps []models.Application
	database.DB.Preload("Project").Order("name asc").Find(&apps)

	data := gin.H{
		"artifact": artifact,
		"apps":     apps,
		"types":    models.ArtifactTypeChoices,
		"statuses": models.ArtifactStatusChoices,
		"isNew":    artifact.ID == 0,
	}
	if err != nil {
		data["error"] = errs.Message(err)
	}
	render(c, status, "artifact_form.html", data)
}

func ShowNewArtifact(c *gin.Context) {
	a := models.Artifact{Status: models.ArtifactDraft, Version: models.DefaultArtifactVersion}
	a.ApplicationID = optionalID(c.Query("application"))
	renderArtifactForm(c, http.StatusOK, a, nil)
}

func CreateArtifact(c *gin.Context) {
	var form artifactForm
	if err := bindForm(c, &form); err != nil {
		renderArtifactForm(c, http.StatusBadRequest, models.Artifact{Status: models.ArtifactDraft, Version: models.DefaultArtifactVersion}, err)
		return
	}

	artifact := models.Artifact{CreatedByID: currentUserID(c)}
	if err := form.apply(&artifact); err != nil {
		renderArtifactForm(c, http.StatusBadRequest, artifact, err)
		return
	}

	if fh, err := c.FormFile("file"); err == nil {
		if err := models.ValidateUpload(fh.Filename, fh.Size); err != nil {
			renderArtifactForm(c, http.StatusBadRequest, artifact, err)
			return
		}
		// проверяем поля до записи файла, чтобы не оставлять мусор
		if err := validateArtifact(&artifact, true); err != nil {
			renderArtifactForm(c, http.StatusBadRequest, artifact, err)
			return
		}
		rel, err := saveUpload(c, fh)
		if err != nil {
			pageError(c, err)
			return
		}
		artifact.FilePath, artifact.FileName, artifact.FileSize = rel, filepath.Base(fh.Filename), fh.Size
	}

	if err := artifact.Validate(); err != nil {
		renderArtifactForm(c, http.StatusBadRequest, artifact, err)
		return
	}
	if err := database.DB.Create(&artifact).Error; err != nil {
		removeFiles([]string{artifact.FilePath})
		renderArtifactForm(c, http.StatusInternalServerError, artifact, errs.Invalid("", "could not save artifact"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "artifact", artifact.ID, artifactProject(artifact), "create", "Created artifact "+artifact.Name)
	flash(c, "Artifact created")
	c.Redirect(http.StatusFound, "/artifacts/"+idStr(artifact.ID))
}

func ShowEditArtifact(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	artifact, err := database.FindByID[models.Artifact](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	renderArtifactForm(c, http.StatusOK, *artifact, nil)
}

func UpdateArtifact(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	artifact, err := database.FindByID[models.Artifact](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}

	var form artifactForm
	if err := bindForm(c, &form); err != nil {
		renderArtifactForm(c, http.StatusBadRequest, *artifact, err)
		return
	}
	if err := form.apply(artifact); err != nil {
		renderArtifactForm(c, http.StatusBadRequest, *artifact, err)
		return
	}

	oldFile := artifact.FilePath
	var staleFile string
	if form.RemoveFile && oldFile != "" {
		artifact.FilePath, artifact.FileName, artifact.FileSize = "", "", 0
		staleFile = oldFile
	}
	var upload *multipart.FileHeader
	if fh, err := c.FormFile("file"); err == nil {
		if err := models.ValidateUpload(fh.Filename, fh.Size); err != nil {
			renderArtifactForm(c, http.StatusBadRequest, *artifact, err)
			return
		}
		upload = fh
	}
	if err := validateArtifact(artifact, upload != nil); err != nil {
		renderArtifactForm(c, http.StatusBadRequest, *artifact, err)
		return
	}
	if upload != nil {
		rel, err := saveUpload(c, upload)
		if err != nil {
			pageError(c, err)
			return
		}
		artifact.FilePath, artifact.FileName, artifact.FileSize = rel, filepath.Base(upload.Filename), upload.Size
		if oldFile != "" {
			staleFile = oldFile
		}
	}

	if err := database.DB.Save(artifact).Error; err != nil {
		deps.Logger.Error().Err(err).Uint("artifact_id", artifact.ID).Msg("update artifact failed")
		if upload != nil {
			removeFiles([]string{artifact.FilePath})
		}
		renderArtifactForm(c, http.StatusInternalServerError, *artifact, errs.Invalid("", "could not save artifact"))
		return
	}
	if staleFile != "" {
		removeFiles([]string{staleFile})
	}

	database.CreateActivityLog(currentUserID(c), "artifact", artifact.ID, artifactProject(*artifact), "update",
		"Updated artifact "+artifact.Name+" (v"+artifact.Version+")")
	flash(c, "Artifact updated")
	c.Redirect(http.StatusFound, "/artifacts/"+idStr(artifact.ID))
}

//
// УДАЛЕНИЕ
//

func ConfirmDeleteArtifact(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	artifact, err := database.FindByID[models.Artifact](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"kind":   "artifact",
		"name":   artifact.Name,
		"action": "/artifacts/" + idStr(id) + "/delete",
		"cancel": "/artifacts/" + idStr(id),
	})
}

func DeleteArtifact(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	artifact, err := database.FindByID[models.Artifact](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	if err := database.DeleteByID[models.Artifact](database.DB, id); err != nil {
		pageError(c, err)
		return
	}
	if artifact.HasFile() {
		removeFiles([]string{artifact.FilePath})
	}

	database.CreateActivityLog(currentUserID(c), "artifact", id, artifactProject(*artifact), "delete", "Deleted artifact "+artifact.Name)
	flash(c, "Artifact deleted")
	c.Redirect(http.StatusFound, "/artifacts")
}

// validateArtifact — Validate с учётом ещё не сохранённого файла.
func validateArtifact(a *models.Artifact, uploading bool) error {
	if uploading && a.FilePath == "" {
		a.FilePath = "upload"
		defer func() { a.FilePath = "" }()
	}
	return a.Validate()
}

func artifactProject(a models.Artifact) *uint {
	if a.ApplicationID == nil {
		return nil
	}
	return database.ProjectOfApplication(database.DB, *a.ApplicationID)
}
