package models

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"familyhub-tracker/internal/errs"
)

type ArtifactType string

const (
	ArtifactRequirements  ArtifactType = "requirements"
	ArtifactCode          ArtifactType = "code"
	ArtifactDocumentation ArtifactType = "documentation"
	ArtifactArchitecture  ArtifactType = "architecture"
	ArtifactDesign        ArtifactType = "design"
)

var ArtifactTypeChoices = []Choice{
	{string(ArtifactRequirements), "Requirements"},
	{string(ArtifactCode), "Code"},
	{string(ArtifactDocumentation), "Documentation"},
	{string(ArtifactArchitecture), "Architecture"},
	{string(ArtifactDesign), "Design"},
}

func (t ArtifactType) Valid() bool   { return validChoice(ArtifactTypeChoices, string(t)) }
func (t ArtifactType) Label() string { return labelOf(ArtifactTypeChoices, string(t)) }

type ArtifactStatus string

const (
	ArtifactDraft      ArtifactStatus = "draft"
	ArtifactInProgress ArtifactStatus = "in-progress"
	ArtifactReview     ArtifactStatus = "review"
	ArtifactComplete   ArtifactStatus = "complete"
)

var ArtifactStatusChoices = []Choice{
	{string(ArtifactDraft), "Draft"},
	{string(ArtifactInProgress), "In Progress"},
	{string(ArtifactReview), "Review"},
	{string(ArtifactComplete), "Complete"},
}

func (s ArtifactStatus) Valid() bool   { return validChoice(ArtifactStatusChoices, string(s)) }
func (s ArtifactStatus) Label() string { return labelOf(ArtifactStatusChoices, string(s)) }

const (
	DefaultArtifactVersion = "1.0"
	MaxUploadBytes         = 10 * 1024 * 1024
)

var allowedUploadExt = map[string]struct{}{
	"pdf": {}, "doc": {}, "docx": {}, "txt": {}, "md": {}, "py": {},
	"js": {}, "html": {}, "css": {}, "json": {}, "xml": {},
}

type Artifact struct {
	Model
	// артефакт может жить и без приложения
	ApplicationID *uint `gorm:"index"`
	Application   *Application

	Name        string         `gorm:"size:200;not null"`
	Type        ArtifactType   `gorm:"type:varchar(20)"`
	Description string         `gorm:"type:text"`
	Content     string         `gorm:"type:text"`
	FilePath    string         `gorm:"size:500"`
	FileName    string         `gorm:"size:255"`
	FileSize    int64          `gorm:"not null;default:0"`
	URL         string         `gorm:"size:500"`
	Version     string         `gorm:"size:10;not null;default:'1.0'"`
	Status      ArtifactStatus `gorm:"type:varchar(20);not null;default:draft"`

	CreatedByID *uint
	CreatedBy   *User
}

// HasContent — текст, файл или ссылка; нужен хотя бы один источник.
func (a Artifact) HasContent() bool {
	return strings.TrimSpace(a.Content) != "" || a.FilePath != "" || strings.TrimSpace(a.URL) != ""
}

func (a Artifact) HasFile() bool { return a.FilePath != "" }

// FileSizeMB — размер файла в мегабайтах, два знака.
func (a Artifact) FileSizeMB() float64 {
	if a.FileSize == 0 {
		return 0
	}
	mb := float64(a.FileSize) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}

func (a *Artifact) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return errs.Invalid("name", "artifact name is required")
	}
	if a.Type != "" && !a.Type.Valid() {
		return errs.Invalid("type", "unknown artifact type %q", a.Type)
	}
	if a.Status == "" {
		a.Status = ArtifactDraft
	}
	if !a.Status.Valid() {
		return errs.Invalid("status", "unknown artifact status %q", a.Status)
	}
	if a.Version == "" {
		a.Version = DefaultArtifactVersion
	}
	if _, _, ok := parseVersion(a.Version); !ok {
		return errs.Invalid("version", "version must look like major.minor, e.g. 1.0")
	}
	if !a.HasContent() {
		return errs.Invalid("", "provide text content, a file or a URL")
	}
	return nil
}

// NextVersion поднимает минорную версию: "1.3" → "1.4". Нераспознанная версия → "1.1".
func NextVersion(v string) string {
	major, minor, ok := parseVersion(v)
	if !ok {
		return "1.1"
	}
	return fmt.Sprintf("%d.%d", major, minor+1)
}

func parseVersion(v string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return 0, 0, false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return 0, 0, false
	}
	return major, minor, true
}

// ValidateUpload — лимит 10 МБ и белый список расширений.
func ValidateUpload(filename string, size int64) error {
	if size > MaxUploadBytes {
		return errs.Invalid("file", "file size cannot exceed 10MB")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := allowedUploadExt[ext]; !ok {
		return errs.Invalid("file", "file type %q not allowed", ext)
	}
	return nil
}
