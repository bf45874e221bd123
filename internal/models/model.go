package models

import (
	"strings"
	"time"
)

// Model — как gorm.Model, но без DeletedAt: удаление жёсткое и идёт
// по цепочке владения (см. database.DeleteProject).
type Model struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Choice — значение перечисления и его подпись для форм.
type Choice struct {
	Value string
	Label string
}

func labelOf(choices []Choice, value string) string {
	for _, c := range choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

func validChoice(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// Kind — вид сущности в выгрузке и поиске.
type Kind string

const (
	KindProjects     Kind = "projects"
	KindApplications Kind = "applications"
	KindTasks        Kind = "tasks"
	KindArtifacts    Kind = "artifacts"
	KindDecisions    Kind = "decisions"
	KindIntegrations Kind = "integrations"
)

// AllKinds — порядок видов по умолчанию.
var AllKinds = []Kind{
	KindProjects,
	KindApplications,
	KindTasks,
	KindArtifacts,
	KindDecisions,
	KindIntegrations,
}

func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Label — заголовок группы: "Tasks".
func (k Kind) Label() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Entity — имя сущности в журнале активности ("task", "project").
func (k Kind) Entity() string {
	switch k {
	case KindProjects:
		return "project"
	case KindApplications:
		return "application"
	case KindTasks:
		return "task"
	case KindArtifacts:
		return "artifact"
	case KindDecisions:
		return "decision"
	case KindIntegrations:
		return "integration"
	}
	return string(k)
}
