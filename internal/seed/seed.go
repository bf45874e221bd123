// Package seed заполняет базу демо-данными FamilyHub из встроенного sample.yaml.
package seed

import (
	_ "embed"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
)

//go:embed sample.yaml
var sampleYAML []byte

// DefaultPassword — пароль владельца, если его приходится создавать.
const DefaultPassword = "password123"

type Options struct {
	Reset   bool
	Minimal bool
	// User — логин владельца проекта; создаётся, если его нет.
	User string
}

// Summary — что удалено и что создано.
type Summary struct {
	Owner        string
	OwnerCreated bool
	Deleted      map[string]int64

	Projects     int64
	Applications int64
	Tasks        int64
	Artifacts    int64
	Decisions    int64
	Integrations int64
}

type dataset struct {
	Minimal       plan `yaml:"minimal"`
	Comprehensive plan `yaml:"comprehensive"`
}

type plan struct {
	Project           projectSpec               `yaml:"project"`
	Applications      []appSpec                 `yaml:"applications"`
	TaskTemplates     map[string][]taskTemplate `yaml:"task_templates"`
	ArtifactApps      int                       `yaml:"artifact_apps"`
	ArtifactTemplates []artifactTemplate        `yaml:"artifact_templates"`
	Decisions         []decisionSpec            `yaml:"decisions"`
	Integrations      []integrationSpec         `yaml:"integrations"`
}

type projectSpec struct {
	Name         string               `yaml:"name"`
	Description  string               `yaml:"description"`
	Status       models.ProjectStatus `yaml:"status"`
	StartOffset  int                  `yaml:"start_offset"`
	TargetOffset int                  `yaml:"target_offset"`
}

type appSpec struct {
	Name           string                   `yaml:"name"`
	Description    string                   `yaml:"description"`
	Status         models.ApplicationStatus `yaml:"status"`
	Complexity     models.AppComplexity     `yaml:"complexity"`
	EstimatedWeeks int                      `yaml:"estimated_weeks"`
	Features       []string                 `yaml:"features"`
	Tasks          []taskTemplate           `yaml:"tasks"`
}

type decisionSpec struct {
	Title       string                `yaml:"title"`
	Description string                `yaml:"description"`
	Status      models.DecisionStatus `yaml:"status"`
	Impact      models.Impact         `yaml:"impact"`
}

type integrationSpec struct {
	From           string                       `yaml:"from"`
	To             string                       `yaml:"to"`
	Type           models.IntegrationType       `yaml:"type"`
	Description    string                       `yaml:"description"`
	Status         models.IntegrationStatus     `yaml:"status"`
	Complexity     models.IntegrationComplexity `yaml:"complexity"`
	EstimatedWeeks int                          `yaml:"estimated_weeks"`
}

// taskTemplate в YAML — строка [title, description, status, priority].
type taskTemplate struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
}

func (t *taskTemplate) UnmarshalYAML(n *yaml.Node) error {
	var row []string
	if err := n.Decode(&row); err != nil {
		return err
	}
	if len(row) != 4 {
		return errs.Invalid("task_templates", "line %d: want 4 columns, got %d", n.Line, len(row))
	}
	*t = taskTemplate{row[0], row[1], models.TaskStatus(row[2]), models.TaskPriority(row[3])}
	return nil
}

// artifactTemplate в YAML — строка [name, type, status, description].
type artifactTemplate struct {
	Name        string
	Type        models.ArtifactType
	Status      models.ArtifactStatus
	Description string
}

func (a *artifactTemplate) UnmarshalYAML(n *yaml.Node) error {
	var row []string
	if err := n.Decode(&row); err != nil {
		return err
	}
	if len(row) != 4 {
		return errs.Invalid("artifact_templates", "line %d: want 4 columns, got %d", n.Line, len(row))
	}
	*a = artifactTemplate{row[0], models.ArtifactType(row[1]), models.ArtifactStatus(row[2]), row[3]}
	return nil
}

func load() (*dataset, error) {
	var d dataset
	if err := yaml.Unmarshal(sampleYAML, &d); err != nil {
		return nil, errs.Wrap(err, "parse sample.yaml")
	}
	return &d, nil
}

// dueOffset раскладывает сроки задач без случайности: выполненные — в прошлом
// (1..30 дней), в работе — ближайшие две недели, остальные — 15..60 дней вперёд.
func dueOffset(status models.TaskStatus, seq int) int {
	switch status {
	case models.TaskCompleted:
		return -(1 + (seq*7)%30)
	case models.TaskInProgress:
		return 1 + (seq*3)%14
	default:
		return 15 + (seq*11)%46
	}
}

type seeder struct {
	tx    *gorm.DB
	today time.Time
	log   zerolog.Logger
	sum   *Summary
	seq   int
}

// Run заполняет базу одним набором (Minimal или полным) в одной транзакции.
func Run(db *gorm.DB, clk clock.Clock, lg zerolog.Logger, opts Options) (*Summary, error) {
	if clk == nil {
		clk = clock.Real{}
	}
	if opts.User == "" {
		opts.User = "admin"
	}
	data, err := load()
	if err != nil {
		return nil, err
	}
	p := &data.Comprehensive
	if opts.Minimal {
		p = &data.Minimal
	}

	sum := &Summary{Owner: opts.User, Deleted: map[string]int64{}}
	err = db.Transaction(func(tx *gorm.DB) error {
		if opts.Reset {
			if err := reset(tx, sum, lg); err != nil {
				return err
			}
		}

		var exists int64
		if err := tx.Model(&models.Project{}).Where("name = ?", p.Project.Name).Count(&exists).Error; err != nil {
			return err
		}
		if exists > 0 {
			return errs.Invalid("reset", "project %q already exists, run with --reset", p.Project.Name)
		}

		owner, created, err := ensureOwner(tx, opts.User)
		if err != nil {
			return err
		}
		sum.OwnerCreated = created
		if created {
			lg.Info().Str("username", owner.Username).Msg("created project owner")
		}

		s := &seeder{tx: tx, today: clock.Today(clk), log: lg, sum: sum}
		return s.apply(p, owner)
	})
	if err != nil {
		return nil, errs.Wrap(err, "populate sample data")
	}
	return sum, nil
}

// reset удаляет данные трекера от зависимых к корневым. Пользователи остаются.
func reset(tx *gorm.DB, sum *Summary, lg zerolog.Logger) error {
	order := []struct {
		name  string
		model any
	}{
		{"integrations", &models.Integration{}},
		{"decisions", &models.Decision{}},
		{"artifacts", &models.Artifact{}},
		{"tasks", &models.Task{}},
		{"applications", &models.Application{}},
		{"projects", &models.Project{}},
	}
	for _, o := range order {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(o.model)
		if res.Error != nil {
			return errs.Wrapf(res.Error, "delete %s", o.name)
		}
		if res.RowsAffected > 0 {
			sum.Deleted[o.name] = res.RowsAffected
			lg.Info().Int64("count", res.RowsAffected).Str("table", o.name).Msg("deleted existing records")
		}
	}
	return nil
}

func ensureOwner(tx *gorm.DB, username string) (*models.User, bool, error) {
	var u models.User
	err := tx.Where("username = ?", username).First(&u).Error
	if err == nil {
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	u = models.User{
		Username:     username,
		Email:        username + "@familyhub.dev",
		FirstName:    "Project",
		LastName:     "Owner",
		PasswordHash: string(hash),
		Role:         models.RoleManager,
	}
	if err := tx.Create(&u).Error; err != nil {
		return nil, false, err
	}
	return &u, true, nil
}

func (s *seeder) date(offset int) *time.Time {
	d := s.today.AddDate(0, 0, offset)
	return &d
}

func (s *seeder) apply(p *plan, owner *models.User) error {
	project := models.Project{
		Name:        p.Project.Name,
		Description: p.Project.Description,
		Status:      p.Project.Status,
		OwnerID:     &owner.ID,
		StartDate:   s.date(p.Project.StartOffset),
		TargetDate:  s.date(p.Project.TargetOffset),
	}
	if err := s.create(&project, project.Validate()); err != nil {
		return err
	}
	s.sum.Projects++

	apps := make(map[string]*models.Application, len(p.Applications))
	ordered := make([]*models.Application, 0, len(p.Applications))
	for _, def := range p.Applications {
		app := &models.Application{
			ProjectID:      project.ID,
			Name:           def.Name,
			Description:    def.Description,
			Status:         def.Status,
			Complexity:     def.Complexity,
			EstimatedWeeks: def.EstimatedWeeks,
			Features:       def.Features,
		}
		if app.Complexity == "" {
			app.Complexity = models.AppMedium
		}
		if err := s.create(app, app.Validate()); err != nil {
			return err
		}
		s.sum.Applications++
		apps[app.Name] = app
		ordered = append(ordered, app)

		tasks := def.Tasks
		if len(tasks) == 0 && p.TaskTemplates != nil {
			tasks = p.TaskTemplates[string(app.Status)]
			if tasks == nil {
				tasks = p.TaskTemplates[string(models.AppDevelopment)]
			}
		}
		prefix := ""
		if len(def.Tasks) == 0 {
			prefix = app.Name + ": "
		}
		for _, tpl := range tasks {
			if err := s.task(app, prefix, tpl); err != nil {
				return err
			}
		}
	}

	for i, app := range ordered {
		if i >= p.ArtifactApps {
			break
		}
		for _, tpl := range p.ArtifactTemplates {
			if err := s.artifact(app, owner, tpl); err != nil {
				return err
			}
		}
	}

	for _, def := range p.Decisions {
		d := models.Decision{
			ProjectID:   project.ID,
			Title:       def.Title,
			Description: def.Description,
			Status:      def.Status,
			Impact:      def.Impact,
		}
		if err := s.create(&d, d.Validate(nil)); err != nil {
			return err
		}
		s.sum.Decisions++
	}

	for _, def := range p.Integrations {
		from, to := apps[def.From], apps[def.To]
		if from == nil || to == nil {
			s.log.Warn().Str("from", def.From).Str("to", def.To).Msg("integration endpoint not in dataset, skipped")
			continue
		}
		i := models.Integration{
			FromAppID:       from.ID,
			ToAppID:         to.ID,
			IntegrationType: def.Type,
			Description:     def.Description,
			Status:          def.Status,
			Complexity:      def.Complexity,
			EstimatedWeeks:  def.EstimatedWeeks,
		}
		if err := s.create(&i, i.Validate(*from, *to)); err != nil {
			return err
		}
		s.sum.Integrations++
	}
	return nil
}

func (s *seeder) task(app *models.Application, prefix string, tpl taskTemplate) error {
	s.seq++
	t := models.Task{
		ApplicationID: app.ID,
		Title:         prefix + tpl.Title,
		Description:   tpl.Description,
		Status:        tpl.Status,
		Priority:      tpl.Priority,
		Assignee:      models.AssigneeHuman,
		DueDate:       s.date(dueOffset(tpl.Status, s.seq)),
	}
	// Срок в прошлом допустим: выполненные задачи закрыты задним числом.
	if err := s.create(&t, t.Validate(false, s.today)); err != nil {
		return err
	}
	s.sum.Tasks++
	return nil
}

func (s *seeder) artifact(app *models.Application, owner *models.User, tpl artifactTemplate) error {
	a := models.Artifact{
		ApplicationID: &app.ID,
		Name:          app.Name + " - " + tpl.Name,
		Type:          tpl.Type,
		Status:        tpl.Status,
		Description:   tpl.Description,
		Version:       models.DefaultArtifactVersion,
		Content:       "Sample content for " + tpl.Name + " of " + app.Name + ".",
		CreatedByID:   &owner.ID,
	}
	if err := s.create(&a, a.Validate()); err != nil {
		return err
	}
	s.sum.Artifacts++
	return nil
}

// create сохраняет запись, если validateErr пуст.
func (s *seeder) create(v any, validateErr error) error {
	if validateErr != nil {
		return validateErr
	}
	return s.tx.Create(v).Error
}
