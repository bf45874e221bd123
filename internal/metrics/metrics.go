// Package metrics — производные показатели трекера: проценты выполнения,
// просрочка, отклонение по часам, оценка интеграций, "здоровье" проекта.
//
// Все функции чистые: текущая дата передаётся явно, пустые наборы дают 0 или nil.
package metrics

import (
	"math"
	"time"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/models"
)

const (
	HoursPerWeek = 40

	// PendingDecisionThresholdDays — после стольких дней решение "висит".
	PendingDecisionThresholdDays = 30
)

var integrationMultipliers = map[models.IntegrationComplexity]float64{
	models.IntegrationSimple:  1.0,
	models.IntegrationMedium:  1.5,
	models.IntegrationComplex: 2.5,
}

// Round1 — округление до одного знака, половина от нуля.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CompletionPercentage — round(100*completed/total, 1); 0 при total == 0.
func CompletionPercentage(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return Round1(100 * float64(completed) / float64(total))
}

// Rate — доля в процентах без округления (для счётчиков на дашборде).
func Rate(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// IsOverdue: срок задан, уже прошёл, задача pending или in-progress.
// Блокированные задачи просроченными не считаются.
func IsOverdue(status models.TaskStatus, due *time.Time, today time.Time) bool {
	if due == nil || !status.Open() {
		return false
	}
	return clock.DateOnly(*due).Before(clock.DateOnly(today))
}

func TaskIsOverdue(t models.Task, today time.Time) bool {
	return IsOverdue(t.Status, t.DueDate, today)
}

func OverdueCount(tasks []models.Task, today time.Time) int {
	n := 0
	for _, t := range tasks {
		if TaskIsOverdue(t, today) {
			n++
		}
	}
	return n
}

// DaysOverdue — сколько дней задача просрочена; 0, если не просрочена.
func DaysOverdue(t models.Task, today time.Time) int {
	if !TaskIsOverdue(t, today) {
		return 0
	}
	return daysBetween(*t.DueDate, today)
}

// DaysUntilDue — дней до срока (отрицательное — срок прошёл); nil без срока.
func DaysUntilDue(t models.Task, today time.Time) *int {
	if t.DueDate == nil {
		return nil
	}
	d := daysBetween(today, *t.DueDate)
	return &d
}

// HoursVariance — actual − estimated, если заданы оба; иначе nil.
func HoursVariance(estimated, actual *int) *int {
	if estimated == nil || actual == nil {
		return nil
	}
	v := *actual - *estimated
	return &v
}

func TaskHoursVariance(t models.Task) *int {
	return HoursVariance(t.EstimatedHours, t.ActualHours)
}

// VarianceLabel — подпись для отклонения по часам.
func VarianceLabel(v *int) string {
	switch {
	case v == nil:
		return "N/A"
	case *v > 0:
		return "over budget"
	case *v < 0:
		return "under budget"
	default:
		return "on target"
	}
}

// ComplexityMultiplier — множитель сложности интеграции; неизвестное значение — 1.0.
func ComplexityMultiplier(c models.IntegrationComplexity) float64 {
	if m, ok := integrationMultipliers[c.Normalize()]; ok {
		return m
	}
	return 1.0
}

// IntegrationEstimatedHours — round(weeks * 40 * multiplier).
func IntegrationEstimatedHours(weeks int, c models.IntegrationComplexity) int {
	return int(math.Round(float64(weeks) * HoursPerWeek * ComplexityMultiplier(c)))
}

// HealthScore — 0.6*выполнение + 0.4*соблюдение графика, шкала 0–100, один знак.
// График: выполнение относительно ожидаемого по прошедшему времени, не больше 1.
// Без дат или при пустом интервале график считается выполненным.
func HealthScore(completionPct float64, start, target *time.Time, today time.Time) float64 {
	completion := completionPct / 100
	schedule := 1.0

	if start != nil && target != nil {
		total := daysBetween(*start, *target)
		if total > 0 {
			elapsed := daysBetween(*start, today)
			expected := float64(elapsed) / float64(total) * 100
			if expected > 0 {
				schedule = math.Min(1, completionPct/expected)
			}
		}
	}

	return Round1((0.6*completion + 0.4*schedule) * 100)
}

// DaysRemaining — дней до целевой даты проекта; nil без даты.
func DaysRemaining(target *time.Time, today time.Time) *int {
	if target == nil {
		return nil
	}
	d := daysBetween(today, *target)
	return &d
}

// ProjectIsOverdue — целевая дата прошла, а проект не завершён и не отменён.
func ProjectIsOverdue(p models.Project, today time.Time) bool {
	if p.TargetDate == nil {
		return false
	}
	if p.Status == models.ProjectCompleted || p.Status == models.ProjectCancelled {
		return false
	}
	return clock.DateOnly(*p.TargetDate).Before(clock.DateOnly(today))
}

// ApplicationDaysToTarget — дней до плановой готовности приложения:
// дата создания + estimated_weeks недель.
func ApplicationDaysToTarget(created time.Time, weeks int, today time.Time) int {
	target := clock.DateOnly(created).AddDate(0, 0, weeks*7)
	return daysBetween(today, target)
}

// AgeInDays — полных дней с даты создания.
func AgeInDays(created, today time.Time) int {
	return daysBetween(created, today)
}

func IsPendingTooLong(status models.DecisionStatus, created, today time.Time) bool {
	return status == models.DecisionPending && AgeInDays(created, today) > PendingDecisionThresholdDays
}

func daysBetween(from, to time.Time) int {
	return int(clock.DateOnly(to).Sub(clock.DateOnly(from)).Hours() / 24)
}
