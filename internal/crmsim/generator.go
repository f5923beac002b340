package crmsim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Task is one synthetic CRM task as it appears on the wire. Values are kept
// loosely typed so that malformed data can be served as-is.
type Task map[string]any

// Generator creates fake tasks. The same seed and base time always yield the
// same tasks.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a new task generator
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

var salesNames = []string{
	"Andi Pratama",
	"Budi Santoso",
	"Citra Lestari",
	"Dewi Anggraini",
	"Eko Saputra",
	"Fajar Nugroho",
}

// Status codes 1-5 plus codes the dashboard does not know
var (
	statusCodes   = []any{1, 2, 3, 4, 5, 9, "4", nil}
	statusWeights = []int{20, 25, 10, 30, 8, 3, 3, 1}
)

// Conversion stages plus garbage values
var (
	conversionCodes   = []any{3866814, 3866815, "3866816", 3866817, "3866818", 3866819, 3866820, "3866815.0", 123, "n/a", "", nil}
	conversionWeights = []int{10, 20, 8, 12, 10, 10, 8, 2, 2, 3, 3, 12}
)

var engagementTypes = []any{1, 2, 3, "2", nil}

var fieldNames = []string{"Lead Source", "Region", "Product", "Priority", "Notes"}

var fieldValues = map[string][]string{
	"Lead Source": {"Referral", "Website", "Exhibition", "Cold Call"},
	"Region":      {"Jakarta", "Surabaya", "Bandung", "Medan"},
	"Product":     {"Starter", "Business", "Enterprise"},
	"Priority":    {"Low", "Medium", "High"},
	"Notes":       {"follow up next week", "waiting for budget", "sent brochure"},
}

// GenerateTasks creates count tasks with due dates spread over the two weeks
// around base
func (g *Generator) GenerateTasks(count int, base time.Time) []Task {
	tasks := make([]Task, count)
	for i := 0; i < count; i++ {
		tasks[i] = g.generateTask(i, base)
	}
	return tasks
}

func (g *Generator) generateTask(index int, base time.Time) Task {
	externalID, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		externalID = uuid.Nil
	}

	task := Task{
		"id":                 1000000 + index,
		"name":               fmt.Sprintf("Follow up %s", externalID.String()[:8]),
		"external_id":        externalID.String(),
		"due_date":           g.dueDate(base),
		"user_full_name":     g.assignee(),
		"crm_task_status_id": g.weightedChoice(statusCodes, statusWeights),
		"convert_to":         g.weightedChoice(conversionCodes, conversionWeights),
		"engagement_type":    engagementTypes[g.rng.Intn(len(engagementTypes))],
		"additional_fields":  g.additionalFields(),
	}
	return task
}

// dueDate mostly returns RFC 3339 timestamps, sometimes other layouts or
// values that cannot be parsed
func (g *Generator) dueDate(base time.Time) any {
	offset := time.Duration(g.rng.Intn(14*24)-7*24) * time.Hour
	t := base.Add(offset).Truncate(time.Hour)

	switch n := g.rng.Intn(100); {
	case n < 75:
		return t.Format(time.RFC3339)
	case n < 85:
		return t.Format("2006-01-02 15:04:05")
	case n < 90:
		return t.Format("2006-01-02")
	case n < 94:
		return "not-a-date"
	case n < 97:
		return ""
	default:
		return nil
	}
}

func (g *Generator) assignee() any {
	if g.rng.Intn(50) == 0 {
		return nil
	}
	return salesNames[g.rng.Intn(len(salesNames))]
}

// additionalFields returns a random subset of fields, occasionally with a
// repeated name or a null value
func (g *Generator) additionalFields() []map[string]any {
	var fields []map[string]any
	for _, name := range fieldNames {
		if g.rng.Intn(3) == 0 {
			continue
		}
		values := fieldValues[name]
		var value any = values[g.rng.Intn(len(values))]
		if g.rng.Intn(20) == 0 {
			value = nil
		}
		fields = append(fields, map[string]any{"name": name, "value": value})
	}

	if len(fields) > 0 && g.rng.Intn(10) == 0 {
		// Repeat the first name with a different value
		name := fields[0]["name"].(string)
		values := fieldValues[name]
		fields = append(fields, map[string]any{"name": name, "value": values[g.rng.Intn(len(values))]})
	}
	return fields
}

// weightedChoice selects an item based on weights
func (g *Generator) weightedChoice(items []any, weights []int) any {
	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	choice := g.rng.Intn(totalWeight)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if choice < cumulative {
			return items[i]
		}
	}
	return items[0]
}
