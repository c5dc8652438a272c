package services

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

// Правила состава презентации. Страница 1 - титульная, страница 2 - план,
// остальные pageCount-2 страниц - содержательные.
var compositionRules = []struct {
	expr    string
	message string
}{
	{"pageCount >= 4 && pageCount <= 30", "pageCount must be between 4 and 30"},
	{"contentCount == pageCount - 2", "number of content pages must equal pageCount - 2"},
	{"planCount == contentCount", "plan must have exactly one item per content page"},
	{"!withPhoto || photoCount == floor((pageCount - 2) / 2)", "photo count must equal (pageCount - 2) / 2 when withPhoto is set"},
	{"withPhoto || photoCount == 0", "photos are only allowed when withPhoto is set"},
}

var expressionFunctions = map[string]govaluate.ExpressionFunction{
	"floor": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("floor expects one argument")
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("floor expects a number")
		}
		return math.Floor(v), nil
	},
}

var compiledRules []*govaluate.EvaluableExpression

func init() {
	for _, rule := range compositionRules {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(rule.expr, expressionFunctions)
		if err != nil {
			panic(fmt.Sprintf("invalid composition rule %q: %v", rule.expr, err))
		}
		compiledRules = append(compiledRules, expr)
	}
}

// Composition - числовые характеристики презентации для проверки правил.
type Composition struct {
	PageCount    int
	ContentCount int
	PlanCount    int
	PhotoCount   int
	WithPhoto    bool
}

// ValidateComposition проверяет все правила и возвращает ValidationError со списком нарушений.
func ValidateComposition(c Composition) error {
	params := map[string]interface{}{
		"pageCount":    float64(c.PageCount),
		"contentCount": float64(c.ContentCount),
		"planCount":    float64(c.PlanCount),
		"photoCount":   float64(c.PhotoCount),
		"withPhoto":    c.WithPhoto,
	}

	ve := &ValidationError{}
	for i, expr := range compiledRules {
		result, err := expr.Evaluate(params)
		if err != nil {
			return fmt.Errorf("evaluate rule %q: %w", compositionRules[i].expr, err)
		}
		ok, isBool := result.(bool)
		if !isBool {
			return fmt.Errorf("rule %q did not return a boolean", compositionRules[i].expr)
		}
		if !ok {
			ve.add(compositionRules[i].message)
		}
	}
	return ve.orNil()
}
