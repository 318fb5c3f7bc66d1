package catalog

import "github.com/abhisek/campus/internal/validate"

func obj(props map[string]any, required ...any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func arrayOf(items map[string]any, minItems int) map[string]any {
	return map[string]any{"type": "array", "items": items, "minItems": minItems}
}

var (
	idField    = map[string]any{"type": "string", "minLength": 1}
	textField  = map[string]any{"type": "string"}
	orderField = map[string]any{"type": "integer"}
)

var answerDef = obj(map[string]any{
	"id":          idField,
	"answer":      textField,
	"is_correct":  map[string]any{"type": "boolean"},
	"explanation": textField,
	"order_index": orderField,
}, "id", "answer", "is_correct")

var questionDef = obj(map[string]any{
	"id":          idField,
	"question":    textField,
	"explanation": textField,
	"order_index": orderField,
	"answers":     arrayOf(answerDef, 2),
}, "id", "question", "answers")

var quizDef = obj(map[string]any{
	"id":         idField,
	"title":      textField,
	"quiz_type":  map[string]any{"type": "string", "enum": []any{string(QuizTypeChapter), string(QuizTypeBlock)}},
	"chapter_id": map[string]any{"type": []any{"string", "null"}},
	"questions":  arrayOf(questionDef, 0),
}, "id", "title", "questions")

var lessonDef = obj(map[string]any{
	"id":          idField,
	"title":       textField,
	"content":     textField,
	"duration":    map[string]any{"type": []any{"integer", "null"}, "minimum": 0},
	"order_index": orderField,
}, "id", "title")

var chapterDef = obj(map[string]any{
	"id":          idField,
	"title":       textField,
	"order_index": orderField,
	"lessons":     arrayOf(lessonDef, 0),
	"quizzes":     arrayOf(quizDef, 0),
}, "id", "title", "lessons")

var skillDef = obj(map[string]any{
	"name":     map[string]any{"type": "string", "minLength": 1},
	"level":    map[string]any{"type": []any{"integer", "null"}},
	"score":    map[string]any{"type": []any{"number", "null"}, "minimum": 0, "maximum": 100},
	"attempts": map[string]any{"type": []any{"integer", "null"}, "minimum": 0},
}, "name")

var blockDef = obj(map[string]any{
	"id":          idField,
	"name":        textField,
	"description": textField,
	"order_index": orderField,
	"kind":        map[string]any{"type": "string", "enum": []any{string(KindSkills), string(KindChapters)}},
	"skills":      arrayOf(skillDef, 0),
	"chapters":    arrayOf(chapterDef, 0),
	"quizzes":     arrayOf(quizDef, 0),
}, "id", "name")

// DocumentSchema describes a formation import document.
var DocumentSchema = &validate.Schema{
	Name: "formation-document",
	Definition: obj(map[string]any{
		"format_version": map[string]any{"type": "string", "pattern": "^v[0-9]+(\\.[0-9]+){0,2}$"},
		"formation": obj(map[string]any{
			"id":          idField,
			"title":       map[string]any{"type": "string", "minLength": 1},
			"description": textField,
			"blocks":      arrayOf(blockDef, 1),
		}, "id", "title", "blocks"),
	}, "format_version", "formation"),
}
