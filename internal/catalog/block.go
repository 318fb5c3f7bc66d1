package catalog

import (
	"encoding/json"
	"fmt"
)

// BlockKind tags which progress model a block uses.
type BlockKind string

const (
	// KindSkills blocks derive progress from a flat skill list.
	KindSkills BlockKind = "skills"
	// KindChapters blocks derive progress from chapters, lessons and quizzes.
	KindChapters BlockKind = "chapters"
)

// Block is a competency unit of a formation. Exactly one of Skills or
// Chapters is meaningful, selected by Kind.
type Block struct {
	ID          string    `json:"id"`
	FormationID string    `json:"formation_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OrderIndex  int       `json:"order_index"`
	Kind        BlockKind `json:"kind"`
	Skills      []Skill   `json:"skills,omitempty"`
	Chapters    []Chapter `json:"chapters,omitempty"`

	// Quizzes holds block-level quizzes. Chapter quizzes live on their chapter.
	Quizzes []Quiz `json:"quizzes,omitempty"`
}

// NewSkillsBlock builds a skills-based block.
func NewSkillsBlock(id, name string, skills []Skill) Block {
	return Block{ID: id, Name: name, Kind: KindSkills, Skills: skills}
}

// NewChaptersBlock builds a chapters-based block.
func NewChaptersBlock(id, name string, chapters []Chapter, quizzes []Quiz) Block {
	return Block{ID: id, Name: name, Kind: KindChapters, Chapters: chapters, Quizzes: quizzes}
}

// BlockQuiz returns the block-level quiz, or nil if the block has none.
func (b Block) BlockQuiz() *Quiz {
	for i := range b.Quizzes {
		if b.Quizzes[i].Type == QuizTypeBlock {
			return &b.Quizzes[i]
		}
	}
	return nil
}

// Quiz finds a quiz of the block by ID, searching chapter quizzes too.
func (b Block) Quiz(id string) (*Quiz, bool) {
	for i := range b.Quizzes {
		if b.Quizzes[i].ID == id {
			return &b.Quizzes[i], true
		}
	}
	for ci := range b.Chapters {
		for qi := range b.Chapters[ci].Quizzes {
			if b.Chapters[ci].Quizzes[qi].ID == id {
				return &b.Chapters[ci].Quizzes[qi], true
			}
		}
	}
	return nil, false
}

// Chapter finds a chapter of the block by ID.
func (b Block) Chapter(id string) (*Chapter, bool) {
	for i := range b.Chapters {
		if b.Chapters[i].ID == id {
			return &b.Chapters[i], true
		}
	}
	return nil, false
}

// UnmarshalJSON decides the block kind at the decoding boundary: an
// explicit "kind" wins, otherwise the presence of chapters selects
// KindChapters. A block carrying both skills and chapters is rejected.
func (b *Block) UnmarshalJSON(data []byte) error {
	type rawBlock Block
	var raw rawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Skills) > 0 && len(raw.Chapters) > 0 {
		return fmt.Errorf("block %q: has both skills and chapters", raw.ID)
	}
	switch raw.Kind {
	case KindSkills, KindChapters:
	case "":
		if len(raw.Chapters) > 0 {
			raw.Kind = KindChapters
		} else {
			raw.Kind = KindSkills
		}
	default:
		return fmt.Errorf("block %q: unknown kind %q", raw.ID, raw.Kind)
	}
	*b = Block(raw)
	return nil
}
