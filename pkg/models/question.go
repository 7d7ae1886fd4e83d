package models

import (
	"errors"
	"fmt"
)

// QuestionType arquetipo de pregunta
type QuestionType string

const (
	// Buzzer: el primero de la cola responde
	QuestionTypeProgressiveClues QuestionType = "progressive_clues"
	QuestionTypeImage            QuestionType = "image"
	QuestionTypeEmoji            QuestionType = "emoji"
	QuestionTypeBlindtest        QuestionType = "blindtest"
	QuestionTypeBasic            QuestionType = "basic"

	// Revelación por elementos
	QuestionTypeLabelling QuestionType = "labelling"
	QuestionTypeQuote     QuestionType = "quote"

	QuestionTypeMatching  QuestionType = "matching"
	QuestionTypeEnum      QuestionType = "enum"
	QuestionTypeOddOneOut QuestionType = "odd_one_out"
	QuestionTypeFinale    QuestionType = "finale"
)

func (t QuestionType) IsBuzzer() bool {
	switch t {
	case QuestionTypeProgressiveClues, QuestionTypeImage, QuestionTypeEmoji,
		QuestionTypeBlindtest, QuestionTypeBasic:
		return true
	}
	return false
}

func (t QuestionType) IsReveal() bool {
	return t == QuestionTypeLabelling || t == QuestionTypeQuote
}

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMatching, QuestionTypeEnum, QuestionTypeOddOneOut, QuestionTypeFinale:
		return true
	}
	return t.IsBuzzer() || t.IsReveal()
}

// Question pregunta base, inmutable durante la partida
type Question struct {
	ID     string       `json:"id"`
	Type   QuestionType `json:"type"`
	Title  string       `json:"title"`
	Answer string       `json:"answer,omitempty"`

	Clues     []string        `json:"clues,omitempty"`
	Elements  []RevealElement `json:"elements,omitempty"`
	Rows      [][]string      `json:"rows,omitempty"`
	Items     []string        `json:"items,omitempty"`
	Proposals []Proposal      `json:"proposals,omitempty"`
	Sections  []FinaleSection `json:"sections,omitempty"`
}

// RevealElement etiqueta o fragmento de cita; solo los adivinables puntúan
type RevealElement struct {
	Label     string `json:"label"`
	Guessable bool   `json:"guessable"`
}

// Proposal opción de una pregunta "intruso"
type Proposal struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation,omitempty"`
	Odd         bool   `json:"odd,omitempty"`
}

type FinaleSection struct {
	Title     string           `json:"title"`
	Questions []FinaleQuestion `json:"questions"`
}

type FinaleQuestion struct {
	Title  string `json:"title"`
	Answer string `json:"answer"`
}

// GuessableCount número de elementos que se pueden adivinar
func (q *Question) GuessableCount() int {
	n := 0
	for _, e := range q.Elements {
		if e.Guessable {
			n++
		}
	}
	return n
}

// Columns número de columnas de una pregunta de emparejamiento
func (q *Question) Columns() int {
	if len(q.Rows) == 0 {
		return 0
	}
	return len(q.Rows[0])
}

func (q *Question) OddCount() int {
	n := 0
	for _, p := range q.Proposals {
		if p.Odd {
			n++
		}
	}
	return n
}

// Validate comprueba que el contenido corresponde al arquetipo.
func (q *Question) Validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	if q.Title == "" {
		return errors.New("question title is required")
	}

	switch {
	case q.Type == QuestionTypeProgressiveClues:
		if len(q.Clues) == 0 {
			return errors.New("progressive clues question needs at least one clue")
		}
	case q.Type.IsReveal():
		if q.GuessableCount() == 0 {
			return errors.New("reveal question needs at least one guessable element")
		}
	case q.Type == QuestionTypeMatching:
		if len(q.Rows) < 2 {
			return errors.New("matching question needs at least two rows")
		}
		cols := q.Columns()
		if cols < 2 {
			return errors.New("matching question needs at least two columns")
		}
		for i, row := range q.Rows {
			if len(row) != cols {
				return fmt.Errorf("matching row %d has %d columns, want %d", i, len(row), cols)
			}
		}
	case q.Type == QuestionTypeEnum:
		if len(q.Items) == 0 {
			return errors.New("enumeration question needs at least one item")
		}
	case q.Type == QuestionTypeOddOneOut:
		if q.OddCount() != 1 {
			return errors.New("odd one out question needs exactly one odd proposal")
		}
		if len(q.Proposals) < 2 {
			return errors.New("odd one out question needs at least two proposals")
		}
	case q.Type == QuestionTypeFinale:
		if len(q.Sections) == 0 {
			return errors.New("finale theme needs at least one section")
		}
		for i, s := range q.Sections {
			if len(s.Questions) == 0 {
				return fmt.Errorf("finale section %d has no questions", i)
			}
		}
	}
	return nil
}
