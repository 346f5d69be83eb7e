package bump

import (
	"context"
	"slices"

	"github.com/matzehuels/monocrate/pkg/errors"
)

// QuestionKind selects the shape of answer a [Question] expects.
type QuestionKind int

const (
	YesNo QuestionKind = iota
	MultiSelect
)

func (k QuestionKind) String() string {
	if k == MultiSelect {
		return "multi-select"
	}
	return "yes/no"
}

// Question is one request to the operator.
type Question struct {
	Kind    QuestionKind
	Text    string
	Choices []string // MultiSelect only
}

// Answer is the operator's reply. A YesNo question is answered with Yes set
// and no selection; a MultiSelect question with Selected (possibly empty)
// and Yes unset.
type Answer struct {
	Yes      *bool
	Selected []string
}

// Confirmed answers a YesNo question.
func Confirmed(yes bool) Answer { return Answer{Yes: &yes} }

// Selection answers a MultiSelect question.
func Selection(choices ...string) Answer {
	if choices == nil {
		choices = []string{}
	}
	return Answer{Selected: choices}
}

// Prompter asks the operator a question and blocks until it is answered.
type Prompter interface {
	Ask(ctx context.Context, q Question) (Answer, error)
}

func confirm(ctx context.Context, p Prompter, text string) (bool, error) {
	q := Question{Kind: YesNo, Text: text}
	a, err := p.Ask(ctx, q)
	if err != nil {
		return false, err
	}
	if a.Yes == nil || a.Selected != nil {
		return false, protocolError(q, a)
	}
	return *a.Yes, nil
}

func choose(ctx context.Context, p Prompter, text string, choices []string) ([]string, error) {
	q := Question{Kind: MultiSelect, Text: text, Choices: choices}
	a, err := p.Ask(ctx, q)
	if err != nil {
		return nil, err
	}
	if a.Yes != nil || a.Selected == nil {
		return nil, protocolError(q, a)
	}
	for _, s := range a.Selected {
		if !slices.Contains(choices, s) {
			return nil, errors.New(errors.ErrCodePromptProtocol, "%q is not one of the offered choices %v", s, choices)
		}
	}
	return a.Selected, nil
}

func protocolError(q Question, a Answer) error {
	got := "nothing"
	switch {
	case a.Yes != nil && a.Selected != nil:
		got = "both a yes/no and a selection"
	case a.Yes != nil:
		got = "a yes/no answer"
	case a.Selected != nil:
		got = "a selection"
	}
	return errors.New(errors.ErrCodePromptProtocol, "expected a %s answer to %q, got %s", q.Kind, q.Text, got)
}
