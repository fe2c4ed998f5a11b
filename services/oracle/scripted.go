package oraclesvc

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
)

// ErrNoAnswer is returned by a Scripted oracle that has nothing left to say.
var ErrNoAnswer = errors.New("scripted oracle has no answer for this prompt")

type (
	// Scripted answers from a queue first, then from substring rules. Used in dev and tests.
	Scripted struct {
		mutex   sync.Mutex
		queue   []string
		rules   []rule
		prompts []Call
	}

	rule struct {
		contains string
		answer   string
		err      error
	}

	// Call is a prompt the oracle received, with its options.
	Call struct {
		Prompt string
		Opts   core.GenerateOptions
	}
)

var _ core.TextOracle = (*Scripted)(nil)

func NewScripted(answers ...string) *Scripted {
	return &Scripted{queue: answers}
}

// Push queues answers returned once each, in order.
func (o *Scripted) Push(answers ...string) *Scripted {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.queue = append(o.queue, answers...)
	return o
}

// On answers every prompt containing substr with answer, once the queue is empty.
func (o *Scripted) On(substr, answer string) *Scripted {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.rules = append(o.rules, rule{contains: substr, answer: answer})
	return o
}

// Fail makes every prompt containing substr fail with err.
func (o *Scripted) Fail(substr string, err error) *Scripted {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.rules = append(o.rules, rule{contains: substr, err: err})
	return o
}

// Calls returns the prompts received so far.
func (o *Scripted) Calls() []Call {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return append([]Call(nil), o.prompts...)
}

func (o *Scripted) Generate(ctx context.Context, prompt string, opts core.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.prompts = append(o.prompts, Call{Prompt: prompt, Opts: opts.WithDefaults()})

	if len(o.queue) > 0 {
		answer := o.queue[0]
		o.queue = o.queue[1:]
		return answer, nil
	}
	for _, r := range o.rules {
		if strings.Contains(prompt, r.contains) {
			return r.answer, r.err
		}
	}
	return "", ErrNoAnswer
}
