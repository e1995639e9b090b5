package processor

import (
	"errors"
	"fmt"
)

// State 流水线状态
type State string

const (
	StateIdle      State = "idle"
	StateParsing   State = "parsing"
	StateEnhancing State = "enhancing"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// ErrInvalidTransition 不在转移表中的状态变化
var ErrInvalidTransition = errors.New("invalid state transition")

// transitions 允许的状态转移。重新选择文件从任意状态回到 parsing，由 restart 单独处理
var transitions = map[State][]State{
	StateIdle:      {StateParsing},
	StateParsing:   {StateEnhancing, StateError},
	StateEnhancing: {StateCompleted, StateError},
	StateCompleted: {},
	StateError:     {},
}

// CanTransition 判断 from -> to 是否合法
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal completed 与 error 之后只能重新开始
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateError
}

// machine 状态与当前运行绑定，调用方负责加锁
type machine struct {
	state State
	runID string
	err   error
}

func newMachine() machine {
	return machine{state: StateIdle}
}

// restart 任意状态下开始新的运行，直接进入 parsing
func (m *machine) restart(runID string) {
	m.state = StateParsing
	m.runID = runID
	m.err = nil
}

func (m *machine) transition(to State) error {
	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.state = to
	return nil
}

func (m *machine) fail(err error) error {
	if terr := m.transition(StateError); terr != nil {
		return terr
	}
	m.err = err
	return nil
}
