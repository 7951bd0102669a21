// Package checker watches the observations of a harness and flags every cycle
// that breaks the ready/valid protocol of a one-entry skid buffer.
package checker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sarchlab/skidbuffer/harness"
	"github.com/sarchlab/skidbuffer/sim/hooking"
	"github.com/sarchlab/skidbuffer/skid"
)

// Rule names a protocol property.
type Rule string

// Rules the checker enforces.
const (
	RuleHandshake     Rule = "handshake"
	RuleNoDataLoss    Rule = "no-data-loss"
	RuleNoDuplication Rule = "no-duplication"
	RuleStability     Rule = "stability"
	RuleReset         Rule = "reset"
	RuleZeroBubble    Rule = "zero-bubble"
)

// A Violation is one broken rule in one cycle.
type Violation struct {
	Cycle   uint64
	Rule    Rule
	Message string
}

func (v Violation) Error() string {
	return fmt.Sprintf("cycle %d: %s: %s", v.Cycle, v.Rule, v.Message)
}

type cycleKind int

const (
	kindNone cycleKind = iota
	kindReset
	kindStall
	kindPass
)

// Checker keeps its own model of what the register must be holding and
// compares every observation against it. It assumes it sees the register
// from its first cycle, when the register is empty.
type Checker struct {
	lock sync.Mutex

	held       skid.State
	prevKind   cycleKind
	violations []Violation
	accepted   uint64
	delivered  uint64
	cycles     uint64
}

// NewChecker creates a Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Func checks the observation carried by ctx.
func (c *Checker) Func(ctx hooking.HookCtx) {
	if ctx.Pos != harness.HookPosObservation {
		return
	}

	c.Observe(ctx.Item.(harness.Observation))
}

// Observe checks one cycle.
func (c *Checker) Observe(obs harness.Observation) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.cycles++

	c.checkHandshake(obs)
	c.checkHeldItem(obs)

	if obs.Input.Reset {
		c.held = skid.State{}
		c.prevKind = kindReset

		return
	}

	c.account(obs)
}

func (c *Checker) checkHandshake(obs harness.Observation) {
	in := obs.Input

	wantInReady := !obs.OutValid || in.DownstreamReady
	if obs.InReady != wantInReady {
		c.report(obs, RuleHandshake, fmt.Sprintf(
			"in_ready=%t with out_valid=%t out_ready=%t",
			obs.InReady, obs.OutValid, in.DownstreamReady))
	}

	if obs.InputFire != (in.UpstreamValid && obs.InReady) {
		c.report(obs, RuleHandshake, fmt.Sprintf(
			"input fire=%t with in_valid=%t in_ready=%t",
			obs.InputFire, in.UpstreamValid, obs.InReady))
	}

	if obs.OutputFire != (obs.OutValid && in.DownstreamReady) {
		c.report(obs, RuleHandshake, fmt.Sprintf(
			"output fire=%t with out_valid=%t out_ready=%t",
			obs.OutputFire, obs.OutValid, in.DownstreamReady))
	}
}

func (c *Checker) checkHeldItem(obs harness.Observation) {
	switch {
	case c.held.Valid && !obs.OutValid:
		c.report(obs, c.ruleFor(RuleNoDataLoss), fmt.Sprintf(
			"held item 0x%X is no longer offered", uint64(c.held.Data)))
	case !c.held.Valid && obs.OutValid:
		c.report(obs, c.ruleFor(RuleNoDuplication), fmt.Sprintf(
			"item 0x%X offered while nothing is held", uint64(obs.OutData)))
	case c.held.Valid && obs.OutData != c.held.Data:
		c.report(obs, c.ruleFor(RuleNoDataLoss), fmt.Sprintf(
			"offering 0x%X instead of held item 0x%X",
			uint64(obs.OutData), uint64(c.held.Data)))
	}
}

// ruleFor attributes a wrong output to the property the previous cycle
// exercised, falling back to def.
func (c *Checker) ruleFor(def Rule) Rule {
	switch c.prevKind {
	case kindReset:
		return RuleReset
	case kindStall:
		return RuleStability
	case kindPass:
		return RuleZeroBubble
	default:
		return def
	}
}

func (c *Checker) account(obs harness.Observation) {
	if obs.InputFire {
		c.accepted++
	}

	if obs.OutputFire {
		c.delivered++
	}

	switch {
	case obs.InputFire && obs.OutputFire:
		c.prevKind = kindPass
	case obs.OutValid && !obs.OutputFire:
		c.prevKind = kindStall
	default:
		c.prevKind = kindNone
	}

	switch {
	case obs.InputFire:
		c.held = skid.State{Valid: true, Data: obs.Accepted}
	case obs.OutputFire:
		c.held = skid.State{}
	}
}

func (c *Checker) report(obs harness.Observation, rule Rule, msg string) {
	c.violations = append(c.violations, Violation{
		Cycle:   obs.Cycle,
		Rule:    rule,
		Message: msg,
	})
}

// Violations returns the violations found so far, in cycle order.
func (c *Checker) Violations() []Violation {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]Violation(nil), c.violations...)
}

// Accepted returns the number of items taken from the producer outside reset.
func (c *Checker) Accepted() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.accepted
}

// Delivered returns the number of items handed to the consumer outside reset.
func (c *Checker) Delivered() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.delivered
}

// Cycles returns the number of observations checked.
func (c *Checker) Cycles() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.cycles
}

// Err returns nil if no rule was broken, or an error listing every
// violation.
func (c *Checker) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if len(c.violations) == 0 {
		return nil
	}

	lines := make([]string, 0, len(c.violations))
	for _, v := range c.violations {
		lines = append(lines, v.Error())
	}

	return errors.Errorf("%d protocol violation(s):\n%s",
		len(c.violations), strings.Join(lines, "\n"))
}
