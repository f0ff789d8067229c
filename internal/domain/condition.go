package domain

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Condition is one eligibility rule evaluated against a GameState snapshot.
type Condition interface {
	Evaluate(state GameState) bool
}

// ConditionSpec is the wire shape of a single rule.
type ConditionSpec struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Clock returns the current time; injectable for cooldown tests.
type Clock func() time.Time

// CompileCondition builds a Condition from its wire spec. Unrecognized types
// and malformed values compile to an always-false condition with a logged
// warning: an offer with a broken rule never shows (fail-closed).
//
// ownerID is the id of the enclosing offer; CooldownSeconds rules are bound
// to it so the cooldown tracks the offer that carries the rule.
func CompileCondition(spec ConditionSpec, ownerID string, logger *slog.Logger, now Clock) Condition {
	if now == nil {
		now = time.Now
	}
	switch spec.Type {
	case "LevelAtLeast":
		n, err := strconv.Atoi(spec.Value)
		if err != nil {
			return failClosed(spec, ownerID, logger, "malformed level value")
		}
		return levelAtLeast{level: n}
	case "StageCompleted":
		n, err := strconv.Atoi(spec.Value)
		if err != nil {
			return failClosed(spec, ownerID, logger, "malformed stage value")
		}
		return stageCompleted{stage: n}
	case "HasCurrency":
		code, amountStr, ok := strings.Cut(spec.Value, ":")
		if !ok {
			return failClosed(spec, ownerID, logger, "expected currency:amount")
		}
		amount, err := strconv.ParseInt(amountStr, 10, 64)
		if err != nil {
			return failClosed(spec, ownerID, logger, "malformed currency amount")
		}
		return hasCurrency{code: code, amount: amount}
	case "CooldownSeconds":
		secs, err := strconv.Atoi(spec.Value)
		if err != nil {
			return failClosed(spec, ownerID, logger, "malformed cooldown value")
		}
		return cooldown{offerID: ownerID, seconds: secs, now: now}
	case "HasNotPurchased":
		if spec.Value == "" {
			return failClosed(spec, ownerID, logger, "missing offer id")
		}
		return hasNotPurchased{offerID: spec.Value}
	default:
		logger.Warn("unknown condition type, compiling fail-closed",
			"condition_type", spec.Type, "offer_id", ownerID)
		return unknownCondition{typ: spec.Type, logger: logger}
	}
}

func failClosed(spec ConditionSpec, ownerID string, logger *slog.Logger, reason string) Condition {
	logger.Warn("malformed condition value, compiling fail-closed",
		"condition_type", spec.Type, "value", spec.Value, "offer_id", ownerID, "reason", reason)
	return unknownCondition{typ: spec.Type, logger: logger}
}

type levelAtLeast struct {
	level int
}

func (c levelAtLeast) Evaluate(state GameState) bool {
	return state.GetPlayerLevel() >= c.level
}

type stageCompleted struct {
	stage int
}

func (c stageCompleted) Evaluate(state GameState) bool {
	return state.GetCompletedStages() >= c.stage
}

type hasCurrency struct {
	code   string
	amount int64
}

func (c hasCurrency) Evaluate(state GameState) bool {
	return state.GetCurrency(c.code) >= c.amount
}

type cooldown struct {
	offerID string
	seconds int
	now     Clock
}

func (c cooldown) Evaluate(state GameState) bool {
	lastShown := state.GetLastShown(c.offerID)
	if lastShown.IsZero() {
		return true
	}
	return c.now().Sub(lastShown) >= time.Duration(c.seconds)*time.Second
}

type hasNotPurchased struct {
	offerID string
}

func (c hasNotPurchased) Evaluate(state GameState) bool {
	return !state.HasPurchased(c.offerID)
}

type unknownCondition struct {
	typ    string
	logger *slog.Logger
}

func (c unknownCondition) Evaluate(GameState) bool {
	c.logger.Warn("evaluating unknown condition as false", "condition_type", c.typ)
	return false
}
