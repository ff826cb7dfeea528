package state

import (
	"fmt"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/story-graph/pkg/conditionals"
)

// DieFaces is the size of the die rolled for dice checks.
const DieFaces = 20

// playerActor builds a d20 actor whose attributes are the player's stats.
func playerActor(stats conditionals.Stats) (*d20.Actor, error) {
	return d20.NewActor("player").
		WithHP(1).
		WithAC(10).
		WithAttributes(map[string]int(stats.Clone())).
		Build()
}

// checkRoll returns the builder for a check on stat. A stat the player does
// not have rolls a bare d20.
func checkRoll(roller *d20.Roller, stats conditionals.Stats, stat string) (*d20.RollBuilder, error) {
	actor, err := playerActor(stats)
	if err != nil {
		return nil, fmt.Errorf("failed to build player actor: %w", err)
	}
	if !actor.HasAttribute(stat) {
		return roller.Dice(1, DieFaces), nil
	}
	return actor.SkillCheck(stat, roller)
}

// resolveCheck rolls against difficulty. Success is roll + modifier >= difficulty.
func resolveCheck(roller *d20.Roller, stats conditionals.Stats, stat string, difficulty int) (natural, total int, result DiceResult, err error) {
	rb, err := checkRoll(roller, stats, stat)
	if err != nil {
		return 0, 0, "", err
	}
	out, err := rb.Roll()
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to roll %s check: %w", stat, err)
	}
	natural, total = out.DiceRolls[0], out.Value
	if total >= difficulty {
		return natural, total, DiceSuccess, nil
	}
	return natural, total, DiceFailure, nil
}
