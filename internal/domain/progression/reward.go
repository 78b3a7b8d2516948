// Package progression implements the reward calculator, the leveling ledger,
// and the streak tracker. Everything in this package is pure computation over
// value types; persistence lives behind the repository contracts.
package progression

import (
	"math"

	"github.com/studyseal/study-hub/internal/domain/shared"
)

// FatigueTier maps a duration ceiling to a reward multiplier. Tiers are
// evaluated in order; the first tier whose MaxMinutes covers the duration wins.
type FatigueTier struct {
	MaxMinutes int
	Multiplier float64
}

// RewardPolicy holds every tunable constant of the reward formula.
// All values are externally configurable; DefaultRewardPolicy carries
// the production defaults.
type RewardPolicy struct {
	// CoinsPerMinuteDivisor: raw coins = duration / divisor.
	CoinsPerMinuteDivisor float64

	// XPBase and XPExponent shape the sublinear XP curve:
	// raw xp = XPBase * duration^XPExponent + XPBlockBonus * floor(duration/block).
	XPBase       float64
	XPExponent   float64
	XPBlockBonus float64

	// CompletionBonus applies when the session was not skipped and ran at
	// least one full block.
	CompletionBonus float64

	// FatigueTiers discourage marathon sessions. The last tier's multiplier
	// applies to any duration beyond all ceilings.
	FatigueTiers      []FatigueTier
	FatigueFloor      float64
	StreakBonusStep   float64
	StreakBonusCapDay int

	// SoftcapThresholdMinutes and SoftcapFactor halve coin output once the
	// week's pre-session minutes pass the threshold. Coins only; XP is
	// never softcapped.
	SoftcapThresholdMinutes int
	SoftcapFactor           float64
}

// DefaultRewardPolicy returns the production reward constants.
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		CoinsPerMinuteDivisor: 5,
		XPBase:                8,
		XPExponent:            0.9,
		XPBlockBonus:          12,
		CompletionBonus:       1.2,
		FatigueTiers: []FatigueTier{
			{MaxMinutes: 50, Multiplier: 1.0},
			{MaxMinutes: 100, Multiplier: 0.9},
			{MaxMinutes: 180, Multiplier: 0.8},
		},
		FatigueFloor:            0.7,
		StreakBonusStep:         0.03,
		StreakBonusCapDay:       7,
		SoftcapThresholdMinutes: 900,
		SoftcapFactor:           0.5,
	}
}

// RewardInput carries the session facts the calculator needs.
type RewardInput struct {
	Duration          shared.Minutes // session length
	Skipped           bool           // user abandoned the block early
	BlockMinutes      int            // configured focus-block length, > 0
	WeekMinutesBefore shared.Minutes // minutes already studied this week
	StreakDays        int            // streak after the streak tracker ran
}

// Validate checks the input contract.
func (in RewardInput) Validate() error {
	if in.Duration < 0 {
		return shared.ErrNegativeDuration
	}
	if in.BlockMinutes <= 0 {
		return shared.ErrInvalidBlock
	}
	if in.WeekMinutesBefore < 0 {
		return shared.NewDomainError("progression", "Validate", shared.ErrNegativeValue, "week minutes cannot be negative")
	}
	return nil
}

// RewardResult is the calculator's output. Both amounts are non-negative
// integers; fractional products are floored.
type RewardResult struct {
	Coins shared.Coins
	XP    shared.XP
}

// FatigueMultiplier returns the tier multiplier for the given duration.
func (p RewardPolicy) FatigueMultiplier(duration shared.Minutes) float64 {
	d := duration.Int()
	for _, tier := range p.FatigueTiers {
		if d <= tier.MaxMinutes {
			return tier.Multiplier
		}
	}
	return p.FatigueFloor
}

// StreakMultiplier returns 1 + step per streak day, capped.
func (p RewardPolicy) StreakMultiplier(streakDays int) float64 {
	if streakDays < 0 {
		streakDays = 0
	}
	if streakDays > p.StreakBonusCapDay {
		streakDays = p.StreakBonusCapDay
	}
	return 1 + float64(streakDays)*p.StreakBonusStep
}

// ComputeSessionReward turns session facts into (coins, xp). Pure; a zero
// duration always yields (0, 0).
func (p RewardPolicy) ComputeSessionReward(in RewardInput) (RewardResult, error) {
	if err := in.Validate(); err != nil {
		return RewardResult{}, err
	}

	d := float64(in.Duration.Int())
	blocks := in.Duration.Int() / in.BlockMinutes

	coinsRaw := d / p.CoinsPerMinuteDivisor
	xpRaw := p.XPBase*math.Pow(d, p.XPExponent) + p.XPBlockBonus*float64(blocks)

	fatigue := p.FatigueMultiplier(in.Duration)
	completion := 1.0
	if !in.Skipped && in.Duration.Int() >= in.BlockMinutes {
		completion = p.CompletionBonus
	}
	streak := p.StreakMultiplier(in.StreakDays)
	softcap := 1.0
	if in.WeekMinutesBefore.Int() >= p.SoftcapThresholdMinutes {
		softcap = p.SoftcapFactor
	}

	coins := int(math.Floor(coinsRaw * completion * fatigue * streak * softcap))
	xp := int(math.Floor(xpRaw * completion * fatigue * streak))
	if coins < 0 {
		coins = 0
	}
	if xp < 0 {
		xp = 0
	}

	return RewardResult{Coins: shared.Coins(coins), XP: shared.XP(xp)}, nil
}
