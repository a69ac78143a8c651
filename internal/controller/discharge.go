package controller

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/message"
)

// markDischargeFlags evaluates discharge eligibility for every user once the
// epoch snapshot is complete. A user discharges this epoch iff they have a
// preference record, the grid is under load this hour, their station
// reported, and their price threshold is at or below the station's
// compensation. Flagged users above target have it lowered ten points,
// floored at their minimum state of charge, so a single epoch never drains
// the battery further than that.
func (c *Controller) markDischargeFlags(ctx engine.Context) {
	for _, u := range c.users {
		pref, hasPref := c.prefs[u.id]
		if !hasPref || !c.underLoad {
			continue
		}
		station, ok := c.stations[u.stationID]
		if !ok {
			continue
		}
		if pref.DischargePriceThreshold <= station.compensationAmount {
			u.discharge = true
			if u.soc > u.targetSoC {
				u.targetSoC = math.Max(u.soc-10, pref.MinimumSOC*100)
				u.requiredEnergy = requiredEnergy(u.battery, u.targetSoC, u.soc)
			}
			ctx.Logger().Info("User eligible for discharge",
				zap.Int("user", u.id),
				zap.Float64("target_soc", u.targetSoC),
				zap.Float64("threshold", pref.DischargePriceThreshold),
				zap.Float64("compensation", station.compensationAmount),
			)
		}
	}
}

// dischargeDirectives builds the epoch's discharge burst: one directive per
// flagged connected user whose state of charge exceeds their target. The
// energy above target is converted to kW over the epoch.
func (c *Controller) dischargeDirectives(epoch *message.Epoch) []*message.CarDischargePowerRequirement {
	epochHours := float64(epoch.Seconds()) / 3600
	if epochHours <= 0 {
		return nil
	}

	ids := make([]int, 0, len(c.users))
	for id := range c.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var directives []*message.CarDischargePowerRequirement
	for _, id := range ids {
		u := c.users[id]
		if !u.discharge || !connected(u, epoch) || u.soc <= u.targetSoC {
			continue
		}
		energy := u.battery * (u.soc - u.targetSoC) / 100
		directives = append(directives, &message.CarDischargePowerRequirement{
			StationID: u.stationID,
			UserID:    u.id,
			Power:     energy / epochHours,
		})
	}
	return directives
}

// adjustTarget reshapes a user's demand after their CarState arrives.
// Discharging users above target stop competing for charging power and have
// their target lowered; users who reached their target and accept the
// station's price have it raised to full.
func (c *Controller) adjustTarget(ctx engine.Context, u *userRecord) {
	pref, hasPref := c.prefs[u.id]
	station, hasStation := c.stations[u.stationID]

	if u.discharge && u.soc > u.targetSoC {
		u.requiredEnergy = 0
		floor := 0.0
		if hasPref {
			floor = pref.MinimumSOC * 100
		}
		u.targetSoC = math.Max(u.soc-10, floor)
		ctx.Logger().Info("Lowered target for discharging user",
			zap.Int("user", u.id),
			zap.Float64("soc", u.soc),
			zap.Float64("target_soc", u.targetSoC),
		)
		return
	}

	if hasPref && hasStation &&
		u.soc == u.targetSoC &&
		pref.MaxCostForCharging >= station.chargingCost &&
		u.targetSoC < maxSoC {
		u.targetSoC = maxSoC
		u.requiredEnergy = requiredEnergy(u.battery, u.targetSoC, u.soc)
		ctx.Logger().Info("Raised target for user willing to pay",
			zap.Int("user", u.id),
			zap.Float64("target_soc", u.targetSoC),
			zap.Float64("required_kwh", u.requiredEnergy),
		)
	}
}
