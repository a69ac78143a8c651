package controller

import (
	"math"
	"sort"

	"github.com/v2gsim/v2gsim/internal/message"
)

// slot is one allocation result: the power a station should deliver to a
// user this epoch. UserID 0 marks a vacant station.
type slot struct {
	stationID string
	userID    int
	power     float64
}

// connected reports whether the user occupies their station for the whole
// epoch: [epoch.start, epoch.end] ⊆ [arrival, target], bounds inclusive.
func connected(u *userRecord, epoch *message.Epoch) bool {
	return !epoch.StartTime.Before(u.arrival) && !epoch.EndTime.After(u.target)
}

// allocate computes the epoch's charging power per station slot and the
// total power drawn from the grid.
//
// Connected users are served greedily in priority order: earliest target
// time first, ties broken by larger remaining demand, then by user id for
// determinism. Each user's power is capped by their station, their car, the
// remaining grid capacity and their remaining energy demand. Stations with
// no connected user get a zero-power vacant slot after the connected ones.
func (c *Controller) allocate(epoch *message.Epoch) ([]slot, float64) {
	candidates := make([]*userRecord, 0, len(c.users))
	occupied := make(map[string]bool, len(c.stations))
	for _, u := range c.users {
		if !connected(u, epoch) {
			continue
		}
		if _, ok := c.stations[u.stationID]; !ok {
			// Station never reported this epoch; nothing to direct.
			continue
		}
		candidates = append(candidates, u)
		occupied[u.stationID] = true
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.target.Equal(b.target) {
			return a.target.Before(b.target)
		}
		if a.requiredEnergy != b.requiredEnergy {
			return a.requiredEnergy > b.requiredEnergy
		}
		return a.id < b.id
	})

	epochHours := float64(epoch.Seconds()) / 3600
	capacity := c.grid.currentPower

	slots := make([]slot, 0, len(candidates)+len(c.stations))
	used := 0.0
	for _, u := range candidates {
		power := 0.0
		if epochHours > 0 && u.targetSoC > u.soc && used < capacity {
			station := c.stations[u.stationID]
			power = math.Min(station.maxPower, u.carMaxPower)
			power = math.Min(power, capacity-used)
			power = math.Min(power, u.requiredEnergy/epochHours)
			power = math.Max(0, power)
			used += power
		}
		slots = append(slots, slot{stationID: u.stationID, userID: u.id, power: power})
	}

	vacant := make([]string, 0, len(c.stations))
	for id := range c.stations {
		if !occupied[id] {
			vacant = append(vacant, id)
		}
	}
	sort.Strings(vacant)
	for _, id := range vacant {
		slots = append(slots, slot{stationID: id})
	}

	return slots, used
}
