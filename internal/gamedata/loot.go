package gamedata

import "math/rand"

// Drop is one stack of looted items.
type Drop struct {
	ItemID string `json:"itemId"`
	Count  int    `json:"count"`
}

// DropChance is one entry of a monster drop table.
type DropChance struct {
	ItemID string  `json:"itemId"`
	Chance float64 `json:"chance"` // Probability in [0, 1]
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

// RollDrops rolls every entry of the table independently and stacks the
// results by item.
func RollDrops(rng *rand.Rand, table []DropChance) []Drop {
	var drops []Drop
	for _, entry := range table {
		if entry.ItemID == "" || rng.Float64() >= entry.Chance {
			continue
		}
		lo, hi := max(entry.Min, 1), max(entry.Max, entry.Min, 1)
		count := lo + rng.Intn(hi-lo+1)
		drops = StackDrops(drops, Drop{ItemID: entry.ItemID, Count: count})
	}
	return drops
}

// StackDrops adds more to drops, merging counts of the same item.
func StackDrops(drops []Drop, more ...Drop) []Drop {
	for _, d := range more {
		if d.Count <= 0 {
			continue
		}
		merged := false
		for i := range drops {
			if drops[i].ItemID == d.ItemID {
				drops[i].Count += d.Count
				merged = true
				break
			}
		}
		if !merged {
			drops = append(drops, d)
		}
	}
	return drops
}
