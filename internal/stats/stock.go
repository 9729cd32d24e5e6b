// Package stats derives dashboard aggregates from record lists. Every
// function here is pure: no I/O, no clock reads, no errors. Missing or
// malformed input is treated as absent.
package stats

import (
	"time"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// Thresholds maps a blood group to its minimum stock in millilitres.
// A zero or missing entry means no minimum is configured.
type Thresholds map[models.BloodGroup]int

// StockLevel is the derived stock of one blood group.
type StockLevel struct {
	BloodGroup  models.BloodGroup `json:"bloodGroup"`
	InMl        int               `json:"inMl"`
	OutMl       int               `json:"outMl"`
	NetMl       int               `json:"netMl"`
	MinMl       int               `json:"minMl"`
	Low         bool              `json:"low"`
	Status      string            `json:"status"`
	LastUpdated *time.Time        `json:"lastUpdated"`
}

const (
	StockLow = "low"
	StockOK  = "ok"
)

// StockLevels nets "in" against "out" records for each of the eight
// standard groups. Every group is present in the result, in display order,
// with zero stock when it has no records.
func StockLevels(records []models.InventoryRecord, th Thresholds) []StockLevel {
	idx := make(map[models.BloodGroup]*StockLevel, len(models.AllBloodGroups))
	out := make([]StockLevel, len(models.AllBloodGroups))
	for i, g := range models.AllBloodGroups {
		out[i].BloodGroup = g
		idx[g] = &out[i]
	}
	for _, r := range records {
		g, ok := models.NormalizeBloodGroup(string(r.BloodGroup))
		if !ok || r.Quantity < 0 {
			continue
		}
		lvl := idx[g]
		switch r.InventoryType {
		case models.InventoryIn:
			lvl.InMl += r.Quantity
		case models.InventoryOut:
			lvl.OutMl += r.Quantity
		default:
			continue
		}
		touch(lvl, r.CreatedAt)
	}
	for i := range out {
		out[i].NetMl = out[i].InMl - out[i].OutMl
		flag(&out[i], th)
	}
	return out
}

// StockFromSummary group-sums stock rows the backend has already netted.
// A threshold configured locally wins over the row's own minimum.
func StockFromSummary(rows []models.StockRow, th Thresholds) []StockLevel {
	idx := make(map[models.BloodGroup]*StockLevel, len(models.AllBloodGroups))
	out := make([]StockLevel, len(models.AllBloodGroups))
	for i, g := range models.AllBloodGroups {
		out[i].BloodGroup = g
		idx[g] = &out[i]
	}
	for _, row := range rows {
		g, ok := models.NormalizeBloodGroup(string(row.BloodGroup))
		if !ok {
			continue
		}
		lvl := idx[g]
		lvl.NetMl += row.Available
		if row.Min > lvl.MinMl {
			lvl.MinMl = row.Min
		}
		touch(lvl, row.LastUpdated)
	}
	for i := range out {
		out[i].InMl = out[i].NetMl
		flag(&out[i], th)
	}
	return out
}

// LowOnly keeps the levels flagged low.
func LowOnly(levels []StockLevel) []StockLevel {
	out := make([]StockLevel, 0, len(levels))
	for _, l := range levels {
		if l.Low {
			out = append(out, l)
		}
	}
	return out
}

// Available returns the net stock of group g, zero when absent.
func Available(levels []StockLevel, g models.BloodGroup) int {
	for _, l := range levels {
		if l.BloodGroup == g {
			return l.NetMl
		}
	}
	return 0
}

func touch(lvl *StockLevel, ts models.Timestamp) {
	if !ts.Valid {
		return
	}
	if lvl.LastUpdated == nil || ts.After(*lvl.LastUpdated) {
		lvl.LastUpdated = ts.Ptr()
	}
}

func flag(lvl *StockLevel, th Thresholds) {
	if m := th[lvl.BloodGroup]; m > 0 {
		lvl.MinMl = m
	}
	lvl.Low = lvl.MinMl > 0 && lvl.NetMl < lvl.MinMl
	lvl.Status = StockOK
	if lvl.Low {
		lvl.Status = StockLow
	}
}
