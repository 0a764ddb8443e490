// Package codec holds the JSON wire types of the game service and the
// conversions from game state into them.
package codec

import (
	"seabattle/internal/console"
	"seabattle/internal/game"
	"seabattle/internal/merkle"
	"seabattle/internal/zk"
)

// --- requests ---

type CreateGame struct {
	Size      int      `json:"size"`
	Mode      string   `json:"mode"`      // "pvc" or "pvp"
	Players   []string `json:"players"`   // nicknames, seat order
	Placement string   `json:"placement"` // "random" or "manual"
	Seed      int64    `json:"seed,omitempty"`
}

// PlaceShip places the next ship of the caller's fleet, e.g. "B3 V", or the
// rest of the fleet at random. The seat comes from the caller's token.
type PlaceShip struct {
	Placement string `json:"placement,omitempty"`
	Random    bool   `json:"random,omitempty"`
}

type Shot struct {
	Coord string `json:"coord"` // e.g. "A6"
}

// --- responses ---

type Error struct {
	Error string `json:"error"`
}

// Grid rows are indexed [y][x] and hold cell names: empty, ship, hit, miss, sunk.
type Grid [][]string

type ShipView struct {
	Type  string       `json:"type"`
	Size  int          `json:"size"`
	Sunk  bool         `json:"sunk"`
	Cells []game.Coord `json:"cells,omitempty"` // own fleet only
}

type PlayerView struct {
	Name       string     `json:"name"`
	Token      string     `json:"token,omitempty"` // seat secret, only in the create response
	Computer   bool       `json:"computer,omitempty"`
	Placed     bool       `json:"placed"`
	NextShip   string     `json:"next_ship,omitempty"`
	Own        Grid       `json:"own,omitempty"` // only for the requesting player
	Radar      Grid       `json:"radar"`
	Fleet      []ShipView `json:"fleet"`
	Commitment string     `json:"commitment,omitempty"` // hex MiMC root
	LastShot   *Report    `json:"last_shot,omitempty"`
}

type Status struct {
	ID      string       `json:"id"`
	Mode    string       `json:"mode"`
	Size    int          `json:"size"`
	State   string       `json:"state"`
	Turn    int          `json:"turn"`
	Winner  int          `json:"winner"`
	Shots   int          `json:"shots"`
	Players []PlayerView `json:"players"`
}

type Report struct {
	Coord          game.Coord `json:"coord"`
	Label          string     `json:"label"`
	Outcome        string     `json:"outcome"`
	Sunk           string     `json:"sunk,omitempty"`
	FleetDestroyed bool       `json:"fleet_destroyed"`
}

// TurnEvent is one resolved half-turn, as returned by the shots endpoint and
// pushed to event stream subscribers.
type TurnEvent struct {
	N        int    `json:"n"`
	Shooter  int    `json:"shooter"`
	Name     string `json:"name"`
	Rejected int    `json:"rejected,omitempty"`
	Report   Report `json:"report"`
	Winner   int    `json:"winner"`
}

// ShotProofPayload lets the shooter check the outcome of shot N against the
// target's commitment: always by Merkle opening, and by Groth16 proof when
// the server proves shots.
type ShotProofPayload struct {
	Shot    int            `json:"shot"`
	Target  int            `json:"target"`
	Root    string         `json:"root"`
	Opening merkle.Opening `json:"opening"`
	Proof   []byte         `json:"proof,omitempty"`
	Public  *zk.ShotPublic `json:"public,omitempty"` // root, cell index and hit bit
}

// --- conversions ---

func FromReport(rep game.ShotReport) Report {
	r := Report{
		Coord:          rep.Coord,
		Label:          console.FormatCoord(rep.Coord),
		Outcome:        rep.Outcome.String(),
		FleetDestroyed: rep.FleetDestroyed,
	}
	if rep.Sunk != nil {
		r.Sunk = rep.Sunk.Type.String()
	}
	return r
}

// OwnGrid shows every cell of b.
func OwnGrid(b *game.Board) Grid {
	rows := b.Rows()
	g := make(Grid, len(rows))
	for y, row := range rows {
		g[y] = make([]string, len(row))
		for x, s := range row {
			g[y][x] = s.String()
		}
	}
	return g
}

// RadarGrid shows only what an opponent may know.
func RadarGrid(r game.Radar) Grid {
	n := r.Size()
	g := make(Grid, n)
	for y := range g {
		g[y] = make([]string, n)
		for x := range g[y] {
			s, _ := r.Visible(game.Coord{X: x, Y: y})
			g[y][x] = s.String()
		}
	}
	return g
}

// Fleet lists the placed ships; withCells reveals their positions.
func Fleet(f *game.Fleet, withCells bool) []ShipView {
	out := make([]ShipView, 0, len(game.StandardFleet))
	for _, s := range f.Ships() {
		v := ShipView{Type: s.Type.String(), Size: s.Type.Size(), Sunk: s.Sunk}
		if withCells {
			v.Cells = append([]game.Coord(nil), s.Cells...)
		}
		out = append(out, v)
	}
	return out
}
