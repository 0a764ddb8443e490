package game

// Player owns one board and fleet. Its board is only changed by TakeFire,
// on behalf of the opponent.
type Player struct {
	Name  string
	Board *Board
	Fleet *Fleet

	// LastShot is the last valid shot this player fired, nil before the first.
	LastShot *ShotReport
}

func NewPlayer(name string, b *Board, f *Fleet) *Player {
	return &Player{Name: name, Board: b, Fleet: f}
}

// TakeFire runs fire, sunk check and fleet check as one step.
func (p *Player) TakeFire(c Coord) (ShotReport, error) {
	out, err := Fire(p.Board, c)
	if err != nil {
		return ShotReport{Coord: c, Outcome: out}, err
	}
	rep := ShotReport{Coord: c, Outcome: out}
	if out == ShotHit {
		if s := CheckShipSunk(p.Board, p.Fleet); s != nil {
			rep.Sunk = s
			rep.FleetDestroyed = CheckFleetDestroyed(p.Fleet)
		}
	}
	return rep, nil
}
