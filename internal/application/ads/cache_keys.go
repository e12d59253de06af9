package ads

import "github.com/promokit/adserve/internal/domain"

// Ad detail entries live under one shared prefix keyed by id; everything
// position-scoped (listings, the selection winner) lives under a per-position
// prefix so one flush covers all of a slot's derived entries.
const DetailPrefix = "ads"

const (
	keyActiveList = "active"
	keyWinner     = "winner"
)

func positionPrefix(pos domain.Position) string {
	return "ads:pos:" + string(pos)
}
