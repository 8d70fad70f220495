package session

import (
	"fmt"

	"github.com/lox/chainpoker/internal/gameid"
)

// RouteKind names a screen.
type RouteKind int

const (
	RouteLogin RouteKind = iota
	RouteTableList
	RouteTableDetail
)

// Route is a screen plus its parameters.
type Route struct {
	Kind   RouteKind
	GameID uint64
}

// Login is the wallet connection screen.
func Login() Route { return Route{Kind: RouteLogin} }

// TableList is the list of tables.
func TableList() Route { return Route{Kind: RouteTableList} }

// TableDetail is a single table.
func TableDetail(id uint64) Route { return Route{Kind: RouteTableDetail, GameID: id} }

// Guarded reports whether the route needs an authenticated session.
func (r Route) Guarded() bool {
	return r.Kind != RouteLogin
}

func (r Route) String() string {
	switch r.Kind {
	case RouteLogin:
		return "login"
	case RouteTableList:
		return "tables"
	case RouteTableDetail:
		return "table " + gameid.Display(r.GameID)
	default:
		return fmt.Sprintf("route(%d)", int(r.Kind))
	}
}
