package relay

import "gobridgerelay/types"

// route describes what a scan of one chain looks for and what it mirrors on
// the opposite chain
type route struct {
	event  string
	method string
}

var routes = map[types.ChainRole]route{
	types.RoleSource: {
		event:  types.EventDeposit,
		method: types.MethodWrap,
	},
	types.RoleDestination: {
		event:  types.EventUnwrap,
		method: types.MethodWithdraw,
	},
}

// QueryRange is the inclusive block range scanned for a chain head
func QueryRange(latest, lookback uint64) (from, to uint64) {
	if latest < lookback {
		return 0, latest
	}
	return latest - lookback, latest
}
