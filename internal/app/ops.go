package app

// Operation names an asynchronous action the user can trigger
type Operation string

const (
	OpConfig   Operation = "config"
	OpLogin    Operation = "login"
	OpRegister Operation = "register"
	OpLogout   Operation = "logout"
	OpProfiles Operation = "profiles"
	OpUpload   Operation = "upload"
	OpPoll     Operation = "poll"
)

// OpState is the lifecycle of the most recent run of an operation
type OpState int

const (
	Idle OpState = iota
	InFlight
	Succeeded
	Failed
)

func (s OpState) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// opStates tracks one OpState per operation. Missing entries are Idle.
type opStates map[Operation]OpState

func (o opStates) get(op Operation) OpState {
	return o[op]
}

func (o opStates) set(op Operation, s OpState) {
	o[op] = s
}

func (o opStates) inFlight(ops ...Operation) bool {
	for _, op := range ops {
		if o[op] == InFlight {
			return true
		}
	}
	return false
}
